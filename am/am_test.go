package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kgraph/rdf"
)

// isolate points every config source at an empty temporary tree.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)

	oldSystem := SystemConfigPath
	SystemConfigPath = filepath.Join(dir, "etc", "am.toml")
	Reset()
	t.Cleanup(func() {
		SystemConfigPath = oldSystem
		Reset()
	})
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultSpacesPath, cfg.Database.Path)
	assert.Equal(t, 5000, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, 4096, cfg.Store.TermCacheSize)
	assert.Equal(t, 100, cfg.Query.DefaultLimit)
	assert.Equal(t, 10000, cfg.Query.MaxLimit)
	assert.Equal(t, 500, cfg.Lifecycle.ApplyBatchSize)
	assert.Equal(t, rdf.DefaultNamespace, cfg.Lifecycle.Namespace)
	assert.Equal(t, 50.0, cfg.Maintenance.EntitiesPerSecond)
	assert.Equal(t, 10, cfg.Maintenance.Burst)
	assert.False(t, cfg.Log.JSON)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero busy timeout is valid (driver default)", mutate: func(c *Config) { c.Database.BusyTimeoutMS = 0 }},
		{name: "negative busy timeout is invalid", mutate: func(c *Config) { c.Database.BusyTimeoutMS = -1 }, wantErr: true},
		{name: "zero term cache is invalid", mutate: func(c *Config) { c.Store.TermCacheSize = 0 }, wantErr: true},
		{name: "zero default limit is invalid", mutate: func(c *Config) { c.Query.DefaultLimit = 0 }, wantErr: true},
		{name: "max below default is invalid", mutate: func(c *Config) { c.Query.MaxLimit = 10 }, wantErr: true},
		{name: "zero batch size is invalid", mutate: func(c *Config) { c.Lifecycle.ApplyBatchSize = 0 }, wantErr: true},
		{name: "empty namespace selects default", mutate: func(c *Config) { c.Lifecycle.Namespace = "" }},
		{name: "relative namespace is invalid", mutate: func(c *Config) { c.Lifecycle.Namespace = "kg#" }, wantErr: true},
		{name: "namespace without separator is invalid", mutate: func(c *Config) { c.Lifecycle.Namespace = "http://example.org/kg" }, wantErr: true},
		{name: "zero rate is valid (unlimited)", mutate: func(c *Config) { c.Maintenance.EntitiesPerSecond = 0 }},
		{name: "negative rate is invalid", mutate: func(c *Config) { c.Maintenance.EntitiesPerSecond = -1 }, wantErr: true},
		{name: "zero burst is invalid", mutate: func(c *Config) { c.Maintenance.Burst = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	dir := isolate(t)
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))

	assert.Empty(t, findProjectConfig())

	writeFile(t, filepath.Join(dir, "am.toml"), "[query]\nmax_limit = 200\n")
	t.Chdir(nested)
	got, err := filepath.EvalSymlinks(findProjectConfig())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "am.toml"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	writeFile(t, SystemConfigPath, "[query]\ndefault_limit = 20\nmax_limit = 300\n")
	writeFile(t, filepath.Join(dir, "home", ".kgraph", "am.toml"), "[query]\nmax_limit = 400\n")
	writeFile(t, filepath.Join(dir, "am.toml"), "[store]\nterm_cache_size = 64\n")
	t.Setenv("KGRAPH_LIFECYCLE_APPLY_BATCH_SIZE", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Query.DefaultLimit, "system file")
	assert.Equal(t, 400, cfg.Query.MaxLimit, "user overrides system")
	assert.Equal(t, 64, cfg.Store.TermCacheSize, "project file")
	assert.Equal(t, 7, cfg.Lifecycle.ApplyBatchSize, "environment")

	t.Setenv("KGRAPH_QUERY_MAX_LIMIT", "500")
	Reset()
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Query.MaxLimit, "environment overrides files")
	assert.Equal(t, DefaultSpacesPath, cfg.Database.Path, "default")

	assert.Equal(t, SourceSystem, ConfigSources["query.default_limit"].Source)
	assert.Equal(t, SourceUser, ConfigSources["query.max_limit"].Source)
	assert.Equal(t, SourceProject, ConfigSources["store.term_cache_size"].Source)

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "Load caches")
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "am.toml"), "[lifecycle]\napply_batch_size = -5\n")

	_, err := Load()
	assert.ErrorContains(t, err, "apply_batch_size")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[database]\npath = \"/var/lib/kgraph\"\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kgraph", cfg.GetDatabasePath())
	assert.Equal(t, 100, cfg.Query.DefaultLimit)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestVocabularyFromConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Lifecycle.Namespace = "http://example.org/kg#"
	assert.Equal(t, "http://example.org/kg#KGEntity", cfg.Vocabulary().Entity)
}

func TestCandidateFiles(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "am.toml"), "")

	files := CandidateFiles()
	require.Len(t, files, 3)
	assert.Equal(t, SourceSystem, files[0].Source)
	assert.Equal(t, SystemConfigPath, files[0].Path)
	assert.Equal(t, SourceUser, files[1].Source)
	assert.Equal(t, filepath.Join(dir, "home", ".kgraph", "am.toml"), files[1].Path)
	assert.Equal(t, SourceProject, files[2].Source)
}
