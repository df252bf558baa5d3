package am

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

// DefaultSpacesPath is the default database.path.
const DefaultSpacesPath = "kgraph-spaces"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", DefaultSpacesPath)
	v.SetDefault("database.busy_timeout_ms", db.SQLiteBusyTimeoutMS)

	v.SetDefault("store.term_cache_size", store.DefaultTermCacheSize)

	// Query paging
	v.SetDefault("query.default_limit", store.DefaultQueryLimit)
	v.SetDefault("query.max_limit", store.MaxQueryLimit)

	v.SetDefault("lifecycle.apply_batch_size", lifecycle.DefaultBatchSize)
	v.SetDefault("lifecycle.namespace", rdf.DefaultNamespace)

	// Audit-all pacing
	v.SetDefault("maintenance.entities_per_second", 50.0)
	v.SetDefault("maintenance.burst", 10)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration that is commonly set
// per process to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("log.json", EnvPrefix+"_LOG_JSON")
}

// GetDatabasePath returns the configured spaces directory
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultSpacesPath
	}
	return c.Database.Path
}

// Vocabulary returns the vocabulary for the configured namespace
func (c *Config) Vocabulary() rdf.Vocabulary {
	return rdf.NewVocabulary(c.Lifecycle.Namespace)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Query: {DefaultLimit: %d, MaxLimit: %d}, Lifecycle: {BatchSize: %d}}",
		c.GetDatabasePath(), c.Query.DefaultLimit, c.Query.MaxLimit, c.Lifecycle.ApplyBatchSize)
}

func defaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}
