package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/kgraph/errors"
)

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records, per dotted key, the file that last set it during
	// loading. Keys not present come from defaults or the environment.
	ConfigSources = map[string]SourceInfo{}
)

// SystemConfigPath is the lowest-precedence config file.
var SystemConfigPath = "/etc/kgraph/am.toml"

// Load reads the kgraph configuration using Viper and validates it
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults. The
// caller holds mu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)

	// Set defaults first
	SetDefaults(v)

	// Manually merge configs in precedence order: system -> user -> project -> env vars
	ConfigSources = mergeConfigFiles(v, configPaths())

	viperInstance = v
	return v
}

// configPaths lists candidate config files from lowest to highest precedence.
func configPaths() []configPath {
	paths := []configPath{{SystemConfigPath, SourceSystem}}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".kgraph")
		// Ensure ~/.kgraph exists so `kgraph am init` has somewhere to write
		os.MkdirAll(dir, DefaultDirPermissions)
		paths = append(paths, configPath{filepath.Join(dir, "am.toml"), SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, configPath{project, SourceProject})
	}
	return paths
}

type configPath struct {
	path   string
	source ConfigSource
}

// findProjectConfig searches for am.toml by walking up the directory tree.
// Returns the path to the first one found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges the existing files among paths into v, later files
// overriding earlier ones, and returns which file set each key.
func mergeConfigFiles(v *viper.Viper, paths []configPath) map[string]SourceInfo {
	sources := make(map[string]SourceInfo)
	for _, cp := range paths {
		if _, err := os.Stat(cp.path); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(cp.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// Merged into the config layer, which environment variables override
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			sources[key] = SourceInfo{Source: cp.source, Path: cp.path}
		}
	}
	return sources
}

// CandidateFiles lists the config files consulted by Load, lowest precedence
// first, whether or not they exist.
func CandidateFiles() []SourceInfo {
	paths := configPaths()
	out := make([]SourceInfo, len(paths))
	for i, cp := range paths {
		out[i] = SourceInfo{Source: cp.source, Path: cp.path}
	}
	return out
}
