// Package am loads the kgraph configuration ("am" as in "I am configured
// like this") from TOML files and KGRAPH_ environment variables.
package am

import "os"

// Config represents the kgraph configuration
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database" toml:"database"`
	Store       StoreConfig       `mapstructure:"store" toml:"store"`
	Query       QueryConfig       `mapstructure:"query" toml:"query"`
	Lifecycle   LifecycleConfig   `mapstructure:"lifecycle" toml:"lifecycle"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" toml:"maintenance"`
	Log         LogConfig         `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite space files
type DatabaseConfig struct {
	Path          string `mapstructure:"path" toml:"path"`                       // Directory holding one database file per space, or ":memory:"
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" toml:"busy_timeout_ms"` // How long a writer waits on a locked database (default: 5000)
}

// StoreConfig configures the term dictionary and quad index
type StoreConfig struct {
	TermCacheSize int `mapstructure:"term_cache_size" toml:"term_cache_size"` // Entries per direction in the term LRU (default: 4096)
}

// QueryConfig configures filtered queries
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit" toml:"default_limit"` // Page size when the caller asks for 0 (default: 100)
	MaxLimit     int `mapstructure:"max_limit" toml:"max_limit"`         // Upper bound on any page (default: 10000)
}

// LifecycleConfig configures structured-object writes
type LifecycleConfig struct {
	ApplyBatchSize int    `mapstructure:"apply_batch_size" toml:"apply_batch_size"` // Statements per insert batch (default: 500)
	Namespace      string `mapstructure:"namespace" toml:"namespace"`               // Vocabulary namespace of classes and predicates
}

// MaintenanceConfig configures audits
type MaintenanceConfig struct {
	EntitiesPerSecond float64 `mapstructure:"entities_per_second" toml:"entities_per_second"` // Audit-all rate, 0 = unlimited
	Burst             int     `mapstructure:"burst" toml:"burst"`
}

// LogConfig configures the process logger
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// DefaultDirPermissions is used for ~/.kgraph and the spaces directory.
const DefaultDirPermissions os.FileMode = 0750

// EnvPrefix prefixes every environment override, e.g. KGRAPH_QUERY_MAX_LIMIT.
const EnvPrefix = "KGRAPH"
