package extension

import "time"

// Config holds the fundraise extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.fundraise" or "fundraise" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for fundraise routes (default: "/fundraise").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Driver selects the store backend: memory, sqlite, postgres or mongo
	// (default: memory). Ignored when a store is set with WithStore.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN addresses the backend. A file path for sqlite, a connection
	// string for postgres, a URI for mongo.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// MongoDatabase is the database name used by the mongo backend.
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// EnableMetrics registers the Prometheus metrics plugin and serves
	// GET /metrics from the handler.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// EnableAdminRoutes mounts the reconcile endpoint.
	EnableAdminRoutes bool `json:"enable_admin_routes" mapstructure:"enable_admin_routes" yaml:"enable_admin_routes"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:      "/fundraise",
		Driver:        "memory",
		PluginTimeout: 5 * time.Second,
	}
}
