package extension

import (
	"time"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/identity"
	"github.com/xraph/fundraise/plugin"
	"github.com/xraph/fundraise/store"
)

// Option configures the fundraise Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over the
// configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithIdentity sets the profile directory the engine resolves investors
// and startups from.
func WithIdentity(d identity.Directory) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, fundraise.WithIdentity(d))
	}
}

// WithEngineOption passes a fundraise.Option through to the engine.
func WithEngineOption(opt fundraise.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, fundraise.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP handler from being provided.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for fundraise routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithDriver selects the store backend by name.
func WithDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.Driver = driver
		e.config.DSN = dsn
	}
}

// WithMongoDatabase sets the database used by the mongo backend.
func WithMongoDatabase(name string) Option {
	return func(e *Extension) { e.config.MongoDatabase = name }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithMetrics enables the Prometheus metrics plugin and endpoint.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithAdminRoutes mounts the reconcile endpoint.
func WithAdminRoutes() Option {
	return func(e *Extension) { e.config.EnableAdminRoutes = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
