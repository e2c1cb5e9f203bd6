// Package extension provides the Forge extension adapter for fundraise.
//
// It implements the forge.Extension interface to integrate the funding
// engine into a Forge application with store selection, DI registration
// and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.fundraise" or
// "fundraise" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/api"
	"github.com/xraph/fundraise/observability"
	"github.com/xraph/fundraise/store"
	"github.com/xraph/fundraise/store/backend"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "fundraise"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Concurrency-safe investment subscription engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the funding engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *fundraise.Engine
	store      store.Store
	handler    *api.Handler
	router     http.Handler
	registry   *prometheus.Registry
	engineOpts []fundraise.Option
}

// New creates a new fundraise Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *fundraise.Engine { return e.engine }

// Handler returns the HTTP surface mounted under the configured base
// path, or nil when routes are disabled.
func (e *Extension) Handler() http.Handler { return e.router }

// Register implements [forge.Extension]. It loads configuration, opens the
// store, initializes the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(context.Background()); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*fundraise.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.handler == nil {
		return nil
	}

	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// init opens the configured store unless one was supplied, builds the
// engine and, unless routes are disabled, the handler and its router.
func (e *Extension) init(ctx context.Context) error {
	if e.store == nil {
		s, err := backend.Open(ctx, backend.Config{
			Driver:   e.config.Driver,
			DSN:      e.config.DSN,
			Database: e.config.MongoDatabase,
		})
		if err != nil {
			return fmt.Errorf("fundraise: open store: %w", err)
		}
		e.store = s
	}

	e.engine = fundraise.New(e.store, e.buildEngineOpts()...)

	if e.config.DisableRoutes {
		return nil
	}

	e.handler = api.NewHandler(e.engine, e.buildHandlerOpts()...)
	r := chi.NewRouter()
	r.Mount(e.config.BasePath, e.handler.Routes())
	e.router = r
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("fundraise: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("fundraise: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs fundraise.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []fundraise.Option {
	opts := make([]fundraise.Option, 0, len(e.engineOpts)+2)

	if e.config.PluginTimeout > 0 {
		opts = append(opts, fundraise.WithPluginTimeout(e.config.PluginTimeout))
	}

	if e.config.EnableMetrics {
		e.registry = prometheus.NewRegistry()
		factory := observability.NewPrometheusFactory(e.registry)
		opts = append(opts, fundraise.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

func (e *Extension) buildHandlerOpts() []api.Option {
	var opts []api.Option
	if e.registry != nil {
		opts = append(opts, api.WithMetrics(promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})))
	}
	if e.config.EnableAdminRoutes {
		opts = append(opts, api.WithAdminRoutes())
	}
	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("fundraise: configuration is required but not found in config files; " +
				"ensure 'extensions.fundraise' or 'fundraise' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("fundraise: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("driver", e.config.Driver),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("enable_metrics", e.config.EnableMetrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.fundraise", "fundraise"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("fundraise: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("fundraise: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}
	if programmaticConfig.EnableAdminRoutes {
		yamlConfig.EnableAdminRoutes = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Driver == "" && programmaticConfig.Driver != "" {
		yamlConfig.Driver = programmaticConfig.Driver
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.MongoDatabase == "" && programmaticConfig.MongoDatabase != "" {
		yamlConfig.MongoDatabase = programmaticConfig.MongoDatabase
	}

	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
