package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{Driver: "sqlite", DSN: "funds.db"})

	assert.Equal(t, "/fundraise", cfg.BasePath)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "funds.db", cfg.DSN)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
}

func TestMergeConfigurations(t *testing.T) {
	yamlCfg := Config{BasePath: "/invest", PluginTimeout: time.Second}
	programmatic := Config{
		BasePath:       "/ignored",
		Driver:         "postgres",
		DSN:            "postgres://localhost/funds",
		DisableMigrate: true,
		EnableMetrics:  true,
		PluginTimeout:  time.Minute,
	}

	cfg := mergeConfigurations(yamlCfg, programmatic)

	assert.Equal(t, "/invest", cfg.BasePath)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "postgres://localhost/funds", cfg.DSN)
	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.DisableRoutes)
	assert.Equal(t, time.Second, cfg.PluginTimeout)
}

func TestMergeConfigurations_YAMLDriverWins(t *testing.T) {
	cfg := mergeConfigurations(
		Config{Driver: "mongo", DSN: "mongodb://db", MongoDatabase: "funds"},
		Config{Driver: "sqlite", DSN: "local.db"},
	)

	assert.Equal(t, "mongo", cfg.Driver)
	assert.Equal(t, "mongodb://db", cfg.DSN)
	assert.Equal(t, "funds", cfg.MongoDatabase)
}

func TestOptions(t *testing.T) {
	e := New(
		WithDriver("sqlite", "funds.db"),
		WithBasePath("/api"),
		WithMetrics(),
		WithAdminRoutes(),
		WithDisableMigrate(),
	)

	assert.Equal(t, "sqlite", e.config.Driver)
	assert.Equal(t, "funds.db", e.config.DSN)
	assert.Equal(t, "/api", e.config.BasePath)
	assert.True(t, e.config.EnableMetrics)
	assert.True(t, e.config.EnableAdminRoutes)
	assert.True(t, e.config.DisableMigrate)
	assert.Nil(t, e.Engine())
	assert.Nil(t, e.Handler())
}
