package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from FUNDRAISE_* variables.
type Config struct {
	Addr            string        `env:"FUNDRAISE_ADDR"             envDefault:":8080"`
	Driver          string        `env:"FUNDRAISE_DRIVER"           envDefault:"memory"`
	DSN             string        `env:"FUNDRAISE_DSN"`
	MongoDatabase   string        `env:"FUNDRAISE_MONGO_DATABASE"   envDefault:"fundraise"`
	SeedFile        string        `env:"FUNDRAISE_SEED_FILE"`
	LogLevel        string        `env:"FUNDRAISE_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"FUNDRAISE_LOG_FORMAT"       envDefault:"text"`
	PluginTimeout   time.Duration `env:"FUNDRAISE_PLUGIN_TIMEOUT"   envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"FUNDRAISE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AdminRoutes     bool          `env:"FUNDRAISE_ADMIN_ROUTES"`
	DisableMetrics  bool          `env:"FUNDRAISE_DISABLE_METRICS"`
	NotifyTopics    []string      `env:"FUNDRAISE_NOTIFY_TOPICS"    envSeparator:","`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
}
