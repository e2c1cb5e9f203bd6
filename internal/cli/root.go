// Package cli implements the fundraise command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/store/backend"
)

// RootOptions holds state shared by every subcommand.
type RootOptions struct {
	Config Config
	Logger *slog.Logger

	driver string
	dsn    string
}

// NewRootCommand creates the fundraise root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fundraise",
		Short: "Investment subscription engine",
		Long:  "Accepts investor subscriptions against project funding goals without ever over-committing a project.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("driver") {
				cfg.Driver = opts.driver
			}
			if cmd.Flags().Changed("dsn") {
				cfg.DSN = opts.dsn
			}

			logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			opts.Config = cfg
			opts.Logger = logger
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver: memory, sqlite, postgres or mongo (overrides FUNDRAISE_DRIVER)")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "store address (overrides FUNDRAISE_DSN)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))

	return cmd
}

// openEngine connects the configured store and builds an engine over it.
// The caller owns Start and Stop.
func (o *RootOptions) openEngine(ctx context.Context, extra ...fundraise.Option) (*fundraise.Engine, error) {
	s, err := backend.Open(ctx, backend.Config{
		Driver:   o.Config.Driver,
		DSN:      o.Config.DSN,
		Database: o.Config.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engineOpts := []fundraise.Option{
		fundraise.WithLogger(o.Logger),
		fundraise.WithPluginTimeout(o.Config.PluginTimeout),
	}
	engineOpts = append(engineOpts, extra...)

	return fundraise.New(s, engineOpts...), nil
}
