package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/api"
	identitymem "github.com/xraph/fundraise/identity/memory"
	"github.com/xraph/fundraise/internal/seed"
	"github.com/xraph/fundraise/notifyhook"
	"github.com/xraph/fundraise/observability"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the subscription API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				rootOpts.Config.Addr = addr
			}
			return runServe(cmd.Context(), rootOpts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides FUNDRAISE_ADDR)")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, logger := opts.Config, opts.Logger

	directory := identitymem.New()
	engineOpts := []fundraise.Option{
		fundraise.WithIdentity(directory),
		fundraise.WithPlugin(newNotifyHook(logger, cfg.NotifyTopics)),
	}
	handlerOpts := []api.Option{api.WithLogger(logger)}

	if !cfg.DisableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
		engineOpts = append(engineOpts, fundraise.WithPlugin(metrics))
		handlerOpts = append(handlerOpts, api.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	if cfg.AdminRoutes {
		handlerOpts = append(handlerOpts, api.WithAdminRoutes())
	}

	engine, err := opts.openEngine(ctx, engineOpts...)
	if err != nil {
		return err
	}
	defer engine.Stop() //nolint:errcheck // best effort on exit

	if err := engine.Start(ctx); err != nil {
		return err
	}

	if cfg.SeedFile != "" {
		fixture, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		n, err := fixture.Apply(ctx, directory, engine)
		if err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seed applied",
			"file", cfg.SeedFile,
			"investors", len(fixture.Investors),
			"startups", len(fixture.Startups),
			"projects_registered", n,
		)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewHandler(engine, handlerOpts...).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "driver", cfg.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newNotifyHook logs notifications. A deployment with a real notification
// subsystem replaces the notifier.
func newNotifyHook(logger *slog.Logger, topics []string) *notifyhook.Extension {
	notifier := notifyhook.NotifierFunc(func(ctx context.Context, n *notifyhook.Notification) error {
		logger.InfoContext(ctx, "notification",
			"topic", n.Topic,
			"audience", n.Audience,
			"priority", n.Priority,
			"project_id", n.ProjectID,
			"subject_id", n.SubjectID,
		)
		return nil
	})

	opts := []notifyhook.Option{notifyhook.WithLogger(logger)}
	if len(topics) > 0 {
		opts = append(opts, notifyhook.WithEnabledTopics(topics...))
	}
	return notifyhook.New(notifier, opts...)
}
