package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/heartbeat-intel/edge-router/internal/logz"
	"gitlab.com/heartbeat-intel/edge-router/pkg/logging"
	"gitlab.com/heartbeat-intel/edge-router/pkg/metrics"
	"gitlab.com/heartbeat-intel/edge-router/pkg/server"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
)

type ServeOptions struct {
	Port int
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the edge router",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port on which to listen, overrides http.port")

	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *ServeOptions) error {
	logger, err := newLogger(rootOpts)
	if err != nil {
		return fmt.Errorf("could not create logger: %w", err)
	}
	defer func() {
		err = logger.Sync()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing logger %s\n", err)
		}
	}()

	m := metrics.New()

	r, err := loadRouting(logger, rootOpts.ConfigFile, upstream.Options{OnError: m.ObserveUpstreamError})
	if err != nil {
		logger.Error("Invalid configuration", logz.Error(err), logz.ConfigFile(rootOpts.ConfigFile))
		return err
	}

	httpConfig := r.config.HTTP
	if opts.Port != 0 {
		httpConfig.Port = opts.Port
	}

	s, err := server.New(&server.Options{
		HTTPConfig:        httpConfig,
		MetricsConfig:     r.config.Metrics,
		LoggingMiddleware: logging.NewMiddleware(logger),
		Logger:            logger,
		Table:             r.table,
		Origins:           r.origins,
		Metrics:           m,
	})
	if err != nil {
		logger.Error("Could not create server", logz.Error(err))
		return err
	}

	err = s.Start(ctx)
	if err != nil {
		logger.Error("Could not start server", logz.Error(err))
		return err
	}

	logger.Info("Edge router stopped")
	return nil
}
