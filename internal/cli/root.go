package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/heartbeat-intel/edge-router/pkg/config"
	"gitlab.com/heartbeat-intel/edge-router/pkg/route"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
	"go.uber.org/zap"
)

const configEnv = "EDGE_ROUTER_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile  string
	Development bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "edge-router",
		Short:        "Routes marketing site traffic between the static host, the SSR host and the original origin",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, &ServeOptions{})
		},
	}

	defaultConfig := os.Getenv(configEnv)
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", defaultConfig, fmt.Sprintf("The config file to use (env %s)", configEnv))
	cmd.PersistentFlags().BoolVar(&opts.Development, "dev", false, "Human readable debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))

	return cmd
}

func newLogger(opts *RootOptions) (*zap.Logger, error) {
	if opts.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// routing is everything built from a config file.
type routing struct {
	config  *config.Config
	table   *route.Table
	origins *upstream.Set
}

func loadRouting(logger *zap.Logger, filename string, originOpts upstream.Options) (*routing, error) {
	cfg, err := config.LoadConfig(filename)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	table, err := route.NewTable(cfg.MarketingHosts, cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("could not build routing table: %w", err)
	}

	originOpts.XForwarded = cfg.HTTP.XForwarded
	origins, err := upstream.NewSet(logger, cfg.Origins, cfg.PassThrough, originOpts)
	if err != nil {
		return nil, fmt.Errorf("could not configure origins: %w", err)
	}

	return &routing{config: cfg, table: table, origins: origins}, nil
}
