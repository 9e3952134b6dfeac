package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/heartbeat-intel/edge-router/pkg/route"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
	"go.uber.org/zap"
)

func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "explain HOST PATH",
		Short:   "Show which origin would answer a request",
		Example: "  edge-router explain www.heartbeatintel.com '/exchange/publisher/acme?tab=lists'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRouting(zap.NewNop(), rootOpts.ConfigFile, upstream.Options{})
			if err != nil {
				return err
			}

			host, requestURI := args[0], args[1]
			if !strings.HasPrefix(requestURI, "/") {
				return fmt.Errorf("path %q must start with /", requestURI)
			}
			path, query, hasQuery := strings.Cut(requestURI, "?")
			path = route.NormalizePath(path)
			if hasQuery {
				path += "?" + query
			}

			decision := r.table.Decide(host, path)

			backend := r.origins.PassThrough()
			if decision.Action == route.ActionProxy {
				backend, err = r.origins.Get(decision.Origin)
				if err != nil {
					return fmt.Errorf("rule %q references origin %q: %w", decision.Rule, decision.Origin, err)
				}
			}

			upstreamHost := backend.Target.Host
			if backend.PreserveHost {
				upstreamHost = host
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "action: %s\n", decision.Action)
			fmt.Fprintf(out, "reason: %s\n", decision.Reason)
			if decision.Rule != "" {
				fmt.Fprintf(out, "rule: %s\n", decision.Rule)
			}
			fmt.Fprintf(out, "origin: %s\n", backend.Name)
			fmt.Fprintf(out, "upstream: %s%s\n", backend.Target, path)
			fmt.Fprintf(out, "host header: %s\n", upstreamHost)
			return nil
		},
	}
}
