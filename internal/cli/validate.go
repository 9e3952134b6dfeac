package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
	"go.uber.org/zap"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and print the rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRouting(zap.NewNop(), rootOpts.ConfigFile, upstream.Options{})
			if err != nil {
				return err
			}

			printRouting(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func printRouting(out io.Writer, r *routing) {
	hosts := r.table.MarketingHosts()
	if len(hosts) == 0 {
		fmt.Fprintln(out, "marketing hosts: none, every host is routed by rules")
	} else {
		fmt.Fprintf(out, "marketing hosts: %s\n", strings.Join(hosts, ", "))
	}
	fmt.Fprintf(out, "passthrough: %s\n", r.origins.PassThrough().Target)

	fmt.Fprintln(out, "origins:")
	for _, name := range r.origins.Names() {
		b, _ := r.origins.Get(name)
		fmt.Fprintf(out, "  %s %s\n", name, b.Target)
	}

	fmt.Fprintln(out, "rules:")
	for i, rule := range r.table.Rules() {
		fmt.Fprintf(out, "  %d. %s %s %s -> %s (priority %d)", i+1, rule.Name, rule.Match, rule.Path, rule.Origin, rule.EffectivePriority())
		if len(rule.Hosts) > 0 {
			fmt.Fprintf(out, " hosts: %s", strings.Join(rule.Hosts, ", "))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "configuration is valid")
}
