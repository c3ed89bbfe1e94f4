package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xab-mack/smartaudit/internal/plugins"
	"github.com/xab-mack/smartaudit/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Inspect the rule catalog and detectors"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSEVERITY\tSCOPE\tKIND")
			for _, r := range rules.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, r.Severity, r.Scope, r.Kind)
			}
			return tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "detectors",
		Short: "List built-in detectors by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := plugins.NewRegistry()
			reg.RegisterBuiltin(plugins.Options{})
			for _, d := range reg.Detectors() {
				m := d.Meta()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Category, m.Title)
			}
			return nil
		},
	})
	return cmd
}
