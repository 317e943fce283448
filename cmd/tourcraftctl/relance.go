package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tourcraft/tourcraft/internal/relance"
)

func newRelanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relance",
		Short: "Inspect the relance workflow",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List the relance types and their triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), relance.Types)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTRIGGER\tRESOLVED BY\tDELAY\tACTIVE")
			for _, t := range relance.Types {
				delay := t.DelayDays
				if delay <= 0 {
					delay = relance.DefaultDelayDays
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dd\t%v\n", t.ID, t.TriggerOn, strings.Join(t.ResolvedBy, ","), delay, !t.Future)
			}
			return tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective relance configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), cfg.Relance)
		},
	})
	return cmd
}
