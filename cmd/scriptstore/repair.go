package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suyash-sneo/scriptstore"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Reconcile the name index and scripts:all with the stored scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, rootOpts.Memory, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := b.repo.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r scriptstore.ReconcileReport) {
	fmt.Fprintf(w, "scripts: %d\n", r.Scripts)
	if len(r.Unreadable) > 0 {
		fmt.Fprintf(w, "unreadable (left in place): %s\n", strings.Join(r.Unreadable, ", "))
	}
	if !r.Changed() {
		fmt.Fprintln(w, "nothing to repair")
		return
	}
	if len(r.IndexRemoved) > 0 {
		fmt.Fprintf(w, "index removed: %s\n", strings.Join(r.IndexRemoved, ", "))
	}
	if len(r.IndexRestored) > 0 {
		fmt.Fprintf(w, "index restored: %s\n", strings.Join(r.IndexRestored, ", "))
	}
	fmt.Fprintf(w, "scripts:all +%d -%d\n", r.MembersAdded, r.MembersRemoved)
}
