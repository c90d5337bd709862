package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is reachable and writable",
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

			res, err := b.repo.Probe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: read back %q in %s\n", res.Value, res.Latency)
			return nil
		},
	}
}
