package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newBootstrapCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Write the configured rounds, caps and grants to an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			g, err := svc.cfg.Genesis()
			if err != nil {
				return err
			}
			if err := svc.registry.Bootstrap(g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bootstrapped %d rounds into %s\n", len(g.Rounds), svc.cfg.LevelDB.Path)
			return nil
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the vesting clock, caps and custody totals as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			status, err := svc.registry.Status()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}
