package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/pslog"
)

// NewBootstrapCommand builds the bootstrap command.
func NewBootstrapCommand() *cobra.Command {
	var path string
	var endpoint string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Write a default config and seed the development users file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := pslog.Ctx(cmd.Context()).With("component", "bootstrap")
			cfg := parley.DefaultConfig()
			if endpoint != "" {
				cfg.Client.Endpoint = endpoint
			}
			res, err := parley.Bootstrap(cmd.Context(), cfg, path, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", res.ConfigPath)
			if res.SeededUser != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "users: %s (seeded %q)\n", res.UsersFile, res.SeededUser)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", parley.DefaultConfigPath(), "config file to write")
	cmd.Flags().StringVar(&endpoint, "client-endpoint", "", "client endpoint to record (default: the local dev server)")
	return cmd
}
