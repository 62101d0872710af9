package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/pslog"
)

// NewServeCommand builds the development chat server command.
func NewServeCommand(loader *parley.Loader) *cobra.Command {
	v := loader.Viper()
	v.SetDefault("server.listen", parley.DefaultListenAddr)
	v.SetDefault("server.base", parley.DefaultBasePath)
	v.SetDefault("server.data_dir", parley.DefaultConfigDir())
	v.SetDefault("server.users_file", parley.DefaultUsersPath())
	v.SetDefault("server.tls.mode", parley.DefaultTLSMode)
	v.SetDefault("server.tls.cache_dir", parley.DefaultTLSCacheDir())

	var bindErr error
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development chat API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bindErr != nil {
				return bindErr
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context()).With("component", "serve")
			return parley.Serve(cmd.Context(), parley.ServeOptions{
				Config:       cfg,
				SeedTestUser: seed,
				Logger:       logger,
			})
		},
	}

	flags := cmd.Flags()
	flags.String("listen", parley.DefaultListenAddr, "listen address")
	flags.String("data-dir", parley.DefaultConfigDir(), "path to data directory")
	flags.String("users-file", parley.DefaultUsersPath(), "path to users file")
	flags.String("base", parley.DefaultBasePath, "base path prefix for all HTTP routes")
	flags.String("tls-mode", parley.DefaultTLSMode, "tls mode: off, bundle, or acme")
	flags.StringArray("tls-bundle", nil, "path to PEM bundle file (repeatable)")
	flags.String("tls-cache-dir", parley.DefaultTLSCacheDir(), "tls cache directory for acme")
	flags.String("tls-hostname", "", "hostname for acme")
	flags.BoolVar(&seed, "seed-test-user", false, "create the test/test account and sample messages")

	bind := func(key, name string) {
		if bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			bindErr = err
		}
	}

	bind("server.listen", "listen")
	bind("server.data_dir", "data-dir")
	bind("server.users_file", "users-file")
	bind("server.base", "base")
	bind("server.tls.mode", "tls-mode")
	bind("server.tls.bundle", "tls-bundle")
	bind("server.tls.cache_dir", "tls-cache-dir")
	bind("server.tls.hostname", "tls-hostname")

	return cmd
}
