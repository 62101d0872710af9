package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/parley"
)

// NewRootCommand builds the root CLI command.
func NewRootCommand(loader *parley.Loader) *cobra.Command {
	var configFile string
	var bindErr error

	v := loader.Viper()
	v.SetDefault("client.endpoint", parley.DefaultClientEndpoint)
	v.SetDefault("client.auth_file", parley.DefaultAuthPath())
	v.SetDefault("client.log_file", parley.DefaultLogPath())

	cmd := &cobra.Command{
		Use:           "parley",
		Short:         "Multi-account chat session manager and development chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				loader.SetConfigFile(configFile)
			}
			return bindErr
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.StringP("endpoint", "e", parley.DefaultClientEndpoint, "chat API endpoint (http/https base URL)")
	flags.String("auth-file", parley.DefaultAuthPath(), "path to the multi-account auth file")
	flags.String("log-file", parley.DefaultLogPath(), "path to the client log file")
	flags.String("device-name", "", "session label sent at login (default: detected from the host)")
	flags.StringArray("ca-file", nil, "extra PEM CA file to trust (repeatable)")

	bind := func(key, name string) {
		if bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			bindErr = err
		}
	}
	bind("client.endpoint", "endpoint")
	bind("client.auth_file", "auth-file")
	bind("client.log_file", "log-file")
	bind("client.device_name", "device-name")
	bind("client.ca_files", "ca-file")

	cmd.AddCommand(NewLoginCommand(loader))
	cmd.AddCommand(NewAccountsCommand(loader))
	cmd.AddCommand(NewSwitchCommand(loader))
	cmd.AddCommand(NewLogoutCommand(loader))
	cmd.AddCommand(NewWhoamiCommand(loader))
	cmd.AddCommand(NewMessagesCommand(loader))
	cmd.AddCommand(NewUsersCommand(loader))
	cmd.AddCommand(NewServeCommand(loader))
	cmd.AddCommand(NewBootstrapCommand())

	return cmd
}
