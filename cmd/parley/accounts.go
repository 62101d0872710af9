package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/prettyx"
)

// NewAccountsCommand lists stored accounts.
func NewAccountsCommand(loader *parley.Loader) *cobra.Command {
	var asJSON bool
	var check bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List signed-in accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := openAccounts(cmd, loader, "accounts", check)
			if err != nil {
				return err
			}
			defer cs.Close()

			list := cs.accounts.List()
			if asJSON {
				data, err := json.Marshal(list)
				if err != nil {
					return err
				}
				return prettyx.PrettyTo(cmd.OutOrStdout(), data, prettyx.DefaultOptions)
			}
			printAccounts(cmd.OutOrStdout(), list, check)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "connect every account and report which are online")
	return cmd
}

func printAccounts(w io.Writer, list []parley.AccountStatus, checked bool) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No accounts. Run `parley login` to add one.")
		return
	}
	active := color.New(color.FgGreen, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, st := range list {
		marker := " "
		name := displayName(st)
		if st.Active {
			marker = active("*")
			name = active(name)
		}
		state := ""
		if checked {
			state = dim("offline")
			if st.Online {
				state = "online"
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, name, st.UserID, st.Session, state)
	}
	_ = tw.Flush()
}

// NewSwitchCommand selects the active account.
func NewSwitchCommand(loader *parley.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <account>",
		Short: "Make an account active (user id or username)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openAccounts(cmd, loader, "switch", false)
			if err != nil {
				return err
			}
			defer cs.Close()
			st, err := cs.accounts.Switch(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active account: %s (%s)\n", displayName(st), st.UserID)
			return nil
		},
	}
}

// NewLogoutCommand signs an account out.
func NewLogoutCommand(loader *parley.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [account]",
		Short: "Sign out an account (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openAccounts(cmd, loader, "logout", false)
			if err != nil {
				return err
			}
			defer cs.Close()
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			} else {
				for _, st := range cs.accounts.List() {
					if st.Active {
						ref = st.UserID
					}
				}
				if ref == "" {
					return fmt.Errorf("no active account")
				}
			}
			if err := cs.accounts.Logout(cs.ctx, ref); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", ref)
			return nil
		},
	}
}

// NewWhoamiCommand shows the active account as the server sees it.
func NewWhoamiCommand(loader *parley.Loader) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the active account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := openAccounts(cmd, loader, "whoami", true)
			if err != nil {
				return err
			}
			defer cs.Close()
			user, err := cs.accounts.Self(cs.ctx)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.Marshal(user)
				if err != nil {
					return err
				}
				return prettyx.PrettyTo(cmd.OutOrStdout(), data, prettyx.DefaultOptions)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
