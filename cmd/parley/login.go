package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/parley"
)

// NewLoginCommand builds the login command.
func NewLoginCommand(loader *parley.Loader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an account and keep it alongside the others",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				fmt.Fprint(os.Stderr, "Email: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return err
				}
				email = strings.TrimSpace(line)
			}
			if email == "" {
				return fmt.Errorf("email is required")
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			cs, err := openAccounts(cmd, loader, "login", false)
			if err != nil {
				return err
			}
			defer cs.Close()

			st, err := cs.accounts.Login(cs.ctx, email, password)
			switch {
			case errors.Is(err, parley.ErrLoginCancelled):
				return fmt.Errorf("login cancelled")
			case errors.Is(err, parley.ErrAccountDisabled):
				return fmt.Errorf("account %s is disabled", email)
			case err != nil:
				return err
			}
			cs.logger.Info("login succeeded", "user_id", st.UserID)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayName(st), st.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email or username (prompted when empty)")
	return cmd
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

func displayName(st parley.AccountStatus) string {
	if st.Username != "" {
		return st.Username
	}
	return st.UserID
}
