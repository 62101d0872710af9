package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/parley/internal/devserver"
	"pkt.systems/prettyx"
)

// NewUsersCommand manages the development server's users file. A running
// server picks up changes within a second.
func NewUsersCommand(loader *parley.Loader) *cobra.Command {
	var usersFile string

	v := loader.Viper()
	v.SetDefault("server.users_file", parley.DefaultUsersPath())
	v.SetDefault("server.data_dir", parley.DefaultConfigDir())

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage development server users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&usersFile, "users-file", parley.DefaultUsersPath(), "path to users file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			users := store.List()
			resp := make([]userSummary, 0, len(users))
			for _, user := range users {
				resp = append(resp, userSummary{
					ID:        user.ID,
					Username:  user.Username,
					Email:     user.Email,
					MFA:       user.MFAEnabled(),
					Disabled:  user.Disabled,
					CreatedAt: user.CreatedAt,
				})
			}
			data, err := json.Marshal(resp)
			if err != nil {
				return err
			}
			return prettyx.PrettyTo(cmd.OutOrStdout(), data, prettyx.DefaultOptions)
		},
	}

	var addPrompt bool
	var addEmail string
	var addMFA bool
	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			in := devserver.NewUser{Username: args[0], Email: addEmail, MFA: addMFA}
			if addPrompt {
				value, err := promptPassword("Password: ")
				if err != nil {
					return err
				}
				in.Password = value
			}
			resp, err := devserver.CreateUser(store, in, time.Now().UTC())
			if err != nil {
				return formatUserError(err)
			}
			if err := store.Save(path); err != nil {
				return err
			}
			printUserCreate(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	addCmd.Flags().BoolVar(&addPrompt, "prompt", false, "prompt for password")
	addCmd.Flags().StringVar(&addEmail, "email", "", "login email")
	addCmd.Flags().BoolVar(&addMFA, "mfa", false, "enroll a TOTP secret and recovery codes")

	var chpasswdPrompt bool
	chpasswdCmd := &cobra.Command{
		Use:   "chpasswd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			password := ""
			if chpasswdPrompt {
				value, err := promptPassword("Password: ")
				if err != nil {
					return err
				}
				password = value
			}
			resp, err := devserver.ChangeUserPassword(store, args[0], password)
			if err != nil {
				return formatUserError(err)
			}
			if err := store.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password: %s\n", resp.Password)
			return nil
		},
	}
	chpasswdCmd.Flags().BoolVar(&chpasswdPrompt, "prompt", false, "prompt for password")

	rotateCmd := &cobra.Command{
		Use:   "rotate-totp <username>",
		Short: "Rotate a user's TOTP secret and recovery codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			resp, err := devserver.RotateUserTOTP(store, args[0])
			if err != nil {
				return formatUserError(err)
			}
			if err := store.Save(path); err != nil {
				return err
			}
			printUserTOTP(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	setDisabled := func(disabled bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, path, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			user, err := devserver.SetUserDisabled(store, args[0], disabled)
			if err != nil {
				return formatUserError(err)
			}
			if err := store.Save(path); err != nil {
				return err
			}
			if disabled {
				if err := revokeStoredSessions(loader, user.ID); err != nil {
					return err
				}
			}
			state := "enabled"
			if disabled {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s %s\n", user.Username, state)
			return nil
		}
	}
	disableCmd := &cobra.Command{
		Use:   "disable <username>",
		Short: "Disable a user and drop their sessions",
		Args:  cobra.ExactArgs(1),
		RunE:  setDisabled(true),
	}
	enableCmd := &cobra.Command{
		Use:   "enable <username>",
		Short: "Re-enable a disabled user",
		Args:  cobra.ExactArgs(1),
		RunE:  setDisabled(false),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := loadUserStore(cmd, loader, usersFile)
			if err != nil {
				return err
			}
			user, err := devserver.DeleteUser(store, args[0])
			if err != nil {
				return formatUserError(err)
			}
			if err := store.Save(path); err != nil {
				return err
			}
			if err := revokeStoredSessions(loader, user.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "user deleted")
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(addCmd)
	cmd.AddCommand(chpasswdCmd)
	cmd.AddCommand(rotateCmd)
	cmd.AddCommand(disableCmd)
	cmd.AddCommand(enableCmd)
	cmd.AddCommand(deleteCmd)

	return cmd
}

type userSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	MFA       bool      `json:"mfa"`
	Disabled  bool      `json:"disabled,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func loadUserStore(cmd *cobra.Command, loader *parley.Loader, usersFileFlag string) (*devserver.UserStore, string, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}
	usersFile := usersFileFlag
	if !cmd.Flags().Changed("users-file") {
		usersFile = cfg.Server.UsersFile
	}
	usersFile = strings.TrimSpace(usersFile)
	if usersFile == "" {
		return nil, "", fmt.Errorf("users file is required")
	}
	store, err := devserver.LoadUserStore(usersFile)
	if err != nil {
		return nil, "", err
	}
	return store, usersFile, nil
}

// revokeStoredSessions drops the user's sessions from the persisted server
// state. A running server keeps its in-memory copy until restarted.
func revokeStoredSessions(loader *parley.Loader, userID string) error {
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	stateDir := strings.TrimSpace(cfg.Server.DataDir)
	if stateDir == "" {
		return nil
	}
	state, err := devserver.LoadStore(stateDir)
	if err != nil {
		return err
	}
	if len(state.RevokeSessionsForUser(userID)) == 0 {
		return nil
	}
	return state.Save(stateDir)
}

func formatUserError(err error) error {
	switch {
	case errors.Is(err, devserver.ErrUserExists):
		return fmt.Errorf("user already exists")
	case errors.Is(err, devserver.ErrUserNotFound):
		return fmt.Errorf("user not found")
	case errors.Is(err, devserver.ErrUsernameRequired):
		return fmt.Errorf("username is required")
	default:
		return err
	}
}

func printUserCreate(w io.Writer, resp devserver.UserCreateResult) {
	_, _ = fmt.Fprintf(w, "username: %s\n", resp.User.Username)
	_, _ = fmt.Fprintf(w, "user_id: %s\n", resp.User.ID)
	_, _ = fmt.Fprintf(w, "password: %s\n", resp.Password)
	printTOTP(w, resp.TOTPSecret, resp.TOTPURL, resp.RecoveryCodes)
}

func printUserTOTP(w io.Writer, resp devserver.UserTOTPResult) {
	_, _ = fmt.Fprintf(w, "username: %s\n", resp.User.Username)
	printTOTP(w, resp.TOTPSecret, resp.TOTPURL, resp.RecoveryCodes)
}

func printTOTP(w io.Writer, secret, url string, recovery []string) {
	if secret != "" {
		_, _ = fmt.Fprintf(w, "totp_secret: %s\n", secret)
	}
	if len(recovery) > 0 {
		_, _ = fmt.Fprintf(w, "recovery_codes: %s\n", strings.Join(recovery, " "))
	}
	if strings.TrimSpace(url) == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "otpauth_url: %s\n", url)
	_, _ = fmt.Fprintln(w, "totp_qr:")
	qrterminal.GenerateHalfBlock(url, qrterminal.L, w)
}
