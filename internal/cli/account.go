package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/wire"
)

// GuestCmd returns the guest command
func GuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Use hikelog without an account",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start or resume the guest session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AccountAdapter().StartGuest(cmd.Context())
			return err
		},
	})
	cmd.AddCommand(statusCmd())

	return cmd
}

// AuthCmd returns the auth command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Register, sign in and sign out",
	}

	cmd.AddCommand(authRegisterCmd())
	cmd.AddCommand(authSignInCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "signout",
		Short: "Sign out (falls back to the guest session if there is one)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AccountAdapter().SignOut(cmd.Context())
			return err
		},
	})
	cmd.AddCommand(statusCmd())

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AccountAdapter().Status(cmd.Context())
			return err
		},
	}
}

func authRegisterCmd() *cobra.Command {
	var password string
	var displayName string

	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Long: `Create an account and sign in.

If you have been using hikelog as a guest, your guest data stays on this
device until you run 'hikelog migrate run'.

Examples:
  hikelog auth register ada@example.com --password 'correct horse' --name Ada
  HIKELOG_PASSWORD='correct horse' hikelog auth register ada@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AccountAdapter().Register(cmd.Context(), primary.RegisterRequest{
				Email:       args[0],
				Password:    passwordOrEnv(password),
				DisplayName: displayName,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password (or $HIKELOG_PASSWORD)")
	cmd.Flags().StringVar(&displayName, "name", "", "display name")

	return cmd
}

func authSignInCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "signin [email]",
		Short: "Sign in to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AccountAdapter().SignIn(cmd.Context(), primary.SignInRequest{
				Email:    args[0],
				Password: passwordOrEnv(password),
			})
			return err
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password (or $HIKELOG_PASSWORD)")

	return cmd
}

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("HIKELOG_PASSWORD")
}
