package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/wire"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var guestID string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move guest data into your account",
		Long: `Move the hikes, observations and photos you logged as a guest into the
account you are signed in to.

Records that fail stay on this device and are retried by the next run.
Nothing is deleted locally until you run 'hikelog migrate cleanup'.`,
	}

	cmd.PersistentFlags().StringVar(&guestID, "guest", "", "guest ID to migrate (default: this device's guest)")

	cmd.AddCommand(migrateCheckCmd(&guestID))
	cmd.AddCommand(migrateRunCmd(&guestID))
	cmd.AddCommand(migrateCleanupCmd(&guestID))

	return cmd
}

func migrateCheckCmd(guestID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show what a migration would move",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveGuestID(cmd.Context(), *guestID)
			if err != nil {
				return err
			}
			_, err = wire.MigrationAdapter().Check(cmd.Context(), id)
			return err
		},
	}
}

func migrateRunCmd(guestID *string) *cobra.Command {
	var retries int
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate guest data into the signed-in account",
		Long: `Migrate guest data into the signed-in account.

A run that stops on a connection problem can be started again; records
already moved are not moved twice.

Examples:
  hikelog migrate run
  hikelog migrate run --retries 3 --cleanup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			status, err := wire.Get().Accounts.Status(ctx)
			if err != nil {
				return err
			}
			authenticated, ok := status.State.(auth.Authenticated)
			if !ok {
				return apperr.Validation("migrate.run", "sign in or register before migrating guest data")
			}
			id, err := resolveGuestID(ctx, *guestID)
			if err != nil {
				return err
			}

			adapter := wire.MigrationAdapter()
			policy := wire.Get().Config.Retry.Policy()
			for attempt := 0; ; attempt++ {
				outcome, err := adapter.Run(ctx, id, authenticated.User.ID)
				if err != nil {
					return err
				}
				if outcome.Result != nil {
					if cleanup && outcome.Result.IsSuccessful() {
						return adapter.Cleanup(ctx, id)
					}
					if !outcome.Result.IsSuccessful() {
						return fmt.Errorf("%d items were not migrated", outcome.Result.FailedItems)
					}
					return nil
				}
				if !outcome.Retryable() || attempt >= retries {
					return fmt.Errorf("migration stopped: %s", outcome.Aborted.Message)
				}

				wait := policy.Delay(attempt)
				logging.Ctx(ctx).Info().Int("attempt", attempt+1).Dur("wait", wait).Msg("restarting migration")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "start again this many times after a retryable stop")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "delete migrated local data when everything moved")

	return cmd
}

func migrateCleanupCmd(guestID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete guest data that was migrated from this device",
		Long: `Delete guest data that was migrated from this device.
Data that has not been migrated is never deleted. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveGuestID(cmd.Context(), *guestID)
			if err != nil {
				return err
			}
			return wire.MigrationAdapter().Cleanup(cmd.Context(), id)
		},
	}
}

// resolveGuestID picks the explicit guest, else the one waiting for
// migration, else this device's guest.
func resolveGuestID(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	status, err := wire.Get().Accounts.Status(ctx)
	if err != nil {
		return "", err
	}
	if status.PendingMigrationGuestID != "" {
		return status.PendingMigrationGuestID, nil
	}
	if status.GuestID != "" {
		return status.GuestID, nil
	}
	return "", apperr.Validation("migrate", "no guest data on this device")
}
