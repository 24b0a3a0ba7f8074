package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/wire"
)

// ImagesCmd returns the images command
func ImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage photos stored on this device",
	}

	cmd.AddCommand(imagesCleanupCmd())

	return cmd
}

func imagesCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete local copies of photos that are already in your account",
		Long: `Delete local copies of photos that were uploaded to your account.
Photos that have not been uploaded are never deleted.

Examples:
  hikelog images cleanup
  hikelog images cleanup --older-than 72h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = wire.Get().Config.Cleanup.Retention
			}
			_, err := wire.MaintenanceAdapter().CleanupImages(cmd.Context(), olderThan)
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention (default: cleanup.retention from config)")

	return cmd
}

// ActivityCmd returns the activity command
func ActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent changes made on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.MaintenanceAdapter().Activity(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")

	return cmd
}
