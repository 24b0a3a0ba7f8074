package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/wire"
)

// HikeCmd returns the hike command
func HikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hike",
		Short: "Manage hikes",
		Long: `Create and manage hikes. As a guest they are stored on this device;
when signed in they are stored in your account.`,
	}

	cmd.AddCommand(hikeCreateCmd())
	cmd.AddCommand(hikeListCmd())
	cmd.AddCommand(hikeShowCmd())
	cmd.AddCommand(hikeSearchCmd())
	cmd.AddCommand(hikeUpdateCmd())
	cmd.AddCommand(hikeDeleteCmd())
	cmd.AddCommand(hikeImageCmd())
	cmd.AddCommand(hikeWatchCmd())

	return cmd
}

func hikeCreateCmd() *cobra.Command {
	var req primary.CreateHikeRequest

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Log a hike",
		Long: `Log a hike.

Examples:
  hikelog hike create "Ridge loop" --location Alps --distance 5200
  hikelog hike create "Lake walk" --started 2026-05-01T09:30:00Z --image ~/Pictures/lake.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = strings.Join(args, " ")
			_, err := wire.HikeAdapter().Create(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().StringVarP(&req.Location, "location", "l", "", "where the hike was")
	cmd.Flags().StringVarP(&req.Notes, "notes", "n", "", "free-form notes")
	cmd.Flags().Float64VarP(&req.DistanceMeters, "distance", "d", 0, "distance in meters")
	cmd.Flags().StringVar(&req.StartedAt, "started", "", "start time (RFC 3339)")
	cmd.Flags().StringVar(&req.ImageURI, "image", "", "photo to attach (path or file:// URI)")

	return cmd
}

func hikeListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your hikes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.HikeAdapter().List(cmd.Context(), limit)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many hikes")

	return cmd
}

func hikeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [hike-id]",
		Short: "Show a hike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.HikeAdapter().Show(cmd.Context(), args[0])
			return err
		},
	}
}

func hikeSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Find hikes by name or location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.HikeAdapter().Search(cmd.Context(), strings.Join(args, " "))
			return err
		},
	}
}

func hikeUpdateCmd() *cobra.Command {
	var req primary.UpdateHikeRequest

	cmd := &cobra.Command{
		Use:   "update [hike-id]",
		Short: "Change a hike's name, location or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.HikeID = args[0]
			_, err := wire.HikeAdapter().Update(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "new name")
	cmd.Flags().StringVarP(&req.Location, "location", "l", "", "new location")
	cmd.Flags().StringVarP(&req.Notes, "notes", "n", "", "new notes")

	return cmd
}

func hikeDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [hike-id]",
		Short: "Delete a hike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.HikeAdapter().Delete(cmd.Context(), args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "also delete the hike's observations")

	return cmd
}

func hikeImageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "image [hike-id] [path]",
		Short: "Attach a photo to a hike",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.HikeAdapter().AttachImage(cmd.Context(), args[0], args[1])
			return err
		},
	}
}

func hikeWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print your hikes whenever they change (Ctrl-C to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.HikeAdapter().Watch(cmd.Context())
		},
	}
}
