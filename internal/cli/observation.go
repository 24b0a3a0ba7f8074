package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/wire"
)

// ObservationCmd returns the observation command
func ObservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "observation",
		Aliases: []string{"obs"},
		Short:   "Record what you saw on a hike",
	}

	cmd.AddCommand(observationCreateCmd())
	cmd.AddCommand(observationListCmd())
	cmd.AddCommand(observationDeleteCmd())

	return cmd
}

func observationCreateCmd() *cobra.Command {
	var req primary.RecordObservationRequest

	cmd := &cobra.Command{
		Use:   "create [hike-id] [species]",
		Short: "Record an observation on a hike",
		Long: `Record an observation on a hike.

Examples:
  hikelog obs create HIKE-001 ibex --lat 46.55 --lon 7.98
  hikelog obs create HIKE-001 "golden eagle" --image ~/Pictures/eagle.jpg`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.HikeID = args[0]
			req.Species = strings.Join(args[1:], " ")
			_, err := wire.ObservationAdapter().Record(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().Float64Var(&req.Latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&req.Longitude, "lon", 0, "longitude")
	cmd.Flags().StringVarP(&req.Notes, "notes", "n", "", "free-form notes")
	cmd.Flags().StringVar(&req.ObservedAt, "at", "", "observation time (RFC 3339)")
	cmd.Flags().StringVar(&req.ImageURI, "image", "", "photo to attach (path or file:// URI)")

	return cmd
}

func observationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [hike-id]",
		Short: "List the observations of a hike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ObservationAdapter().List(cmd.Context(), args[0])
			return err
		},
	}
}

func observationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [observation-id]",
		Short: "Delete an observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ObservationAdapter().Delete(cmd.Context(), args[0])
		},
	}
}
