package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/primary"
)

// ObservationAdapter is a thin adapter over ObservationService.
type ObservationAdapter struct {
	service primary.ObservationService
	out     io.Writer
}

// NewObservationAdapter creates a new ObservationAdapter with the given service.
func NewObservationAdapter(service primary.ObservationService, out io.Writer) *ObservationAdapter {
	return &ObservationAdapter{
		service: service,
		out:     out,
	}
}

// Record records an observation.
func (a *ObservationAdapter) Record(ctx context.Context, req primary.RecordObservationRequest) (*primary.Observation, error) {
	obs, err := result.Get(a.service.RecordObservation(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("failed to record observation: %w", err)
	}
	fmt.Fprintf(a.out, "%s Recorded %s on %s: %s\n", check(), obs.ID, obs.HikeID, obs.Species)
	return obs, nil
}

// List prints the observations of a hike.
func (a *ObservationAdapter) List(ctx context.Context, hikeID string) ([]*primary.Observation, error) {
	list, err := result.Get(a.service.ListObservations(ctx, hikeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintf(a.out, "No observations on %s.\n", hikeID)
		return list, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSPECIES\tPOSITION\tOBSERVED\tIMAGE")
	fmt.Fprintln(w, "--\t-------\t--------\t--------\t-----")
	for _, o := range list {
		image := ""
		if o.ImageURL != "" {
			image = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%.5f,%.5f\t%s\t%s\n", o.ID, o.Species, o.Latitude, o.Longitude, o.ObservedAt, image)
	}
	w.Flush()
	return list, nil
}

// Delete deletes an observation.
func (a *ObservationAdapter) Delete(ctx context.Context, observationID string) error {
	if _, err := result.Get(a.service.DeleteObservation(ctx, observationID)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Observation %s deleted\n", check(), observationID)
	return nil
}
