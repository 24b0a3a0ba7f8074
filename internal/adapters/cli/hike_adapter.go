package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/primary"
)

// HikeAdapter is a thin adapter that translates CLI operations to HikeService calls.
type HikeAdapter struct {
	service primary.HikeService
	out     io.Writer
}

// NewHikeAdapter creates a new HikeAdapter with the given service.
func NewHikeAdapter(service primary.HikeService, out io.Writer) *HikeAdapter {
	return &HikeAdapter{
		service: service,
		out:     out,
	}
}

// Create creates a hike and prints its ID.
func (a *HikeAdapter) Create(ctx context.Context, req primary.CreateHikeRequest) (*primary.Hike, error) {
	hike, err := result.Get(a.service.CreateHike(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("failed to create hike: %w", err)
	}

	fmt.Fprintf(a.out, "%s Created hike %s: %s (%s)\n", check(), hike.ID, hike.Name, hike.Backend)
	if hike.ImageURL != "" {
		fmt.Fprintf(a.out, "  Image: %s\n", hike.ImageURL)
	}
	return hike, nil
}

// List lists the current owner's hikes.
func (a *HikeAdapter) List(ctx context.Context, limit int) ([]*primary.Hike, error) {
	hikes, err := result.Get(a.service.ListHikes(ctx, primary.HikeFilters{Limit: limit}))
	if err != nil {
		return nil, fmt.Errorf("failed to list hikes: %w", err)
	}

	if len(hikes) == 0 {
		fmt.Fprintln(a.out, "No hikes found.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Log your first hike:")
		fmt.Fprintln(a.out, "  hikelog hike create \"Ridge loop\" --location Alps --distance 5200")
		return hikes, nil
	}

	a.table(hikes)
	return hikes, nil
}

// Search prints the hikes whose name or location matches query.
func (a *HikeAdapter) Search(ctx context.Context, query string) ([]*primary.Hike, error) {
	hikes, err := result.Get(a.service.SearchHikes(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("failed to search hikes: %w", err)
	}
	if len(hikes) == 0 {
		fmt.Fprintf(a.out, "No hikes match %q.\n", query)
		return hikes, nil
	}
	a.table(hikes)
	return hikes, nil
}

func (a *HikeAdapter) table(hikes []*primary.Hike) {
	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tDISTANCE\tSTARTED")
	fmt.Fprintln(w, "--\t----\t--------\t--------\t-------")
	for _, h := range hikes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.ID, h.Name, h.Location, formatDistance(h.DistanceMeters), h.StartedAt)
	}
	w.Flush()
}

// Show displays details for a single hike.
func (a *HikeAdapter) Show(ctx context.Context, hikeID string) (*primary.Hike, error) {
	hike, err := result.Get(a.service.GetHike(ctx, hikeID))
	if err != nil {
		return nil, fmt.Errorf("failed to get hike: %w", err)
	}

	fmt.Fprintf(a.out, "\nHike: %s\n", hike.ID)
	fmt.Fprintf(a.out, "Name:     %s\n", hike.Name)
	fmt.Fprintf(a.out, "Location: %s\n", hike.Location)
	fmt.Fprintf(a.out, "Distance: %s\n", formatDistance(hike.DistanceMeters))
	if hike.StartedAt != "" {
		fmt.Fprintf(a.out, "Started:  %s\n", hike.StartedAt)
	}
	if hike.ImageURL != "" {
		fmt.Fprintf(a.out, "Image:    %s\n", hike.ImageURL)
	}
	if hike.Notes != "" {
		fmt.Fprintf(a.out, "Notes:    %s\n", hike.Notes)
	}
	fmt.Fprintf(a.out, "Stored:   %s\n", hike.Backend)
	fmt.Fprintln(a.out)
	return hike, nil
}

// Update changes the given fields of a hike.
func (a *HikeAdapter) Update(ctx context.Context, req primary.UpdateHikeRequest) (*primary.Hike, error) {
	hike, err := result.Get(a.service.UpdateHike(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("failed to update hike: %w", err)
	}
	fmt.Fprintf(a.out, "%s Hike %s updated\n", check(), hike.ID)
	return hike, nil
}

// Delete deletes a hike.
func (a *HikeAdapter) Delete(ctx context.Context, hikeID string, force bool) error {
	if _, err := result.Get(a.service.DeleteHike(ctx, primary.DeleteHikeRequest{HikeID: hikeID, Force: force})); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Hike %s deleted\n", check(), hikeID)
	return nil
}

// AttachImage attaches a photo to a hike.
func (a *HikeAdapter) AttachImage(ctx context.Context, hikeID, imageURI string) (*primary.Hike, error) {
	hike, err := result.Get(a.service.AttachImage(ctx, primary.AttachImageRequest{HikeID: hikeID, ImageURI: imageURI}))
	if err != nil {
		return nil, fmt.Errorf("failed to attach image: %w", err)
	}
	fmt.Fprintf(a.out, "%s Image attached to %s\n", check(), hike.ID)
	fmt.Fprintf(a.out, "  %s\n", hike.ImageURL)
	return hike, nil
}

// Watch prints the hike list each time it changes, until ctx is done.
func (a *HikeAdapter) Watch(ctx context.Context) error {
	sub, err := a.service.WatchHikes(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-sub.C():
			if !ok {
				return nil
			}
			hikes, err := result.Get(r)
			if err != nil {
				fmt.Fprintf(a.out, "%s %v\n", color.New(color.FgRed).Sprint("!"), err)
				continue
			}
			fmt.Fprintf(a.out, "-- %d hikes --\n", len(hikes))
			if len(hikes) > 0 {
				a.table(hikes)
			}
		}
	}
}

func formatDistance(meters float64) string {
	if meters <= 0 {
		return "-"
	}
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func check() string {
	return color.New(color.FgGreen).Sprint("✓")
}
