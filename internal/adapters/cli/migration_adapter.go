package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/primary"
)

// MigrationAdapter renders the guest migration for the terminal.
type MigrationAdapter struct {
	service primary.MigrationService
	out     io.Writer
}

// NewMigrationAdapter creates a new MigrationAdapter with the given service.
func NewMigrationAdapter(service primary.MigrationService, out io.Writer) *MigrationAdapter {
	return &MigrationAdapter{
		service: service,
		out:     out,
	}
}

// RunOutcome is how a migration run ended.
type RunOutcome struct {
	// Result is set when the run completed, possibly with failed items.
	Result *migration.Result
	// Aborted is set when the run stopped early.
	Aborted *migration.Error
}

// Retryable reports whether running again may succeed.
func (o RunOutcome) Retryable() bool {
	return o.Aborted != nil && o.Aborted.Retryable
}

// Check prints what a migration would move.
func (a *MigrationAdapter) Check(ctx context.Context, guestID string) (migration.Stats, error) {
	stats, err := result.Get(a.service.CheckMigrationNeeded(ctx, guestID))
	if err != nil {
		return stats, fmt.Errorf("failed to check migration: %w", err)
	}

	if stats.IsEmpty() {
		fmt.Fprintf(a.out, "Nothing to migrate for %s.\n", guestID)
		return stats, nil
	}
	fmt.Fprintf(a.out, "Guest %s has:\n", guestID)
	fmt.Fprintf(a.out, "  Hikes:        %d\n", stats.TotalHikes)
	fmt.Fprintf(a.out, "  Observations: %d\n", stats.TotalObservations)
	fmt.Fprintf(a.out, "  Images:       %d\n", stats.TotalImages)
	fmt.Fprintf(a.out, "  About %s to transfer\n", humanize.Bytes(uint64(max(stats.EstimatedSizeBytes, 0))))
	return stats, nil
}

// Run migrates a guest's data and prints every progress event. It returns
// once the terminal event arrives.
func (a *MigrationAdapter) Run(ctx context.Context, guestID, userID string) (RunOutcome, error) {
	events, err := a.service.MigrateGuestData(ctx, guestID, userID)
	if err != nil {
		return RunOutcome{}, err
	}

	var outcome RunOutcome
	for ev := range events {
		switch e := ev.(type) {
		case migration.Initializing:
			fmt.Fprintf(a.out, "Migrating %d hikes, %d observations, %d images\n",
				e.Stats.TotalHikes, e.Stats.TotalObservations, e.Stats.TotalImages)
		case migration.MigratingHikes:
			fmt.Fprintf(a.out, "  [hikes %d/%d] %s\n", e.Current, e.Total, e.HikeName)
		case migration.MigratingObservations:
			fmt.Fprintf(a.out, "  [observations %d/%d] on %s\n", e.Current, e.Total, e.HikeID)
		case migration.UploadingImages:
			fmt.Fprintf(a.out, "  [images %d/%d] %3.0f%%\n", e.Current, e.Total, e.Fraction*100)
		case migration.Complete:
			res := e.Result
			outcome.Result = &res
			a.printResult(res)
		case migration.Error:
			aborted := e
			outcome.Aborted = &aborted
			fmt.Fprintf(a.out, "%s Migration stopped: %s\n", color.New(color.FgRed).Sprint("✗"), e.Message)
			if e.Retryable {
				fmt.Fprintln(a.out, "  Nothing already moved is lost. Run again: hikelog migrate run")
			}
		}
	}
	return outcome, nil
}

func (a *MigrationAdapter) printResult(res migration.Result) {
	icon := check()
	if !res.IsSuccessful() {
		icon = color.New(color.FgYellow).Sprint("!")
	}
	fmt.Fprintf(a.out, "%s Migration %s: %d hikes, %d observations, %d images moved",
		icon, res.Outcome(), res.MigratedHikes, res.MigratedObservations, res.UploadedImages)
	if res.FailedItems > 0 {
		fmt.Fprintf(a.out, ", %d failed", res.FailedItems)
	}
	fmt.Fprintln(a.out)
	for _, msg := range res.Errors {
		fmt.Fprintf(a.out, "  - %s\n", msg)
	}
	if res.IsSuccessful() {
		fmt.Fprintln(a.out, "  Free local space: hikelog migrate cleanup")
	} else {
		fmt.Fprintln(a.out, "  Failed items stay on this device. Run again to retry them.")
	}
}

// Cleanup deletes migrated local data.
func (a *MigrationAdapter) Cleanup(ctx context.Context, guestID string) error {
	if _, err := result.Get(a.service.CleanupAfterMigration(ctx, guestID)); err != nil {
		return fmt.Errorf("failed to clean up: %w", err)
	}
	fmt.Fprintf(a.out, "%s Removed migrated data of %s from this device\n", check(), guestID)
	return nil
}

// MaintenanceAdapter renders image cleanup and the activity log.
type MaintenanceAdapter struct {
	images   primary.ImageCleanupService
	activity primary.ActivityService
	out      io.Writer
}

// NewMaintenanceAdapter creates a new MaintenanceAdapter.
func NewMaintenanceAdapter(images primary.ImageCleanupService, activity primary.ActivityService, out io.Writer) *MaintenanceAdapter {
	return &MaintenanceAdapter{images: images, activity: activity, out: out}
}

// CleanupImages removes uploaded images older than retention from the device.
func (a *MaintenanceAdapter) CleanupImages(ctx context.Context, retention time.Duration) (*primary.ImageCleanupReport, error) {
	report, err := a.images.CleanupOlderThan(ctx, retention)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up images: %w", err)
	}
	fmt.Fprintf(a.out, "%s Removed %d images older than %s, freed %s\n",
		check(), report.Deleted, retention, humanize.Bytes(uint64(max(report.FreedBytes, 0))))
	if len(report.Errors) > 0 {
		fmt.Fprintf(a.out, "%s %d images could not be removed:\n", color.New(color.FgYellow).Sprint("!"), len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(a.out, "  - %s\n", e)
		}
	}
	return report, nil
}

// Activity prints the most recent activity.
func (a *MaintenanceAdapter) Activity(ctx context.Context, limit int) error {
	entries, err := a.activity.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No activity yet.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-6s %s %s", e.CreatedAt, e.Action, e.EntityType, e.EntityID)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(a.out, strings.TrimSpace(line))
	}
	return nil
}
