// Package migration contains the pure model of the guest-to-account data
// migration: the stats snapshot, the progress events, the aggregate result,
// and the planning rules that decide what may be migrated.
// This is part of the Functional Core - no I/O, only pure functions.
package migration

import "fmt"

// Stats is a read-only snapshot of what a guest has stored locally.
type Stats struct {
	TotalHikes         int
	TotalObservations  int
	TotalImages        int
	EstimatedSizeBytes int64
}

// IsEmpty reports whether there are no hikes and no observations to migrate.
// Images alone never make a migration necessary.
func (s Stats) IsEmpty() bool {
	return s.TotalHikes == 0 && s.TotalObservations == 0
}

// Result aggregates the outcome of one migration run.
type Result struct {
	MigratedHikes        int
	MigratedObservations int
	UploadedImages       int
	FailedItems          int
	Errors               []string
}

// IsSuccessful reports whether nothing failed.
func (r Result) IsSuccessful() bool {
	return r.FailedItems == 0
}

// HasPartialSuccess reports whether some records moved and some failed.
func (r Result) HasPartialSuccess() bool {
	return r.FailedItems > 0 && (r.MigratedHikes > 0 || r.MigratedObservations > 0)
}

// Fail counts one failed item and records why.
func (r *Result) Fail(format string, args ...any) {
	r.FailedItems++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Outcome classifies the result for reporting: success, partial or failed.
func (r Result) Outcome() string {
	switch {
	case r.IsSuccessful():
		return "success"
	case r.HasPartialSuccess():
		return "partial"
	default:
		return "failed"
	}
}

// Progress is a sealed union of the events a migration emits, in order:
// Initializing, MigratingHikes*, MigratingObservations*, UploadingImages*,
// then exactly one of Complete or Error.
type Progress interface {
	Stage() Stage
}

// Initializing carries the stats computed before any record moves.
type Initializing struct {
	Stats Stats
}

// MigratingHikes is emitted once per hike attempted.
type MigratingHikes struct {
	Current  int
	Total    int
	HikeName string
}

// MigratingObservations is emitted once per observation attempted.
type MigratingObservations struct {
	Current int
	Total   int
	HikeID  string
}

// UploadingImages reports the byte fraction of the current asset.
type UploadingImages struct {
	Current  int
	Total    int
	Fraction float64
}

// Complete terminates a run that reached the end, possibly with record failures.
type Complete struct {
	Result Result
}

// Error terminates a run that aborted. Retryable runs may be started again
// from the beginning.
type Error struct {
	Message   string
	Retryable bool
}

func (Initializing) Stage() Stage          { return StageInitializing }
func (MigratingHikes) Stage() Stage        { return StageMigratingHikes }
func (MigratingObservations) Stage() Stage { return StageMigratingObservations }
func (UploadingImages) Stage() Stage       { return StageUploadingImages }
func (Complete) Stage() Stage              { return StageComplete }
func (Error) Stage() Stage                 { return StageError }

// IsTerminal reports whether p ends the event sequence.
func IsTerminal(p Progress) bool {
	s := p.Stage()
	return s == StageComplete || s == StageError
}
