package hike

import (
	"fmt"
	"strings"
)

// MaxNameLength bounds hike names.
const MaxNameLength = 120

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CreateContext provides the input for hike creation guards.
type CreateContext struct {
	OwnerID        string
	Name           string
	DistanceMeters float64
}

// CanCreateHike evaluates whether a hike can be created.
// Rules: there must be an owner (guest or account), the name must be present
// and bounded, and the distance cannot be negative.
func CanCreateHike(ctx CreateContext) GuardResult {
	if strings.TrimSpace(ctx.OwnerID) == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "cannot create hike: start a guest session or sign in first",
		}
	}
	name := strings.TrimSpace(ctx.Name)
	if name == "" {
		return GuardResult{Allowed: false, Reason: "cannot create hike: name must not be blank"}
	}
	if len(name) > MaxNameLength {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot create hike: name longer than %d characters", MaxNameLength),
		}
	}
	if ctx.DistanceMeters < 0 {
		return GuardResult{Allowed: false, Reason: "cannot create hike: distance cannot be negative"}
	}
	return GuardResult{Allowed: true}
}

// DeleteContext provides context for hike deletion guards.
// Populated by the caller with pre-fetched dependency counts.
type DeleteContext struct {
	HikeID           string
	ObservationCount int
	ForceDelete      bool
}

// CanDeleteHike evaluates whether a hike can be deleted.
// Rule: a hike with observations requires force.
func CanDeleteHike(ctx DeleteContext) GuardResult {
	if ctx.ObservationCount > 0 && !ctx.ForceDelete {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("hike %s has %d observations. Use --force to delete anyway",
				ctx.HikeID, ctx.ObservationCount),
		}
	}
	return GuardResult{Allowed: true}
}
