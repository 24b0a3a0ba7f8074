package observation

import (
	"fmt"
	"strings"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CreateContext provides the input for observation creation guards.
// HikeOwnerID is empty when the parent hike was not found.
type CreateContext struct {
	OwnerID     string
	HikeID      string
	HikeOwnerID string
	Species     string
	Latitude    float64
	Longitude   float64
}

// CanCreateObservation evaluates whether an observation can be recorded.
// Rules: there must be an owner, the parent hike must exist and belong to
// the same owner, something must have been observed, and coordinates must
// be on the globe.
func CanCreateObservation(ctx CreateContext) GuardResult {
	if strings.TrimSpace(ctx.OwnerID) == "" {
		return GuardResult{Allowed: false, Reason: "cannot record observation: start a guest session or sign in first"}
	}
	if ctx.HikeOwnerID == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("cannot record observation: hike %s not found", ctx.HikeID)}
	}
	if ctx.HikeOwnerID != ctx.OwnerID {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("cannot record observation: hike %s belongs to another user", ctx.HikeID)}
	}
	if strings.TrimSpace(ctx.Species) == "" {
		return GuardResult{Allowed: false, Reason: "cannot record observation: species must not be blank"}
	}
	if ctx.Latitude < -90 || ctx.Latitude > 90 || ctx.Longitude < -180 || ctx.Longitude > 180 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot record observation: coordinates (%.5f, %.5f) out of range", ctx.Latitude, ctx.Longitude),
		}
	}
	return GuardResult{Allowed: true}
}
