// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the outside world drives the application.
package primary

import (
	"context"

	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/ports/secondary"
)

// EntityFamily is a class of records with independent local and remote repositories.
type EntityFamily string

const (
	FamilyHike        EntityFamily = "hike"
	FamilyObservation EntityFamily = "observation"
)

// RepositorySet is a consistent resolution of every entity family.
// All members were selected from the same authentication state.
type RepositorySet struct {
	Backend      auth.Backend
	State        auth.State
	Hikes        secondary.HikeRepository
	Observations secondary.ObservationRepository
}

// RepositoryProvider routes each operation to the repository matching the
// current authentication state: remote when authenticated, local otherwise.
// Resolution never fails.
type RepositoryProvider interface {
	// Hikes resolves the hike repository inside the provider's critical section.
	Hikes(ctx context.Context) secondary.HikeRepository

	// Observations resolves the observation repository inside the provider's critical section.
	Observations(ctx context.Context) secondary.ObservationRepository

	// Resolve resolves every family in one critical section. Callers that
	// touch more than one family in an operation must use it.
	Resolve(ctx context.Context) RepositorySet

	// HikesSync resolves without entering the critical section, for callers
	// that cannot wait on it.
	HikesSync() secondary.HikeRepository

	// ObservationsSync is HikesSync for observations.
	ObservationsSync() secondary.ObservationRepository

	// Backend reports which backend a family currently resolves to.
	Backend(family EntityFamily) auth.Backend
}
