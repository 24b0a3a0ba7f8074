package app

import (
	"context"
	"sync"

	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/metrics"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
)

// RepositoryProviderImpl implements the RepositoryProvider interface.
type RepositoryProviderImpl struct {
	mu    sync.Mutex
	state AuthStateSource

	localHikes         secondary.HikeRepository
	localObservations  secondary.ObservationRepository
	remoteHikes        secondary.HikeRepository
	remoteObservations secondary.ObservationRepository
}

// NewRepositoryProvider creates a RepositoryProvider with injected dependencies.
// The remote repositories may be nil when no remote store is configured; the
// provider then resolves to the local store in every state. They come as a
// pair: with only one of them the other is ignored too, so every family of a
// RepositorySet sits on the same backend.
func NewRepositoryProvider(
	state AuthStateSource,
	localHikes secondary.HikeRepository,
	localObservations secondary.ObservationRepository,
	remoteHikes secondary.HikeRepository,
	remoteObservations secondary.ObservationRepository,
) *RepositoryProviderImpl {
	if (remoteHikes == nil) != (remoteObservations == nil) {
		logging.Warn().Msg("only one remote repository configured, using the local store for every family")
		remoteHikes, remoteObservations = nil, nil
	}
	return &RepositoryProviderImpl{
		state:              state,
		localHikes:         localHikes,
		localObservations:  localObservations,
		remoteHikes:        remoteHikes,
		remoteObservations: remoteObservations,
	}
}

// Hikes resolves the hike repository inside the critical section.
func (p *RepositoryProviderImpl) Hikes(ctx context.Context) secondary.HikeRepository {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolve(ctx, p.state.Current(), primary.FamilyHike).Hikes
}

// Observations resolves the observation repository inside the critical section.
func (p *RepositoryProviderImpl) Observations(ctx context.Context) secondary.ObservationRepository {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolve(ctx, p.state.Current(), primary.FamilyObservation).Observations
}

// Resolve resolves every family from a single read of the state.
func (p *RepositoryProviderImpl) Resolve(ctx context.Context) primary.RepositorySet {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.state.Current()
	set := p.resolve(ctx, state, primary.FamilyHike)
	set.Observations = p.resolve(ctx, state, primary.FamilyObservation).Observations
	return set
}

// HikesSync resolves without taking the lock.
func (p *RepositoryProviderImpl) HikesSync() secondary.HikeRepository {
	return p.resolve(context.Background(), p.state.Current(), primary.FamilyHike).Hikes
}

// ObservationsSync resolves without taking the lock.
func (p *RepositoryProviderImpl) ObservationsSync() secondary.ObservationRepository {
	return p.resolve(context.Background(), p.state.Current(), primary.FamilyObservation).Observations
}

// Backend reports which backend a family currently resolves to.
func (p *RepositoryProviderImpl) Backend(family primary.EntityFamily) auth.Backend {
	return p.backendFor(context.Background(), p.state.Current(), family)
}

// resolve fills in the repository of one family for state.
func (p *RepositoryProviderImpl) resolve(ctx context.Context, state auth.State, family primary.EntityFamily) primary.RepositorySet {
	backend := p.backendFor(ctx, state, family)
	metrics.RepositoryResolutions.WithLabelValues(string(family), string(backend)).Inc()

	set := primary.RepositorySet{Backend: backend, State: state}
	if state == nil {
		set.State = auth.Unauthenticated{}
	}
	switch family {
	case primary.FamilyHike:
		set.Hikes = p.localHikes
		if backend == auth.BackendRemote {
			set.Hikes = p.remoteHikes
		}
	case primary.FamilyObservation:
		set.Observations = p.localObservations
		if backend == auth.BackendRemote {
			set.Observations = p.remoteObservations
		}
	}
	return set
}

func (p *RepositoryProviderImpl) backendFor(ctx context.Context, state auth.State, family primary.EntityFamily) auth.Backend {
	if auth.SelectBackend(state) != auth.BackendRemote {
		return auth.BackendLocal
	}
	if p.remoteHikes == nil {
		logging.Ctx(ctx).Warn().
			Str("family", string(family)).
			Msg("signed in but no remote store is configured, using local store")
		return auth.BackendLocal
	}
	return auth.BackendRemote
}

var _ primary.RepositoryProvider = (*RepositoryProviderImpl)(nil)
