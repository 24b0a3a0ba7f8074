package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/core/migration"
	coreobservation "github.com/example/hikelog/internal/core/observation"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/retry"
	"github.com/example/hikelog/internal/stream"
	"github.com/example/hikelog/internal/validation"
)

// ObservationServiceImpl implements the ObservationService interface.
type ObservationServiceImpl struct {
	provider  primary.RepositoryProvider
	images    *ImageAttacher
	logWriter secondary.LogWriter
	policy    retry.Policy
}

// NewObservationService creates a new ObservationService with injected dependencies.
func NewObservationService(
	provider primary.RepositoryProvider,
	images *ImageAttacher,
	logWriter secondary.LogWriter,
	policy retry.Policy,
) *ObservationServiceImpl {
	return &ObservationServiceImpl{
		provider:  provider,
		images:    images,
		logWriter: logWriter,
		policy:    policy,
	}
}

// RecordObservation records an observation on one of the owner's hikes.
func (s *ObservationServiceImpl) RecordObservation(ctx context.Context, req primary.RecordObservationRequest) result.Result[*primary.Observation] {
	if err := validation.Struct("observation.create", req); err != nil {
		return result.Fail[*primary.Observation](err)
	}

	// Both families must come from the same state.
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)

	var hikeOwnerID string
	if ownerID != "" {
		hike, err := repos.Hikes.GetByID(ctx, req.HikeID)
		switch {
		case err == nil:
			hikeOwnerID = hike.OwnerID
		case !apperr.Is(err, apperr.KindNotFound):
			return result.Fail[*primary.Observation](fmt.Errorf("failed to load hike: %w", err))
		}
	}

	guard := coreobservation.CanCreateObservation(coreobservation.CreateContext{
		OwnerID:     ownerID,
		HikeID:      req.HikeID,
		HikeOwnerID: hikeOwnerID,
		Species:     req.Species,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if !guard.Allowed {
		return result.Fail[*primary.Observation](apperr.Validation("observation.create", "%s", guard.Reason))
	}

	id, err := retry.Do(ctx, s.policy, "observation.next_id", repos.Observations.NextID)
	if err != nil {
		return result.Fail[*primary.Observation](fmt.Errorf("failed to generate observation ID: %w", err))
	}

	record := &secondary.ObservationRecord{
		ID:         id,
		HikeID:     req.HikeID,
		OwnerID:    ownerID,
		Species:    strings.TrimSpace(req.Species),
		Notes:      req.Notes,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		ObservedAt: req.ObservedAt,
	}

	var img *stagedImage
	if req.ImageURI != "" {
		img, err = s.images.Stage(ctx, repos.Backend, ownerID, migration.EntityObservation, id, req.ImageURI)
		if err != nil {
			return result.Fail[*primary.Observation](err)
		}
		record.ImagePath = img.Ref
	}

	created := retry.DoResult(ctx, s.policy, "observation.create", func(ctx context.Context) result.Result[*primary.Observation] {
		if err := repos.Observations.Create(ctx, record); err != nil {
			return result.Fail[*primary.Observation](err)
		}
		return result.Ok(recordToObservation(record))
	})
	if result.IsFailure(created) {
		s.images.Discard(ctx, img)
		return created
	}

	if err := s.images.Commit(ctx, ownerID, migration.EntityObservation, id, img); err != nil {
		return result.Fail[*primary.Observation](fmt.Errorf("observation %s recorded but its image was not tracked: %w", id, err))
	}
	if s.logWriter != nil {
		_ = s.logWriter.LogCreate(ctx, "observation", id)
	}
	return created
}

// ListObservations lists the observations of a hike in the order they were recorded.
func (s *ObservationServiceImpl) ListObservations(ctx context.Context, hikeID string) result.Result[[]*primary.Observation] {
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)
	if ownerID == "" {
		return result.Fail[[]*primary.Observation](errNoOwner("observation.list"))
	}

	return retry.DoResult(ctx, s.policy, "observation.list", func(ctx context.Context) result.Result[[]*primary.Observation] {
		records, err := repos.Observations.List(ctx, secondary.ObservationFilters{OwnerID: ownerID, HikeID: hikeID})
		if err != nil {
			return result.Fail[[]*primary.Observation](fmt.Errorf("failed to list observations: %w", err))
		}
		return result.Ok(recordsToObservations(records))
	})
}

// DeleteObservation deletes one of the owner's observations.
func (s *ObservationServiceImpl) DeleteObservation(ctx context.Context, observationID string) result.Result[result.Unit] {
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)
	if ownerID == "" {
		return result.Fail[result.Unit](errNoOwner("observation.delete"))
	}

	record, err := repos.Observations.GetByID(ctx, observationID)
	if err != nil {
		return result.Fail[result.Unit](err)
	}
	if record.OwnerID != ownerID {
		return result.Fail[result.Unit](apperr.NotFound("observation.delete", "observation %s not found", observationID))
	}

	if err := retry.Exec(ctx, s.policy, "observation.delete", func(ctx context.Context) error {
		return repos.Observations.Delete(ctx, observationID)
	}); err != nil {
		return result.Fail[result.Unit](fmt.Errorf("failed to delete observation: %w", err))
	}
	if s.logWriter != nil {
		_ = s.logWriter.LogDelete(ctx, "observation", observationID)
	}
	return result.Ok(result.Unit{})
}

// WatchObservations streams the observations of a hike.
func (s *ObservationServiceImpl) WatchObservations(ctx context.Context, hikeID string) (*stream.Subscription[result.Result[[]*primary.Observation]], error) {
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)
	if ownerID == "" {
		return nil, errNoOwner("observation.watch")
	}

	sub, err := repos.Observations.Watch(ctx, secondary.ObservationFilters{OwnerID: ownerID, HikeID: hikeID})
	if err != nil {
		return nil, fmt.Errorf("failed to watch observations: %w", err)
	}
	return stream.Map(sub, func(r result.Result[[]*secondary.ObservationRecord]) result.Result[[]*primary.Observation] {
		return result.Map(r, recordsToObservations)
	}), nil
}

func recordToObservation(r *secondary.ObservationRecord) *primary.Observation {
	return &primary.Observation{
		ID:         r.ID,
		HikeID:     r.HikeID,
		OwnerID:    r.OwnerID,
		Species:    r.Species,
		Notes:      r.Notes,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		ObservedAt: r.ObservedAt,
		ImageURL:   r.ImagePath,
		CreatedAt:  r.CreatedAt,
	}
}

func recordsToObservations(records []*secondary.ObservationRecord) []*primary.Observation {
	out := make([]*primary.Observation, len(records))
	for i, r := range records {
		out[i] = recordToObservation(r)
	}
	return out
}

var _ primary.ObservationService = (*ObservationServiceImpl)(nil)
