package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/auth"
	corehike "github.com/example/hikelog/internal/core/hike"
	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/retry"
	"github.com/example/hikelog/internal/stream"
	"github.com/example/hikelog/internal/validation"
)

// HikeServiceImpl implements the HikeService interface.
type HikeServiceImpl struct {
	provider  primary.RepositoryProvider
	images    *ImageAttacher
	logWriter secondary.LogWriter
	policy    retry.Policy
}

// NewHikeService creates a new HikeService with injected dependencies.
func NewHikeService(
	provider primary.RepositoryProvider,
	images *ImageAttacher,
	logWriter secondary.LogWriter,
	policy retry.Policy,
) *HikeServiceImpl {
	return &HikeServiceImpl{
		provider:  provider,
		images:    images,
		logWriter: logWriter,
		policy:    policy,
	}
}

// CreateHike creates a hike owned by the current guest or account.
func (s *HikeServiceImpl) CreateHike(ctx context.Context, req primary.CreateHikeRequest) result.Result[*primary.Hike] {
	if err := validation.Struct("hike.create", req); err != nil {
		return result.Fail[*primary.Hike](err)
	}

	// 1. Resolve once; the whole operation stays on this backend
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)

	// 2. Guard
	guard := corehike.CanCreateHike(corehike.CreateContext{
		OwnerID:        ownerID,
		Name:           req.Name,
		DistanceMeters: req.DistanceMeters,
	})
	if !guard.Allowed {
		return result.Fail[*primary.Hike](apperr.Validation("hike.create", "%s", guard.Reason))
	}

	// 3. ID (server-issued when remote)
	id, err := retry.Do(ctx, s.policy, "hike.next_id", repos.Hikes.NextID)
	if err != nil {
		return result.Fail[*primary.Hike](fmt.Errorf("failed to generate hike ID: %w", err))
	}

	record := &secondary.HikeRecord{
		ID:             id,
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(req.Name),
		Location:       req.Location,
		Notes:          req.Notes,
		DistanceMeters: req.DistanceMeters,
		StartedAt:      req.StartedAt,
	}

	// 4. Optional photo
	var img *stagedImage
	if req.ImageURI != "" {
		img, err = s.images.Stage(ctx, repos.Backend, ownerID, migration.EntityHike, id, req.ImageURI)
		if err != nil {
			return result.Fail[*primary.Hike](err)
		}
		record.ImagePath = img.Ref
	}

	// 5. Write
	created := retry.DoResult(ctx, s.policy, "hike.create", func(ctx context.Context) result.Result[*primary.Hike] {
		if err := repos.Hikes.Create(ctx, record); err != nil {
			return result.Fail[*primary.Hike](err)
		}
		return result.Ok(recordToHike(record, repos.Backend))
	})
	if result.IsFailure(created) {
		s.images.Discard(ctx, img)
		return created
	}

	if err := s.images.Commit(ctx, ownerID, migration.EntityHike, id, img); err != nil {
		return result.Fail[*primary.Hike](fmt.Errorf("hike %s created but its image was not tracked: %w", id, err))
	}
	s.logCreate(ctx, id)
	return created
}

// GetHike retrieves a hike of the current owner.
func (s *HikeServiceImpl) GetHike(ctx context.Context, hikeID string) result.Result[*primary.Hike] {
	repos := s.provider.Resolve(ctx)
	record, err := s.ownedHike(ctx, repos, hikeID)
	if err != nil {
		return result.Fail[*primary.Hike](err)
	}
	return result.Ok(recordToHike(record, repos.Backend))
}

// ListHikes lists the current owner's hikes, newest first.
func (s *HikeServiceImpl) ListHikes(ctx context.Context, filters primary.HikeFilters) result.Result[[]*primary.Hike] {
	return s.list(ctx, "hike.list", secondary.HikeFilters{Limit: filters.Limit})
}

// SearchHikes finds the current owner's hikes whose name or location matches query.
func (s *HikeServiceImpl) SearchHikes(ctx context.Context, query string) result.Result[[]*primary.Hike] {
	query = strings.TrimSpace(query)
	if query == "" {
		return result.Fail[[]*primary.Hike](apperr.Validation("hike.search", "search query must not be blank"))
	}
	return s.list(ctx, "hike.search", secondary.HikeFilters{Query: query})
}

func (s *HikeServiceImpl) list(ctx context.Context, op string, filters secondary.HikeFilters) result.Result[[]*primary.Hike] {
	repos := s.provider.Resolve(ctx)
	filters.OwnerID = auth.OwnerID(repos.State)
	if filters.OwnerID == "" {
		return result.Fail[[]*primary.Hike](errNoOwner(op))
	}

	return retry.DoResult(ctx, s.policy, op, func(ctx context.Context) result.Result[[]*primary.Hike] {
		records, err := repos.Hikes.List(ctx, filters)
		if err != nil {
			return result.Fail[[]*primary.Hike](fmt.Errorf("failed to list hikes: %w", err))
		}
		return result.Ok(recordsToHikes(records, repos.Backend))
	})
}

// UpdateHike changes the non-empty fields of a hike.
func (s *HikeServiceImpl) UpdateHike(ctx context.Context, req primary.UpdateHikeRequest) result.Result[*primary.Hike] {
	if err := validation.Struct("hike.update", req); err != nil {
		return result.Fail[*primary.Hike](err)
	}

	repos := s.provider.Resolve(ctx)
	record, err := s.ownedHike(ctx, repos, req.HikeID)
	if err != nil {
		return result.Fail[*primary.Hike](err)
	}

	changes := []fieldChange{
		{"name", record.Name, req.Name},
		{"location", record.Location, req.Location},
		{"notes", record.Notes, req.Notes},
	}
	patch := &secondary.HikeRecord{ID: record.ID, Name: req.Name, Location: req.Location, Notes: req.Notes}

	updated := retry.DoResult(ctx, s.policy, "hike.update", func(ctx context.Context) result.Result[*primary.Hike] {
		if err := repos.Hikes.Update(ctx, patch); err != nil {
			return result.Fail[*primary.Hike](fmt.Errorf("failed to update hike: %w", err))
		}
		fresh, err := repos.Hikes.GetByID(ctx, record.ID)
		if err != nil {
			return result.Fail[*primary.Hike](err)
		}
		return result.Ok(recordToHike(fresh, repos.Backend))
	})
	if result.IsSuccess(updated) {
		s.logUpdates(ctx, "hike", record.ID, changes)
	}
	return updated
}

// DeleteHike deletes a hike. Hikes with observations need Force, which
// deletes the observations too.
func (s *HikeServiceImpl) DeleteHike(ctx context.Context, req primary.DeleteHikeRequest) result.Result[result.Unit] {
	if err := validation.Struct("hike.delete", req); err != nil {
		return result.Fail[result.Unit](err)
	}

	repos := s.provider.Resolve(ctx)
	record, err := s.ownedHike(ctx, repos, req.HikeID)
	if err != nil {
		return result.Fail[result.Unit](err)
	}

	count, err := repos.Observations.CountByHike(ctx, record.ID)
	if err != nil {
		return result.Fail[result.Unit](fmt.Errorf("failed to count observations: %w", err))
	}
	guard := corehike.CanDeleteHike(corehike.DeleteContext{
		HikeID:           record.ID,
		ObservationCount: count,
		ForceDelete:      req.Force,
	})
	if !guard.Allowed {
		return result.Fail[result.Unit](apperr.Validation("hike.delete", "%s", guard.Reason))
	}

	if count > 0 {
		observations, err := repos.Observations.List(ctx, secondary.ObservationFilters{HikeID: record.ID})
		if err != nil {
			return result.Fail[result.Unit](fmt.Errorf("failed to list observations: %w", err))
		}
		for _, o := range observations {
			if err := repos.Observations.Delete(ctx, o.ID); err != nil {
				return result.Fail[result.Unit](fmt.Errorf("failed to delete observation %s: %w", o.ID, err))
			}
			s.logDelete(ctx, "observation", o.ID)
		}
	}

	if err := retry.Exec(ctx, s.policy, "hike.delete", func(ctx context.Context) error {
		return repos.Hikes.Delete(ctx, record.ID)
	}); err != nil {
		return result.Fail[result.Unit](fmt.Errorf("failed to delete hike: %w", err))
	}
	s.logDelete(ctx, "hike", record.ID)
	return result.Ok(result.Unit{})
}

// AttachImage stores a photo and points the hike at it.
func (s *HikeServiceImpl) AttachImage(ctx context.Context, req primary.AttachImageRequest) result.Result[*primary.Hike] {
	if err := validation.Struct("hike.attach_image", req); err != nil {
		return result.Fail[*primary.Hike](err)
	}

	repos := s.provider.Resolve(ctx)
	record, err := s.ownedHike(ctx, repos, req.HikeID)
	if err != nil {
		return result.Fail[*primary.Hike](err)
	}

	img, err := s.images.Stage(ctx, repos.Backend, record.OwnerID, migration.EntityHike, record.ID, req.ImageURI)
	if err != nil {
		return result.Fail[*primary.Hike](err)
	}

	if err := retry.Exec(ctx, s.policy, "hike.attach_image", func(ctx context.Context) error {
		return repos.Hikes.Update(ctx, &secondary.HikeRecord{ID: record.ID, ImagePath: img.Ref})
	}); err != nil {
		s.images.Discard(ctx, img)
		return result.Fail[*primary.Hike](fmt.Errorf("failed to attach image: %w", err))
	}
	if err := s.images.Commit(ctx, record.OwnerID, migration.EntityHike, record.ID, img); err != nil {
		return result.Fail[*primary.Hike](fmt.Errorf("image attached but not tracked: %w", err))
	}
	s.logUpdates(ctx, "hike", record.ID, []fieldChange{{"image", record.ImagePath, img.Ref}})

	record.ImagePath = img.Ref
	return result.Ok(recordToHike(record, repos.Backend))
}

// WatchHikes streams the current owner's hikes. The stream stays on the
// backend resolved when it was opened.
func (s *HikeServiceImpl) WatchHikes(ctx context.Context) (*stream.Subscription[result.Result[[]*primary.Hike]], error) {
	repos := s.provider.Resolve(ctx)
	ownerID := auth.OwnerID(repos.State)
	if ownerID == "" {
		return nil, errNoOwner("hike.watch")
	}

	sub, err := repos.Hikes.Watch(ctx, secondary.HikeFilters{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to watch hikes: %w", err)
	}
	backend := repos.Backend
	return stream.Map(sub, func(r result.Result[[]*secondary.HikeRecord]) result.Result[[]*primary.Hike] {
		return result.Map(r, func(records []*secondary.HikeRecord) []*primary.Hike {
			return recordsToHikes(records, backend)
		})
	}), nil
}

// ownedHike loads a hike and hides hikes of other owners.
func (s *HikeServiceImpl) ownedHike(ctx context.Context, repos primary.RepositorySet, hikeID string) (*secondary.HikeRecord, error) {
	ownerID := auth.OwnerID(repos.State)
	if ownerID == "" {
		return nil, errNoOwner("hike.get")
	}
	record, err := retry.Do(ctx, s.policy, "hike.get", func(ctx context.Context) (*secondary.HikeRecord, error) {
		return repos.Hikes.GetByID(ctx, hikeID)
	})
	if err != nil {
		return nil, err
	}
	if record.OwnerID != ownerID {
		return nil, apperr.NotFound("hike.get", "hike %s not found", hikeID)
	}
	return record, nil
}

func (s *HikeServiceImpl) logCreate(ctx context.Context, id string) {
	if s.logWriter != nil {
		_ = s.logWriter.LogCreate(ctx, "hike", id)
	}
}

func (s *HikeServiceImpl) logDelete(ctx context.Context, entityType, id string) {
	if s.logWriter != nil {
		_ = s.logWriter.LogDelete(ctx, entityType, id)
	}
}

func (s *HikeServiceImpl) logUpdates(ctx context.Context, entityType, id string, changes []fieldChange) {
	if s.logWriter == nil {
		return
	}
	for _, c := range changes {
		if c.newValue != "" && c.newValue != c.oldValue {
			_ = s.logWriter.LogUpdate(ctx, entityType, id, c.field, c.oldValue, c.newValue)
		}
	}
}

// fieldChange is one field of an update, for the activity log.
type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

func errNoOwner(op string) error {
	return apperr.Validation(op, "start a guest session or sign in first")
}

func recordToHike(r *secondary.HikeRecord, backend auth.Backend) *primary.Hike {
	return &primary.Hike{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Location:       r.Location,
		Notes:          r.Notes,
		DistanceMeters: r.DistanceMeters,
		StartedAt:      r.StartedAt,
		ImageURL:       r.ImagePath,
		Backend:        string(backend),
		CreatedAt:      r.CreatedAt,
	}
}

func recordsToHikes(records []*secondary.HikeRecord, backend auth.Backend) []*primary.Hike {
	hikes := make([]*primary.Hike, len(records))
	for i, r := range records {
		hikes[i] = recordToHike(r, backend)
	}
	return hikes
}

var _ primary.HikeService = (*HikeServiceImpl)(nil)
