package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/metrics"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/retry"
)

const (
	// progressBuffer lets the pipeline run ahead of a slow consumer.
	progressBuffer = 64
	// progressStep is the smallest fraction change reported during an upload.
	progressStep = 0.05
)

// MigrationServiceImpl implements the MigrationService interface.
type MigrationServiceImpl struct {
	localHikes         secondary.LocalHikeRepository
	localObservations  secondary.LocalObservationRepository
	assets             secondary.AssetRepository
	files              secondary.FileStore
	remoteHikes        secondary.RemoteHikeRepository
	remoteObservations secondary.RemoteObservationRepository
	objects            secondary.ObjectStore
	ledger             secondary.GuestIdentityStore
	policy             retry.Policy
}

// NewMigrationService creates a new MigrationService with injected dependencies.
// objects may be nil; images then fail individually and records still move.
func NewMigrationService(
	localHikes secondary.LocalHikeRepository,
	localObservations secondary.LocalObservationRepository,
	assets secondary.AssetRepository,
	files secondary.FileStore,
	remoteHikes secondary.RemoteHikeRepository,
	remoteObservations secondary.RemoteObservationRepository,
	objects secondary.ObjectStore,
	ledger secondary.GuestIdentityStore,
	policy retry.Policy,
) *MigrationServiceImpl {
	return &MigrationServiceImpl{
		localHikes:         localHikes,
		localObservations:  localObservations,
		assets:             assets,
		files:              files,
		remoteHikes:        remoteHikes,
		remoteObservations: remoteObservations,
		objects:            objects,
		ledger:             ledger,
		policy:             policy,
	}
}

// CheckMigrationNeeded counts the guest's unmigrated records and images.
func (s *MigrationServiceImpl) CheckMigrationNeeded(ctx context.Context, guestID string) result.Result[migration.Stats] {
	if strings.TrimSpace(guestID) == "" {
		return result.Fail[migration.Stats](apperr.Validation("migration.check", "guest id must not be blank"))
	}
	return result.SafeCall(func() (migration.Stats, error) {
		return s.computeStats(ctx, guestID)
	})
}

func (s *MigrationServiceImpl) computeStats(ctx context.Context, guestID string) (migration.Stats, error) {
	hikes, err := s.localHikes.CountUnsynced(ctx, guestID)
	if err != nil {
		return migration.Stats{}, fmt.Errorf("failed to count hikes: %w", err)
	}
	observations, err := s.localObservations.CountUnsynced(ctx, guestID)
	if err != nil {
		return migration.Stats{}, fmt.Errorf("failed to count observations: %w", err)
	}
	images, err := s.assets.ListByOwner(ctx, guestID, true)
	if err != nil {
		return migration.Stats{}, fmt.Errorf("failed to list images: %w", err)
	}
	dirSize, err := s.files.DirSize(ctx, s.files.OwnerDir(guestID))
	if err != nil {
		return migration.Stats{}, fmt.Errorf("failed to measure image directory: %w", err)
	}

	return migration.Stats{
		TotalHikes:         hikes,
		TotalObservations:  observations,
		TotalImages:        len(images),
		EstimatedSizeBytes: migration.EstimateSize(hikes+observations, dirSize),
	}, nil
}

// MigrateGuestData starts the pipeline in its own goroutine and returns its
// progress events.
func (s *MigrationServiceImpl) MigrateGuestData(ctx context.Context, guestID, newUserID string) (<-chan migration.Progress, error) {
	if guard := migration.CanMigrate(guestID, newUserID); !guard.Allowed {
		return nil, apperr.Validation("migration.start", "%s", guard.Reason)
	}
	if s.remoteHikes == nil || s.remoteObservations == nil {
		return nil, errNoRemote("migration.start")
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	events := make(chan migration.Progress, progressBuffer)
	run := &migrationRun{
		svc:                s,
		ctx:                ctx,
		guestID:            guestID,
		userID:             newUserID,
		events:             events,
		remoteHikes:        make(map[string]string),
		remoteObservations: make(map[string]string),
		log: logging.Ctx(ctx).With().
			Str("guest_id", guestID).
			Str("user_id", newUserID).
			Logger(),
	}
	go run.execute()
	return events, nil
}

// CleanupAfterMigration deletes what was migrated and keeps everything else.
// Order: synced observations, synced hikes left without observations, then
// each synced image file and its row. The guest's directory goes last, and
// only once nothing unmigrated is left in it.
func (s *MigrationServiceImpl) CleanupAfterMigration(ctx context.Context, guestID string) result.Result[result.Unit] {
	if strings.TrimSpace(guestID) == "" {
		return result.Fail[result.Unit](apperr.Validation("migration.cleanup", "guest id must not be blank"))
	}
	return result.SafeCall(func() (result.Unit, error) {
		return result.Unit{}, s.cleanup(ctx, guestID)
	})
}

func (s *MigrationServiceImpl) cleanup(ctx context.Context, guestID string) error {
	observations, err := s.localObservations.DeleteSynced(ctx, guestID)
	if err != nil {
		return fmt.Errorf("failed to delete migrated observations: %w", err)
	}
	hikes, err := s.localHikes.DeleteSynced(ctx, guestID)
	if err != nil {
		return fmt.Errorf("failed to delete migrated hikes: %w", err)
	}

	images, err := s.assets.ListSynced(ctx, guestID)
	if err != nil {
		return fmt.Errorf("failed to list migrated images: %w", err)
	}
	for _, a := range images {
		if err := s.files.Delete(ctx, a.Path); err != nil {
			return fmt.Errorf("failed to delete image file %s: %w", a.Path, err)
		}
		if err := s.assets.Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("failed to delete image %s: %w", a.ID, err)
		}
	}

	leftover, err := s.computeStats(ctx, guestID)
	if err != nil {
		return err
	}
	if leftover.IsEmpty() && leftover.TotalImages == 0 {
		if err := s.files.DeleteDir(ctx, s.files.OwnerDir(guestID)); err != nil {
			return fmt.Errorf("failed to delete guest image directory: %w", err)
		}
	}

	if entry, err := s.ledger.GetMigration(ctx, guestID); err == nil && entry != nil && !entry.CleanedUp {
		entry.CleanedUp = true
		if err := s.ledger.RecordMigration(ctx, entry); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("guest_id", guestID).Msg("failed to update migration ledger")
		}
	}

	logging.Ctx(ctx).Info().
		Str("guest_id", guestID).
		Int("hikes", hikes).
		Int("observations", observations).
		Int("images", len(images)).
		Msg("cleaned up migrated guest data")
	return nil
}

// migrationRun is the state of one pipeline execution. Only its goroutine
// touches it.
type migrationRun struct {
	svc     *MigrationServiceImpl
	ctx     context.Context
	guestID string
	userID  string
	events  chan<- migration.Progress
	log     zerolog.Logger
	started time.Time

	res migration.Result
	// local ID -> remote ID of every migrated record, from this run or earlier ones
	remoteHikes        map[string]string
	remoteObservations map[string]string
}

func (r *migrationRun) execute() {
	defer close(r.events)
	r.started = time.Now()
	r.log.Info().Msg("migration started")

	stats, err := result.Get(r.svc.CheckMigrationNeeded(r.ctx, r.guestID))
	if err != nil {
		r.abort(fmt.Errorf("failed to compute migration stats: %w", err))
		return
	}
	if err := r.emit(migration.Initializing{Stats: stats}); err != nil {
		r.abort(err)
		return
	}
	stages := []func() error{
		r.loadMigratedRecords,
		r.migrateHikes,
		r.migrateObservations,
		r.uploadImages,
	}
	if stats.IsEmpty() {
		if stats.TotalImages == 0 {
			r.complete()
			return
		}
		// Every record moved in an earlier run; only its images are left.
		stages = []func() error{r.loadMigratedRecords, r.uploadImages}
	}

	for _, stage := range stages {
		if err := stage(); err != nil {
			r.abort(err)
			return
		}
	}
	r.complete()
}

// loadMigratedRecords remembers the remote IDs of records migrated by an
// earlier run, so their children can still follow them.
func (r *migrationRun) loadMigratedRecords() error {
	hikes, err := r.svc.localHikes.List(r.ctx, secondary.HikeFilters{OwnerID: r.guestID})
	if err != nil {
		return fmt.Errorf("failed to list local hikes: %w", err)
	}
	for _, h := range hikes {
		if h.Synced && h.RemoteID != "" {
			r.remoteHikes[h.ID] = h.RemoteID
		}
	}

	observations, err := r.svc.localObservations.List(r.ctx, secondary.ObservationFilters{OwnerID: r.guestID})
	if err != nil {
		return fmt.Errorf("failed to list local observations: %w", err)
	}
	for _, o := range observations {
		if o.Synced && o.RemoteID != "" {
			r.remoteObservations[o.ID] = o.RemoteID
		}
	}
	return nil
}

func (r *migrationRun) migrateHikes() error {
	hikes, err := r.svc.localHikes.ListUnsynced(r.ctx, r.guestID)
	if err != nil {
		return fmt.Errorf("failed to list unmigrated hikes: %w", err)
	}

	migrated := make(map[string]string)
	for i, h := range hikes {
		if err := r.emit(migration.MigratingHikes{Current: i + 1, Total: len(hikes), HikeName: h.Name}); err != nil {
			return r.settle(r.svc.localHikes.MarkSynced, migrated, err)
		}

		remoteID, err := retry.Do(r.ctx, r.svc.policy, "migration.hike_id", r.svc.remoteHikes.NextID)
		if err != nil {
			return r.settle(r.svc.localHikes.MarkSynced, migrated,
				fmt.Errorf("failed to acquire remote id for hike %s: %w", h.ID, err))
		}

		doc := *h
		doc.ID = remoteID
		doc.OwnerID = r.userID
		doc.ImagePath = ""
		doc.Synced = false
		doc.RemoteID = ""
		err = retry.Exec(r.ctx, r.svc.policy, "migration.hike", func(ctx context.Context) error {
			return r.svc.remoteHikes.Replace(ctx, &doc)
		})
		if err != nil {
			if r.ctx.Err() != nil {
				return r.settle(r.svc.localHikes.MarkSynced, migrated, r.ctx.Err())
			}
			r.res.Fail("hike %s (%s): %v", h.ID, h.Name, err)
			metrics.MigrationItems.WithLabelValues("hike", "failed").Inc()
			r.log.Warn().Err(err).Str("hike_id", h.ID).Msg("hike not migrated")
			continue
		}

		migrated[h.ID] = remoteID
		r.remoteHikes[h.ID] = remoteID
		r.res.MigratedHikes++
		metrics.MigrationItems.WithLabelValues("hike", "migrated").Inc()
	}
	return r.settle(r.svc.localHikes.MarkSynced, migrated, nil)
}

func (r *migrationRun) migrateObservations() error {
	observations, err := r.svc.localObservations.ListUnsynced(r.ctx, r.guestID)
	if err != nil {
		return fmt.Errorf("failed to list unmigrated observations: %w", err)
	}

	byID := make(map[string]*secondary.ObservationRecord, len(observations))
	refs := make([]migration.ObservationRef, len(observations))
	for i, o := range observations {
		byID[o.ID] = o
		refs[i] = migration.ObservationRef{ID: o.ID, HikeID: o.HikeID}
	}

	eligible, skipped := migration.PartitionObservations(refs, r.remoteHikes)
	for _, o := range skipped {
		r.res.Fail("observation %s: hike %s was not migrated", o.ID, o.HikeID)
		metrics.MigrationItems.WithLabelValues("observation", "skipped").Inc()
	}

	migrated := make(map[string]string)
	for i, ref := range eligible {
		o := byID[ref.ID]
		if err := r.emit(migration.MigratingObservations{Current: i + 1, Total: len(eligible), HikeID: o.HikeID}); err != nil {
			return r.settle(r.svc.localObservations.MarkSynced, migrated, err)
		}

		remoteID, err := retry.Do(r.ctx, r.svc.policy, "migration.observation_id", r.svc.remoteObservations.NextID)
		if err != nil {
			return r.settle(r.svc.localObservations.MarkSynced, migrated,
				fmt.Errorf("failed to acquire remote id for observation %s: %w", o.ID, err))
		}

		doc := *o
		doc.ID = remoteID
		doc.HikeID = r.remoteHikes[o.HikeID]
		doc.OwnerID = r.userID
		doc.ImagePath = ""
		doc.Synced = false
		doc.RemoteID = ""
		err = retry.Exec(r.ctx, r.svc.policy, "migration.observation", func(ctx context.Context) error {
			return r.svc.remoteObservations.Replace(ctx, &doc)
		})
		if err != nil {
			if r.ctx.Err() != nil {
				return r.settle(r.svc.localObservations.MarkSynced, migrated, r.ctx.Err())
			}
			r.res.Fail("observation %s: %v", o.ID, err)
			metrics.MigrationItems.WithLabelValues("observation", "failed").Inc()
			r.log.Warn().Err(err).Str("observation_id", o.ID).Msg("observation not migrated")
			continue
		}

		migrated[o.ID] = remoteID
		r.remoteObservations[o.ID] = remoteID
		r.res.MigratedObservations++
		metrics.MigrationItems.WithLabelValues("observation", "migrated").Inc()
	}
	return r.settle(r.svc.localObservations.MarkSynced, migrated, nil)
}

func (r *migrationRun) uploadImages() error {
	assets, err := r.svc.assets.ListByOwner(r.ctx, r.guestID, true)
	if err != nil {
		return fmt.Errorf("failed to list unmigrated images: %w", err)
	}

	byID := make(map[string]*secondary.AssetRecord, len(assets))
	refs := make([]migration.AssetRef, len(assets))
	for i, a := range assets {
		byID[a.ID] = a
		refs[i] = migration.AssetRef{ID: a.ID, EntityType: a.EntityType, EntityID: a.EntityID}
	}

	eligible, skipped := migration.PartitionAssets(refs, r.remoteHikes, r.remoteObservations)
	for _, a := range skipped {
		r.res.Fail("image %s: %s %s was not migrated", a.ID, a.EntityType, a.EntityID)
		metrics.MigrationItems.WithLabelValues("image", "skipped").Inc()
	}

	uploaded := make(map[string]string)
	for i, ref := range eligible {
		current, total := i+1, len(eligible)
		if err := r.emit(migration.UploadingImages{Current: current, Total: total}); err != nil {
			return r.settle(r.svc.assets.MarkSynced, uploaded, err)
		}

		url, err := r.uploadImage(byID[ref.ID], ref, current, total)
		if err != nil {
			if r.ctx.Err() != nil {
				return r.settle(r.svc.assets.MarkSynced, uploaded, r.ctx.Err())
			}
			r.res.Fail("image %s: %v", ref.ID, err)
			metrics.MigrationItems.WithLabelValues("image", "failed").Inc()
			r.log.Warn().Err(err).Str("asset_id", ref.ID).Msg("image not uploaded")
			continue
		}

		uploaded[ref.ID] = url
		r.res.UploadedImages++
		metrics.MigrationItems.WithLabelValues("image", "migrated").Inc()
	}
	return r.settle(r.svc.assets.MarkSynced, uploaded, nil)
}

// uploadImage uploads one asset and points its remote record at the new URL.
// It only succeeds when both steps do.
func (r *migrationRun) uploadImage(a *secondary.AssetRecord, ref migration.AssetRef, current, total int) (string, error) {
	if r.svc.objects == nil {
		return "", errors.New("object storage is not configured")
	}

	handles, err := r.svc.files.PrepareForUpload(r.ctx, []string{a.Path})
	if err != nil {
		return "", err
	}

	ownerID, _ := migration.RemoteOwner(ref, r.remoteHikes, r.remoteObservations)
	key := migration.ObjectKey(r.userID, a.EntityType, ownerID, a.Path)
	progress := r.uploadProgress(current, total)

	url, err := retry.Do(r.ctx, r.svc.policy, "migration.image", func(ctx context.Context) (string, error) {
		return r.svc.objects.Upload(ctx, key, handles[0], progress)
	})
	if err != nil {
		return "", err
	}

	err = retry.Exec(r.ctx, r.svc.policy, "migration.image_ref", func(ctx context.Context) error {
		return r.setRemoteImage(ctx, a.EntityType, ownerID, url)
	})
	if err != nil {
		return "", fmt.Errorf("uploaded but failed to update %s %s: %w", a.EntityType, ownerID, err)
	}
	return url, nil
}

func (r *migrationRun) setRemoteImage(ctx context.Context, entityType, remoteID, url string) error {
	switch entityType {
	case migration.EntityHike:
		hike, err := r.svc.remoteHikes.GetByID(ctx, remoteID)
		if err != nil {
			return err
		}
		hike.ImagePath = url
		return r.svc.remoteHikes.Replace(ctx, hike)
	case migration.EntityObservation:
		obs, err := r.svc.remoteObservations.GetByID(ctx, remoteID)
		if err != nil {
			return err
		}
		obs.ImagePath = url
		return r.svc.remoteObservations.Replace(ctx, obs)
	default:
		return apperr.Validation("migration.image_ref", "unknown entity type %q", entityType)
	}
}

// uploadProgress reports the byte fraction of one upload in steps of at
// least progressStep. The object store may call it from several goroutines.
func (r *migrationRun) uploadProgress(current, total int) secondary.ProgressFunc {
	var mu sync.Mutex
	var last float64
	return func(transferred, size int64) {
		fraction := migration.Fraction(transferred, size)
		mu.Lock()
		if fraction <= last || (fraction < 1 && fraction-last < progressStep) {
			mu.Unlock()
			return
		}
		last = fraction
		mu.Unlock()
		_ = r.emit(migration.UploadingImages{Current: current, Total: total, Fraction: fraction})
	}
}

// settle marks the items of a finished or interrupted stage as migrated and
// passes cause through. Marking ignores cancellation: the remote writes
// already happened.
func (r *migrationRun) settle(mark func(context.Context, map[string]string) error, ids map[string]string, cause error) error {
	if len(ids) == 0 {
		return cause
	}
	if err := mark(context.WithoutCancel(r.ctx), ids); err != nil {
		if cause == nil {
			return fmt.Errorf("failed to mark %d items as migrated: %w", len(ids), err)
		}
		r.log.Error().Err(err).Int("items", len(ids)).Msg("failed to mark items as migrated")
	}
	return cause
}

func (r *migrationRun) emit(p migration.Progress) error {
	select {
	case r.events <- p:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

// finish delivers the terminal event. A cancelled consumer may have stopped
// reading, so delivery then only happens if the buffer has room.
func (r *migrationRun) finish(p migration.Progress, outcome string) {
	select {
	case r.events <- p:
	case <-r.ctx.Done():
		select {
		case r.events <- p:
		default:
		}
	}

	metrics.MigrationRuns.WithLabelValues(outcome).Inc()
	metrics.MigrationDuration.Observe(time.Since(r.started).Seconds())

	entry := &secondary.MigrationLedgerRecord{
		GuestID:              r.guestID,
		UserID:               r.userID,
		Outcome:              outcome,
		MigratedHikes:        r.res.MigratedHikes,
		MigratedObservations: r.res.MigratedObservations,
		UploadedImages:       r.res.UploadedImages,
		FailedItems:          r.res.FailedItems,
		Errors:               r.res.Errors,
		CompletedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.svc.ledger.RecordMigration(context.WithoutCancel(r.ctx), entry); err != nil {
		r.log.Warn().Err(err).Msg("failed to record migration")
	}
}

func (r *migrationRun) complete() {
	r.finish(migration.Complete{Result: r.res}, r.res.Outcome())
	r.log.Info().
		Str("outcome", r.res.Outcome()).
		Int("hikes", r.res.MigratedHikes).
		Int("observations", r.res.MigratedObservations).
		Int("images", r.res.UploadedImages).
		Int("failed", r.res.FailedItems).
		Dur("elapsed", time.Since(r.started)).
		Msg("migration complete")
}

// abort ends the run with a terminal Error. Cancellation is retryable.
func (r *migrationRun) abort(err error) {
	retryable := retry.IsRetryable(err)
	if r.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		retryable = true
		err = fmt.Errorf("migration cancelled: %w", err)
	}
	r.finish(migration.Error{Message: err.Error(), Retryable: retryable}, "error")
	r.log.Error().Err(err).Bool("retryable", retryable).Msg("migration aborted")
}

var _ primary.MigrationService = (*MigrationServiceImpl)(nil)
