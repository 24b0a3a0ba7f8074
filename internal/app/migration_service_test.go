package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/retry"
)

const (
	testGuest = "guest-1"
	testUser  = "user-1"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

type migrationFixture struct {
	localHikes  *mockHikeRepository
	localObs    *mockObservationRepository
	assets      *mockAssetRepository
	files       *mockFileStore
	remoteHikes *mockHikeRepository
	remoteObs   *mockObservationRepository
	objects     *mockObjectStore
	ledger      *mockIdentityStore
	svc         *MigrationServiceImpl
}

func newMigrationFixture() *migrationFixture {
	f := &migrationFixture{
		localHikes:  newMockHikeRepository("HIKE-"),
		localObs:    newMockObservationRepository("OBS-"),
		assets:      newMockAssetRepository(),
		files:       newMockFileStore(),
		remoteHikes: newMockHikeRepository("rh-"),
		remoteObs:   newMockObservationRepository("ro-"),
		objects:     newMockObjectStore(),
		ledger:      newMockIdentityStore(),
	}
	f.localHikes.children = f.localObs
	f.localHikes.images = f.assets
	f.localObs.images = f.assets
	f.svc = NewMigrationService(
		f.localHikes, f.localObs, f.assets, f.files,
		f.remoteHikes, f.remoteObs, f.objects, f.ledger,
		fastPolicy(),
	)
	return f
}

func (f *migrationFixture) hike(id, name string) {
	f.localHikes.add(&secondary.HikeRecord{ID: id, OwnerID: testGuest, Name: name})
}

func (f *migrationFixture) observation(id, hikeID string) {
	f.localObs.add(&secondary.ObservationRecord{ID: id, HikeID: hikeID, OwnerID: testGuest, Species: "marmot"})
}

func (f *migrationFixture) image(id, entityType, entityID string, size int64) string {
	path := "/assets/" + testGuest + "/" + id + ".jpg"
	f.files.put(path, size)
	_ = f.assets.Create(context.Background(), &secondary.AssetRecord{
		ID: id, OwnerID: testGuest, EntityType: entityType, EntityID: entityID, Path: path, SizeBytes: size,
	})
	return path
}

// threeHikesFiveObservations seeds hikes 1..3 with 2, 2 and 1 observations.
func (f *migrationFixture) threeHikesFiveObservations() {
	f.hike("HIKE-001", "Hike one")
	f.hike("HIKE-002", "Hike two")
	f.hike("HIKE-003", "Hike three")
	f.observation("OBS-001", "HIKE-001")
	f.observation("OBS-002", "HIKE-002")
	f.observation("OBS-003", "HIKE-001")
	f.observation("OBS-004", "HIKE-002")
	f.observation("OBS-005", "HIKE-003")
}

func drain(t *testing.T, events <-chan migration.Progress) []migration.Progress {
	t.Helper()
	var out []migration.Progress
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, p)
		case <-timeout:
			t.Fatalf("migration did not finish, got %d events", len(out))
			return nil
		}
	}
}

func run(t *testing.T, f *migrationFixture) []migration.Progress {
	t.Helper()
	events, err := f.svc.MigrateGuestData(context.Background(), testGuest, testUser)
	require.NoError(t, err)
	return drain(t, events)
}

func terminalResult(t *testing.T, events []migration.Progress) migration.Result {
	t.Helper()
	require.NotEmpty(t, events)
	complete, ok := events[len(events)-1].(migration.Complete)
	require.True(t, ok, "terminal event is %T, want Complete", events[len(events)-1])
	return complete.Result
}

func ofType[T migration.Progress](events []migration.Progress) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestCheckMigrationNeeded_EmptyGuest(t *testing.T) {
	f := newMigrationFixture()

	for i := 0; i < 2; i++ {
		stats, err := result.Get(f.svc.CheckMigrationNeeded(context.Background(), testGuest))
		require.NoError(t, err)
		assert.True(t, stats.IsEmpty())
		assert.Equal(t, migration.Stats{}, stats)
	}
}

func TestCheckMigrationNeeded_CountsUnsyncedData(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.hike("HIKE-002", "Lake")
	f.observation("OBS-001", "HIKE-001")
	f.image("ASSET-001", migration.EntityHike, "HIKE-001", 1000)

	stats, err := result.Get(f.svc.CheckMigrationNeeded(context.Background(), testGuest))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalHikes)
	assert.Equal(t, 1, stats.TotalObservations)
	assert.Equal(t, 1, stats.TotalImages)
	assert.Equal(t, int64(3*migration.RecordOverheadBytes+1000), stats.EstimatedSizeBytes)
	assert.False(t, stats.IsEmpty())
}

func TestCheckMigrationNeeded_BlankGuest(t *testing.T) {
	f := newMigrationFixture()

	r := f.svc.CheckMigrationNeeded(context.Background(), " ")

	_, err := result.Get(r)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestMigrateGuestData_RejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		guestID string
		userID  string
	}{
		{"blank guest", "", testUser},
		{"blank user", testGuest, "  "},
		{"same id", "same", "same"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMigrationFixture()
			events, err := f.svc.MigrateGuestData(context.Background(), tt.guestID, tt.userID)
			assert.Nil(t, events)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "err = %v", err)
		})
	}
}

func TestMigrateGuestData_EmptyGuest(t *testing.T) {
	f := newMigrationFixture()

	events := run(t, f)

	require.Len(t, events, 2)
	assert.IsType(t, migration.Initializing{}, events[0])
	assert.Equal(t, migration.Result{}, terminalResult(t, events))
	assert.True(t, migration.ValidateSequence(events))
}

func TestMigrateGuestData_FailedHikeSkipsItsObservations(t *testing.T) {
	f := newMigrationFixture()
	f.threeHikesFiveObservations()
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		if h.Name == "Hike two" {
			return apperr.Permanent("surreal.replace", errors.New("permission denied"))
		}
		return nil
	}

	events := run(t, f)
	require.True(t, migration.ValidateSequence(events), "events: %#v", events)

	hikeEvents := ofType[migration.MigratingHikes](events)
	require.Len(t, hikeEvents, 3)
	for i, e := range hikeEvents {
		assert.Equal(t, i+1, e.Current)
		assert.Equal(t, 3, e.Total)
	}
	assert.Equal(t, "Hike two", hikeEvents[1].HikeName)

	obsEvents := ofType[migration.MigratingObservations](events)
	require.Len(t, obsEvents, 3)
	for _, e := range obsEvents {
		assert.NotEqual(t, "HIKE-002", e.HikeID)
	}

	res := terminalResult(t, events)
	assert.Equal(t, 2, res.MigratedHikes)
	assert.Equal(t, 3, res.MigratedObservations)
	assert.Equal(t, 3, res.FailedItems, "one hike and its two observations")
	assert.Len(t, res.Errors, 3)
	assert.True(t, res.HasPartialSuccess())
	assert.False(t, res.IsSuccessful())

	// Non-retryable: one attempt per hike.
	assert.Equal(t, 3, f.remoteHikes.writeCalls)

	assert.True(t, f.localHikes.get("HIKE-001").Synced)
	assert.False(t, f.localHikes.get("HIKE-002").Synced)
	assert.True(t, f.localHikes.get("HIKE-003").Synced)

	entry, _ := f.ledger.GetMigration(context.Background(), testGuest)
	require.NotNil(t, entry)
	assert.Equal(t, "partial", entry.Outcome)
	assert.Equal(t, testUser, entry.UserID)
}

func TestMigrateGuestData_RewritesOwnerAndParent(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.observation("OBS-001", "HIKE-001")

	res := terminalResult(t, run(t, f))
	assert.True(t, res.IsSuccessful())

	remoteID := f.localHikes.get("HIKE-001").RemoteID
	require.NotEmpty(t, remoteID)
	remote := f.remoteHikes.get(remoteID)
	require.NotNil(t, remote)
	assert.Equal(t, testUser, remote.OwnerID)
	assert.Equal(t, "Ridge", remote.Name)

	obs, err := f.remoteObs.List(context.Background(), secondary.ObservationFilters{})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, remoteID, obs[0].HikeID)
	assert.Equal(t, testUser, obs[0].OwnerID)
}

func TestMigrateGuestData_RetriesTransientWrites(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	failures := 2
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		if failures > 0 {
			failures--
			return errors.New("503 service unavailable")
		}
		return nil
	}

	res := terminalResult(t, run(t, f))

	assert.Equal(t, 1, res.MigratedHikes)
	assert.Zero(t, res.FailedItems)
	assert.Equal(t, 3, f.remoteHikes.writeCalls)
}

func TestMigrateGuestData_IDAcquisitionFailureAborts(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
	}{
		{"transient", apperr.Transient("surreal.new_id", errors.New("connection reset")), true},
		{"permanent", apperr.Permanent("surreal.new_id", errors.New("permission denied")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMigrationFixture()
			f.threeHikesFiveObservations()
			f.remoteHikes.nextIDErr = tt.err

			events := run(t, f)

			require.True(t, migration.ValidateSequence(events))
			last, ok := events[len(events)-1].(migration.Error)
			require.True(t, ok, "terminal event is %T", events[len(events)-1])
			assert.Equal(t, tt.wantRetryable, last.Retryable)
			assert.Contains(t, last.Message, "HIKE-001")
			assert.Empty(t, ofType[migration.MigratingObservations](events))
		})
	}
}

func TestMigrateGuestData_CancellationIsRetryable(t *testing.T) {
	f := newMigrationFixture()
	f.threeHikesFiveObservations()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		cancel()
		return context.Canceled
	}

	events, err := f.svc.MigrateGuestData(ctx, testGuest, testUser)
	require.NoError(t, err)
	got := drain(t, events)

	last, ok := got[len(got)-1].(migration.Error)
	require.True(t, ok, "terminal event is %T", got[len(got)-1])
	assert.True(t, last.Retryable)
	assert.Contains(t, last.Message, "cancelled")
	assert.Len(t, ofType[migration.MigratingHikes](got), 1)
}

func TestMigrateGuestData_UploadsImagesOfMigratedRecords(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.observation("OBS-001", "HIKE-001")
	f.image("ASSET-001", migration.EntityHike, "HIKE-001", 2048)
	f.image("ASSET-002", migration.EntityObservation, "OBS-001", 512)

	events := run(t, f)
	require.True(t, migration.ValidateSequence(events), "events: %#v", events)

	res := terminalResult(t, events)
	assert.Equal(t, 2, res.UploadedImages)
	assert.True(t, res.IsSuccessful())

	uploads := ofType[migration.UploadingImages](events)
	require.NotEmpty(t, uploads)
	assert.Equal(t, 0.0, uploads[0].Fraction)
	assert.Equal(t, 1.0, uploads[len(uploads)-1].Fraction)
	assert.Equal(t, 2, uploads[len(uploads)-1].Current)

	hike := f.remoteHikes.get(f.localHikes.get("HIKE-001").RemoteID)
	require.NotNil(t, hike)
	assert.True(t, strings.HasPrefix(hike.ImagePath, "https://objects.test/bucket/users/"+testUser+"/hikes/"))

	unsynced, _ := f.assets.ListByOwner(context.Background(), testGuest, true)
	assert.Empty(t, unsynced)
}

func TestMigrateGuestData_ImageOfFailedHikeNotAttempted(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.hike("HIKE-002", "Lake")
	f.image("ASSET-001", migration.EntityHike, "HIKE-002", 100)
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		if h.Name == "Lake" {
			return apperr.Validation("surreal.replace", "malformed document")
		}
		return nil
	}

	events := run(t, f)

	res := terminalResult(t, events)
	assert.Empty(t, ofType[migration.UploadingImages](events))
	assert.Zero(t, res.UploadedImages)
	assert.Equal(t, 2, res.FailedItems, "the hike and its image")
	assert.Empty(t, f.objects.objects)
}

func TestMigrateGuestData_FailedUploadIsARecordFailure(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.image("ASSET-001", migration.EntityHike, "HIKE-001", 100)
	f.objects.uploadErr = apperr.Permanent("objectstore.upload", errors.New("access denied"))

	res := terminalResult(t, run(t, f))

	assert.Equal(t, 1, res.MigratedHikes)
	assert.Zero(t, res.UploadedImages)
	assert.Equal(t, 1, res.FailedItems)
	assert.True(t, res.HasPartialSuccess())
}

func TestMigrateGuestData_SecondRunResumes(t *testing.T) {
	f := newMigrationFixture()
	f.threeHikesFiveObservations()
	broken := true
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		if broken && h.Name == "Hike two" {
			return apperr.Permanent("surreal.replace", errors.New("permission denied"))
		}
		return nil
	}
	first := terminalResult(t, run(t, f))
	require.Equal(t, 2, first.MigratedHikes)

	broken = false
	events := run(t, f)

	second := terminalResult(t, events)
	assert.Equal(t, 1, second.MigratedHikes)
	assert.Equal(t, 2, second.MigratedObservations)
	assert.True(t, second.IsSuccessful())

	remote, _ := f.remoteHikes.List(context.Background(), secondary.HikeFilters{OwnerID: testUser})
	assert.Len(t, remote, 3, "no hike is written twice")
}

func TestMigrateGuestData_SecondRunUploadsImagesLeftBehind(t *testing.T) {
	ctx := context.Background()
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.observation("OBS-001", "HIKE-001")
	hikeImage := f.image("ASSET-001", migration.EntityHike, "HIKE-001", 100)
	f.image("ASSET-002", migration.EntityObservation, "OBS-001", 50)
	f.objects.uploadErr = apperr.Transient("objectstore.upload", errors.New("503 service unavailable"))

	first := terminalResult(t, run(t, f))
	require.Equal(t, 1, first.MigratedHikes)
	require.Equal(t, 1, first.MigratedObservations)
	require.Equal(t, 2, first.FailedItems)

	// Cleaning up between runs must keep the records the images belong to.
	require.True(t, result.IsSuccess(f.svc.CleanupAfterMigration(ctx, testGuest)))
	require.NotNil(t, f.localHikes.get("HIKE-001"))
	assert.True(t, f.files.has(hikeImage))
	pending, err := result.Get(f.svc.CheckMigrationNeeded(ctx, testGuest))
	require.NoError(t, err)
	assert.True(t, pending.IsEmpty())
	assert.Equal(t, 2, pending.TotalImages)

	f.objects.uploadErr = nil
	events := run(t, f)
	require.True(t, migration.ValidateSequence(events), "events: %#v", events)
	assert.Empty(t, ofType[migration.MigratingHikes](events))
	assert.Empty(t, ofType[migration.MigratingObservations](events))

	second := terminalResult(t, events)
	assert.Equal(t, 2, second.UploadedImages)
	assert.Zero(t, second.MigratedHikes)
	assert.True(t, second.IsSuccessful())

	hike := f.remoteHikes.get(f.localHikes.get("HIKE-001").RemoteID)
	require.NotNil(t, hike)
	assert.True(t, strings.HasPrefix(hike.ImagePath, "https://objects.test/bucket/users/"+testUser+"/hikes/"))

	entry, _ := f.ledger.GetMigration(ctx, testGuest)
	require.NotNil(t, entry)
	assert.Equal(t, "success", entry.Outcome)

	require.True(t, result.IsSuccess(f.svc.CleanupAfterMigration(ctx, testGuest)))
	assert.Nil(t, f.localHikes.get("HIKE-001"))
	assert.False(t, f.files.has(hikeImage))
}

func TestMigrateGuestData_NoRemoteConfigured(t *testing.T) {
	f := newMigrationFixture()
	svc := NewMigrationService(f.localHikes, f.localObs, f.assets, f.files, nil, nil, nil, f.ledger, fastPolicy())

	events, err := svc.MigrateGuestData(context.Background(), testGuest, testUser)

	assert.Nil(t, events)
	assert.True(t, apperr.Is(err, apperr.KindPermanent))
}

func TestCleanupAfterMigration_KeepsUnmigratedData(t *testing.T) {
	f := newMigrationFixture()
	f.threeHikesFiveObservations()
	migratedImage := f.image("ASSET-001", migration.EntityHike, "HIKE-001", 100)
	keptImage := f.image("ASSET-002", migration.EntityHike, "HIKE-002", 100)
	f.remoteHikes.writeErr = func(h *secondary.HikeRecord) error {
		if h.Name == "Hike two" {
			return apperr.Permanent("surreal.replace", errors.New("permission denied"))
		}
		return nil
	}
	run(t, f)

	for i := 0; i < 2; i++ {
		r := f.svc.CleanupAfterMigration(context.Background(), testGuest)
		require.True(t, result.IsSuccess(r), "cleanup #%d: %#v", i+1, r)
	}

	hikes, _ := f.localHikes.List(context.Background(), secondary.HikeFilters{OwnerID: testGuest})
	require.Len(t, hikes, 1)
	assert.Equal(t, "HIKE-002", hikes[0].ID)

	obs, _ := f.localObs.List(context.Background(), secondary.ObservationFilters{OwnerID: testGuest})
	assert.Len(t, obs, 2)
	for _, o := range obs {
		assert.Equal(t, "HIKE-002", o.HikeID)
	}

	assert.False(t, f.files.has(migratedImage))
	assert.True(t, f.files.has(keptImage))
	assert.Empty(t, f.files.dirs, "guest directory still holds unmigrated data")

	entry, _ := f.ledger.GetMigration(context.Background(), testGuest)
	require.NotNil(t, entry)
	assert.True(t, entry.CleanedUp)
}

func TestCleanupAfterMigration_RemovesGuestDirectoryWhenEverythingMoved(t *testing.T) {
	f := newMigrationFixture()
	f.hike("HIKE-001", "Ridge")
	f.image("ASSET-001", migration.EntityHike, "HIKE-001", 100)
	require.True(t, terminalResult(t, run(t, f)).IsSuccessful())

	require.True(t, result.IsSuccess(f.svc.CleanupAfterMigration(context.Background(), testGuest)))
	require.True(t, result.IsSuccess(f.svc.CleanupAfterMigration(context.Background(), testGuest)))

	assert.Contains(t, f.files.dirs, "/assets/"+testGuest)
	stats, err := result.Get(f.svc.CheckMigrationNeeded(context.Background(), testGuest))
	require.NoError(t, err)
	assert.True(t, stats.IsEmpty())
}

func TestCleanupAfterMigration_NothingToClean(t *testing.T) {
	f := newMigrationFixture()

	assert.True(t, result.IsSuccess(f.svc.CleanupAfterMigration(context.Background(), testGuest)))
	assert.True(t, result.IsFailure(f.svc.CleanupAfterMigration(context.Background(), "")))
}
