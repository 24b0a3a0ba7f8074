package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/stream"
)

// ============================================================================
// Mock Implementations
// ============================================================================

var (
	_ secondary.LocalHikeRepository         = (*mockHikeRepository)(nil)
	_ secondary.RemoteHikeRepository        = (*mockHikeRepository)(nil)
	_ secondary.LocalObservationRepository  = (*mockObservationRepository)(nil)
	_ secondary.RemoteObservationRepository = (*mockObservationRepository)(nil)
	_ secondary.AssetRepository             = (*mockAssetRepository)(nil)
	_ secondary.FileStore                   = (*mockFileStore)(nil)
	_ secondary.ObjectStore                 = (*mockObjectStore)(nil)
	_ secondary.GuestIdentityStore          = (*mockIdentityStore)(nil)
	_ secondary.LogWriter                   = (*mockLogWriter)(nil)
	_ secondary.Authenticator               = (*mockAuthenticator)(nil)
)

// mockHikeRepository serves as both the local and the remote hike store.
type mockHikeRepository struct {
	mu      sync.Mutex
	prefix  string
	hikes   map[string]*secondary.HikeRecord
	order   []string
	counter int

	nextIDErr  error
	createErr  error
	writeErr   func(h *secondary.HikeRecord) error
	markErr    error
	writeCalls int
	children   *mockObservationRepository
	images     *mockAssetRepository
}

func newMockHikeRepository(prefix string) *mockHikeRepository {
	return &mockHikeRepository{prefix: prefix, hikes: make(map[string]*secondary.HikeRecord)}
}

func (m *mockHikeRepository) add(h *secondary.HikeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	if _, exists := m.hikes[h.ID]; !exists {
		m.order = append(m.order, h.ID)
	}
	m.hikes[h.ID] = &cp
}

func (m *mockHikeRepository) get(id string) *secondary.HikeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hikes[id]
	if !ok {
		return nil
	}
	cp := *h
	return &cp
}

func (m *mockHikeRepository) NextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextIDErr != nil {
		return "", m.nextIDErr
	}
	m.counter++
	return fmt.Sprintf("%s%03d", m.prefix, m.counter), nil
}

func (m *mockHikeRepository) Create(ctx context.Context, hike *secondary.HikeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	return m.Replace(ctx, hike)
}

func (m *mockHikeRepository) Replace(ctx context.Context, hike *secondary.HikeRecord) error {
	m.mu.Lock()
	m.writeCalls++
	m.mu.Unlock()
	if m.writeErr != nil {
		if err := m.writeErr(hike); err != nil {
			return err
		}
	}
	m.add(hike)
	return nil
}

func (m *mockHikeRepository) GetByID(ctx context.Context, id string) (*secondary.HikeRecord, error) {
	if h := m.get(id); h != nil {
		return h, nil
	}
	return nil, apperr.NotFound("hike.get", "hike %s not found", id)
}

func (m *mockHikeRepository) List(ctx context.Context, filters secondary.HikeFilters) ([]*secondary.HikeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.HikeRecord
	for _, id := range m.order {
		h := m.hikes[id]
		if h == nil {
			continue
		}
		if filters.OwnerID != "" && h.OwnerID != filters.OwnerID {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(h.Name+" "+h.Location), strings.ToLower(filters.Query)) {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockHikeRepository) Update(ctx context.Context, hike *secondary.HikeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hikes[hike.ID]
	if !ok {
		return apperr.NotFound("hike.update", "hike %s not found", hike.ID)
	}
	if hike.Name != "" {
		h.Name = hike.Name
	}
	if hike.Location != "" {
		h.Location = hike.Location
	}
	if hike.Notes != "" {
		h.Notes = hike.Notes
	}
	if hike.ImagePath != "" {
		h.ImagePath = hike.ImagePath
	}
	return nil
}

func (m *mockHikeRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hikes[id]; !ok {
		return apperr.NotFound("hike.delete", "hike %s not found", id)
	}
	delete(m.hikes, id)
	return nil
}

func (m *mockHikeRepository) Watch(ctx context.Context, filters secondary.HikeFilters) (*secondary.HikeStream, error) {
	sub := stream.NewSubscription[result.Result[[]*secondary.HikeRecord]](nil)
	sub.Offer(result.From(m.List(ctx, filters)))
	return sub, nil
}

func (m *mockHikeRepository) ListUnsynced(ctx context.Context, ownerID string) ([]*secondary.HikeRecord, error) {
	all, _ := m.List(ctx, secondary.HikeFilters{OwnerID: ownerID})
	var out []*secondary.HikeRecord
	for _, h := range all {
		if !h.Synced {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHikeRepository) MarkSynced(ctx context.Context, remoteIDs map[string]string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, remote := range remoteIDs {
		if h, ok := m.hikes[id]; ok {
			h.Synced = true
			h.RemoteID = remote
		}
	}
	return nil
}

// DeleteSynced keeps hikes that still have observations in children or an
// unsynced image in images.
func (m *mockHikeRepository) DeleteSynced(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, h := range m.hikes {
		if !h.Synced || h.OwnerID != ownerID {
			continue
		}
		if (m.children == nil || !m.children.hasHike(id)) && !m.images.hasUnsynced("hike", id) {
			delete(m.hikes, id)
			n++
		}
	}
	return n, nil
}

func (m *mockHikeRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	unsynced, _ := m.ListUnsynced(ctx, ownerID)
	return len(unsynced), nil
}

// mockObservationRepository serves as both the local and the remote observation store.
type mockObservationRepository struct {
	mu      sync.Mutex
	prefix  string
	obs     map[string]*secondary.ObservationRecord
	order   []string
	counter int

	nextIDErr error
	writeErr  func(o *secondary.ObservationRecord) error
	written   []string
	images    *mockAssetRepository
}

func newMockObservationRepository(prefix string) *mockObservationRepository {
	return &mockObservationRepository{prefix: prefix, obs: make(map[string]*secondary.ObservationRecord)}
}

func (m *mockObservationRepository) add(o *secondary.ObservationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	if _, exists := m.obs[o.ID]; !exists {
		m.order = append(m.order, o.ID)
	}
	m.obs[o.ID] = &cp
}

func (m *mockObservationRepository) NextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextIDErr != nil {
		return "", m.nextIDErr
	}
	m.counter++
	return fmt.Sprintf("%s%03d", m.prefix, m.counter), nil
}

func (m *mockObservationRepository) Create(ctx context.Context, obs *secondary.ObservationRecord) error {
	return m.Replace(ctx, obs)
}

func (m *mockObservationRepository) Replace(ctx context.Context, obs *secondary.ObservationRecord) error {
	if m.writeErr != nil {
		if err := m.writeErr(obs); err != nil {
			return err
		}
	}
	m.add(obs)
	m.mu.Lock()
	m.written = append(m.written, obs.ID)
	m.mu.Unlock()
	return nil
}

func (m *mockObservationRepository) GetByID(ctx context.Context, id string) (*secondary.ObservationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.obs[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, apperr.NotFound("observation.get", "observation %s not found", id)
}

func (m *mockObservationRepository) List(ctx context.Context, filters secondary.ObservationFilters) ([]*secondary.ObservationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ObservationRecord
	for _, id := range m.order {
		o := m.obs[id]
		if o == nil {
			continue
		}
		if filters.OwnerID != "" && o.OwnerID != filters.OwnerID {
			continue
		}
		if filters.HikeID != "" && o.HikeID != filters.HikeID {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockObservationRepository) Update(ctx context.Context, obs *secondary.ObservationRecord) error {
	return m.Replace(ctx, obs)
}

func (m *mockObservationRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.obs, id)
	return nil
}

func (m *mockObservationRepository) Watch(ctx context.Context, filters secondary.ObservationFilters) (*secondary.ObservationStream, error) {
	sub := stream.NewSubscription[result.Result[[]*secondary.ObservationRecord]](nil)
	sub.Offer(result.From(m.List(ctx, filters)))
	return sub, nil
}

func (m *mockObservationRepository) CountByHike(ctx context.Context, hikeID string) (int, error) {
	list, _ := m.List(ctx, secondary.ObservationFilters{HikeID: hikeID})
	return len(list), nil
}

func (m *mockObservationRepository) ListUnsynced(ctx context.Context, ownerID string) ([]*secondary.ObservationRecord, error) {
	all, _ := m.List(ctx, secondary.ObservationFilters{OwnerID: ownerID})
	var out []*secondary.ObservationRecord
	for _, o := range all {
		if !o.Synced {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockObservationRepository) MarkSynced(ctx context.Context, remoteIDs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, remote := range remoteIDs {
		if o, ok := m.obs[id]; ok {
			o.Synced = true
			o.RemoteID = remote
		}
	}
	return nil
}

func (m *mockObservationRepository) DeleteSynced(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, o := range m.obs {
		if o.OwnerID == ownerID && o.Synced && !m.images.hasUnsynced("observation", id) {
			delete(m.obs, id)
			n++
		}
	}
	return n, nil
}

func (m *mockObservationRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	list, _ := m.ListUnsynced(ctx, ownerID)
	return len(list), nil
}

func (m *mockObservationRepository) hasHike(hikeID string) bool {
	n, _ := m.CountByHike(context.Background(), hikeID)
	return n > 0
}

// mockAssetRepository implements secondary.AssetRepository for testing.
type mockAssetRepository struct {
	mu      sync.Mutex
	assets  map[string]*secondary.AssetRecord
	order   []string
	counter int
}

func newMockAssetRepository() *mockAssetRepository {
	return &mockAssetRepository{assets: make(map[string]*secondary.AssetRecord)}
}

// hasUnsynced is safe on a nil repository.
func (m *mockAssetRepository) hasUnsynced(entityType, entityID string) bool {
	if m == nil {
		return false
	}
	pending := m.filter(func(a *secondary.AssetRecord) bool {
		return !a.Synced && a.EntityType == entityType && a.EntityID == entityID
	})
	return len(pending) > 0
}

func (m *mockAssetRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("ASSET-%03d", m.counter), nil
}

func (m *mockAssetRepository) Create(ctx context.Context, asset *secondary.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *asset
	m.assets[asset.ID] = &cp
	m.order = append(m.order, asset.ID)
	return nil
}

func (m *mockAssetRepository) GetByID(ctx context.Context, id string) (*secondary.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperr.NotFound("asset.get", "asset %s not found", id)
}

func (m *mockAssetRepository) filter(keep func(a *secondary.AssetRecord) bool) []*secondary.AssetRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.AssetRecord
	for _, id := range m.order {
		if a, ok := m.assets[id]; ok && keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockAssetRepository) ListByOwner(ctx context.Context, ownerID string, unsyncedOnly bool) ([]*secondary.AssetRecord, error) {
	return m.filter(func(a *secondary.AssetRecord) bool {
		return a.OwnerID == ownerID && (!unsyncedOnly || !a.Synced)
	}), nil
}

func (m *mockAssetRepository) ListSynced(ctx context.Context, ownerID string) ([]*secondary.AssetRecord, error) {
	return m.filter(func(a *secondary.AssetRecord) bool {
		return a.Synced && (ownerID == "" || a.OwnerID == ownerID)
	}), nil
}

func (m *mockAssetRepository) ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]*secondary.AssetRecord, error) {
	return m.filter(func(a *secondary.AssetRecord) bool {
		created, err := time.Parse(time.RFC3339, a.CreatedAt)
		return a.Synced && err == nil && created.Before(cutoff)
	}), nil
}

func (m *mockAssetRepository) MarkSynced(ctx context.Context, remoteURLs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, url := range remoteURLs {
		if a, ok := m.assets[id]; ok {
			a.Synced = true
			a.RemoteURL = url
		}
	}
	return nil
}

func (m *mockAssetRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assets, id)
	return nil
}

// mockFileStore keeps "files" as sizes keyed by path.
type mockFileStore struct {
	mu        sync.Mutex
	files     map[string]int64
	saved     int
	deleteErr map[string]error
	dirs      []string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string]int64), deleteErr: make(map[string]error)}
}

func (m *mockFileStore) put(path string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = size
}

func (m *mockFileStore) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockFileStore) SaveFromURI(ctx context.Context, ownerID, sourceURI string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved++
	ext := sourceURI[strings.LastIndex(sourceURI, "."):]
	path := fmt.Sprintf("/assets/%s/img-%d%s", ownerID, m.saved, ext)
	m.files[path] = 1024
	return path, 1024, nil
}

func (m *mockFileStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[path]; err != nil {
		return err
	}
	delete(m.files, path)
	return nil
}

func (m *mockFileStore) Exists(ctx context.Context, path string) (bool, error) {
	return m.has(path), nil
}

func (m *mockFileStore) DirSize(ctx context.Context, dir string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for p, size := range m.files {
		if strings.HasPrefix(p, dir+"/") {
			total += size
		}
	}
	return total, nil
}

func (m *mockFileStore) DeleteDir(ctx context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = append(m.dirs, dir)
	for p := range m.files {
		if strings.HasPrefix(p, dir+"/") {
			delete(m.files, p)
		}
	}
	return nil
}

func (m *mockFileStore) OwnerDir(ownerID string) string {
	return "/assets/" + ownerID
}

func (m *mockFileStore) PrepareForUpload(ctx context.Context, paths []string) ([]secondary.UploadHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handles := make([]secondary.UploadHandle, len(paths))
	for i, p := range paths {
		size, ok := m.files[p]
		if !ok {
			return nil, apperr.New(apperr.KindPermanent, "files.prepare", "missing file "+p)
		}
		handles[i] = secondary.UploadHandle{
			Path: p,
			Size: size,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(strings.Repeat("x", int(size)))), nil
			},
		}
	}
	return handles, nil
}

// mockObjectStore reports progress in two halves.
type mockObjectStore struct {
	mu        sync.Mutex
	objects   map[string]int64
	uploadErr error
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string]int64)}
}

func (m *mockObjectStore) Upload(ctx context.Context, key string, handle secondary.UploadHandle, progress secondary.ProgressFunc) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if progress != nil {
		progress(handle.Size/2, handle.Size)
		progress(handle.Size, handle.Size)
	}
	m.mu.Lock()
	m.objects[key] = handle.Size
	m.mu.Unlock()
	return "https://objects.test/bucket/" + key, nil
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockObjectStore) DownloadURL(ctx context.Context, key string) (string, error) {
	return "https://objects.test/bucket/" + key + "?signed", nil
}

// mockIdentityStore implements secondary.GuestIdentityStore for testing.
type mockIdentityStore struct {
	mu         sync.Mutex
	guestID    string
	mode       secondary.OnboardingMode
	session    *secondary.SessionRecord
	migrations map[string]*secondary.MigrationLedgerRecord
}

func newMockIdentityStore() *mockIdentityStore {
	return &mockIdentityStore{migrations: make(map[string]*secondary.MigrationLedgerRecord)}
}

func (m *mockIdentityStore) GetGuestID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guestID, nil
}

func (m *mockIdentityStore) SaveGuestID(ctx context.Context, guestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guestID = guestID
	return nil
}

func (m *mockIdentityStore) ClearGuestID(ctx context.Context) error {
	return m.SaveGuestID(ctx, "")
}

func (m *mockIdentityStore) GetMode(ctx context.Context) (secondary.OnboardingMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, nil
}

func (m *mockIdentityStore) SetMode(ctx context.Context, mode secondary.OnboardingMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	return nil
}

func (m *mockIdentityStore) GetSession(ctx context.Context) (*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *mockIdentityStore) SaveSession(ctx context.Context, session *secondary.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	return nil
}

func (m *mockIdentityStore) ClearSession(ctx context.Context) error {
	return m.SaveSession(ctx, nil)
}

func (m *mockIdentityStore) RecordMigration(ctx context.Context, entry *secondary.MigrationLedgerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.migrations[entry.GuestID] = &cp
	return nil
}

func (m *mockIdentityStore) GetMigration(ctx context.Context, guestID string) (*secondary.MigrationLedgerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.migrations[guestID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

// mockLogWriter records activity entries in memory.
type mockLogWriter struct {
	mu      sync.Mutex
	entries []*secondary.ActivityRecord
}

func (m *mockLogWriter) append(action, entityType, entityID, field, oldValue, newValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, &secondary.ActivityRecord{
		ID:         int64(len(m.entries) + 1),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FieldName:  field,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
	return nil
}

func (m *mockLogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	return m.append("create", entityType, entityID, "", "", "")
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	return m.append("update", entityType, entityID, fieldName, oldValue, newValue)
}

func (m *mockLogWriter) LogDelete(ctx context.Context, entityType, entityID string) error {
	return m.append("delete", entityType, entityID, "", "", "")
}

func (m *mockLogWriter) Recent(ctx context.Context, limit int) ([]*secondary.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ActivityRecord
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockLogWriter) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action + " " + e.EntityType + " " + e.EntityID
	}
	return out
}

// mockAuthenticator accepts one password for every email.
type mockAuthenticator struct {
	users    map[string]*secondary.UserRecord
	password string
}

func newMockAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{users: make(map[string]*secondary.UserRecord), password: "correct horse"}
}

func (m *mockAuthenticator) Register(ctx context.Context, email, password, displayName string) (*secondary.UserRecord, error) {
	if _, exists := m.users[email]; exists {
		return nil, apperr.Validation("auth.register", "an account with email %s already exists", email)
	}
	u := &secondary.UserRecord{ID: fmt.Sprintf("user-%d", len(m.users)+1), Email: email, DisplayName: displayName}
	m.users[email] = u
	m.password = password
	return u, nil
}

func (m *mockAuthenticator) SignIn(ctx context.Context, email, password string) (*secondary.UserRecord, error) {
	u, ok := m.users[email]
	if !ok || password != m.password {
		return nil, apperr.Validation("auth.signin", "invalid email or password")
	}
	return u, nil
}
