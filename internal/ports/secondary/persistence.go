// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"time"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/stream"
)

// HikeStream is a live sequence of hike lists. Close detaches the underlying listener.
type HikeStream = stream.Subscription[result.Result[[]*HikeRecord]]

// ObservationStream is a live sequence of observation lists.
type ObservationStream = stream.Subscription[result.Result[[]*ObservationRecord]]

// HikeRepository defines the secondary port for hike persistence.
// Local and remote stores both implement it; the provider picks one per call.
type HikeRepository interface {
	// NextID returns an ID for a new hike. For the remote store this is a
	// server-issued document ID and may fail like any remote call.
	NextID(ctx context.Context) (string, error)

	// Create persists a new hike. ID and OwnerID must be pre-populated.
	Create(ctx context.Context, hike *HikeRecord) error

	// GetByID retrieves a hike by its ID.
	GetByID(ctx context.Context, id string) (*HikeRecord, error)

	// List retrieves hikes matching the given filters, newest first.
	List(ctx context.Context, filters HikeFilters) ([]*HikeRecord, error)

	// Update replaces the mutable fields of an existing hike.
	Update(ctx context.Context, hike *HikeRecord) error

	// Delete removes a hike.
	Delete(ctx context.Context, id string) error

	// Watch streams the hikes matching filters, re-emitting on every change.
	Watch(ctx context.Context, filters HikeFilters) (*HikeStream, error)
}

// RemoteHikeRepository adds the keyed create-or-replace write used by migration.
// Replace is idempotent, so a retried write never duplicates a record.
type RemoteHikeRepository interface {
	HikeRepository
	Replace(ctx context.Context, hike *HikeRecord) error
}

// LocalHikeRepository adds the sync bookkeeping of the on-device store.
type LocalHikeRepository interface {
	HikeRepository

	// ListUnsynced returns the owner's hikes not yet migrated, in creation order.
	ListUnsynced(ctx context.Context, ownerID string) ([]*HikeRecord, error)

	// MarkSynced flags hikes as migrated, recording the remote ID of each.
	// Keys are local IDs, values remote IDs.
	MarkSynced(ctx context.Context, remoteIDs map[string]string) error

	// DeleteSynced removes the owner's migrated hikes that no longer have
	// local observations or unuploaded images, and returns how many were deleted.
	DeleteSynced(ctx context.Context, ownerID string) (int, error)

	// CountUnsynced returns how many of the owner's hikes are not yet migrated.
	CountUnsynced(ctx context.Context, ownerID string) (int, error)
}

// HikeRecord represents a hike as stored in persistence.
type HikeRecord struct {
	ID             string
	OwnerID        string
	Name           string
	Location       string
	Notes          string
	DistanceMeters float64
	StartedAt      string // RFC3339, may be empty
	ImagePath      string // local file path in the local store, object URL in the remote store
	Synced         bool
	RemoteID       string
	CreatedAt      string
	UpdatedAt      string
}

// HikeFilters contains filter options for querying hikes.
type HikeFilters struct {
	OwnerID string
	Query   string // case-insensitive match on name or location
	Limit   int
}

// ObservationRepository defines the secondary port for observation persistence.
type ObservationRepository interface {
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, obs *ObservationRecord) error
	GetByID(ctx context.Context, id string) (*ObservationRecord, error)
	List(ctx context.Context, filters ObservationFilters) ([]*ObservationRecord, error)
	Update(ctx context.Context, obs *ObservationRecord) error
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context, filters ObservationFilters) (*ObservationStream, error)

	// CountByHike returns the number of observations recorded on a hike.
	CountByHike(ctx context.Context, hikeID string) (int, error)
}

// RemoteObservationRepository adds the keyed create-or-replace write used by migration.
type RemoteObservationRepository interface {
	ObservationRepository
	Replace(ctx context.Context, obs *ObservationRecord) error
}

// LocalObservationRepository adds the sync bookkeeping of the on-device store.
type LocalObservationRepository interface {
	ObservationRepository
	ListUnsynced(ctx context.Context, ownerID string) ([]*ObservationRecord, error)
	MarkSynced(ctx context.Context, remoteIDs map[string]string) error
	// DeleteSynced keeps observations whose image is not yet uploaded.
	DeleteSynced(ctx context.Context, ownerID string) (int, error)
	CountUnsynced(ctx context.Context, ownerID string) (int, error)
}

// ObservationRecord represents an observation as stored in persistence.
type ObservationRecord struct {
	ID         string
	HikeID     string
	OwnerID    string
	Species    string
	Notes      string
	Latitude   float64
	Longitude  float64
	ObservedAt string
	ImagePath  string
	Synced     bool
	RemoteID   string
	CreatedAt  string
	UpdatedAt  string
}

// ObservationFilters contains filter options for querying observations.
type ObservationFilters struct {
	OwnerID string
	HikeID  string
	Limit   int
}

// AssetRepository tracks image files stored on the device.
type AssetRepository interface {
	GetNextID(ctx context.Context) (string, error)
	Create(ctx context.Context, asset *AssetRecord) error
	GetByID(ctx context.Context, id string) (*AssetRecord, error)

	// ListByOwner returns the owner's assets in creation order.
	ListByOwner(ctx context.Context, ownerID string, unsyncedOnly bool) ([]*AssetRecord, error)

	// ListSynced returns the owner's uploaded assets. An empty ownerID
	// matches every owner.
	ListSynced(ctx context.Context, ownerID string) ([]*AssetRecord, error)

	// ListSyncedBefore returns uploaded assets created before cutoff.
	ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]*AssetRecord, error)

	// MarkSynced flags assets as uploaded. Keys are asset IDs, values remote URLs.
	MarkSynced(ctx context.Context, remoteURLs map[string]string) error

	// Delete removes an asset row. Deleting an absent row is not an error.
	Delete(ctx context.Context, id string) error
}

// AssetRecord represents a locally stored image.
type AssetRecord struct {
	ID          string
	OwnerID     string
	EntityType  string // hike | observation
	EntityID    string
	Path        string
	ContentType string
	SizeBytes   int64
	Synced      bool
	RemoteURL   string
	CreatedAt   string
}
