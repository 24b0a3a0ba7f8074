package primary

import (
	"context"
	"time"
)

// ImageCleanupService removes local copies of images that already live in
// object storage. It runs independently of migration.
type ImageCleanupService interface {
	// CleanupOlderThan deletes synced local images created more than retention ago.
	// Unsynced images are never deleted.
	CleanupOlderThan(ctx context.Context, retention time.Duration) (*ImageCleanupReport, error)
}

// ImageCleanupReport summarises a cleanup pass.
type ImageCleanupReport struct {
	Deleted    int
	FreedBytes int64
	Errors     []string
}

// ActivityService exposes the local activity log.
type ActivityService interface {
	Recent(ctx context.Context, limit int) ([]*ActivityEntry, error)
}

// ActivityEntry is one activity log line.
type ActivityEntry struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Detail     string
	CreatedAt  string
}
