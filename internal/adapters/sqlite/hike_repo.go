// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/hikelog/internal/apperr"
	corehike "github.com/example/hikelog/internal/core/hike"
	"github.com/example/hikelog/internal/ports/secondary"
)

const hikeColumns = "id, owner_id, name, location, notes, distance_meters, started_at, image_path, synced, remote_id, created_at, updated_at"

// HikeRepository implements secondary.LocalHikeRepository with SQLite.
type HikeRepository struct {
	db   *sql.DB
	feed changeFeed
}

// NewHikeRepository creates a new SQLite hike repository.
func NewHikeRepository(db *sql.DB) *HikeRepository {
	return &HikeRepository{db: db, feed: newChangeFeed()}
}

// NextID returns the next available local hike ID.
func (r *HikeRepository) NextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM hikes WHERE id LIKE 'HIKE-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next hike ID: %w", err)
	}

	return corehike.GenerateHikeID(maxID), nil
}

// Create persists a new hike.
// The hike record must have ID and OwnerID pre-populated by the service layer.
func (r *HikeRepository) Create(ctx context.Context, hike *secondary.HikeRecord) error {
	if hike.ID == "" {
		return fmt.Errorf("hike ID must be pre-populated by service layer")
	}
	if hike.OwnerID == "" {
		return fmt.Errorf("hike OwnerID must be pre-populated by service layer")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hikes (id, owner_id, name, location, notes, distance_meters, started_at, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hike.ID, hike.OwnerID, hike.Name,
		nullString(hike.Location), nullString(hike.Notes),
		hike.DistanceMeters, nullTime(hike.StartedAt), nullString(hike.ImagePath),
	)
	if err != nil {
		return fmt.Errorf("failed to create hike: %w", err)
	}

	r.feed.notify()
	return nil
}

// GetByID retrieves a hike by its ID.
func (r *HikeRepository) GetByID(ctx context.Context, id string) (*secondary.HikeRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+hikeColumns+" FROM hikes WHERE id = ?", id)
	record, err := scanHike(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("sqlite.hikes.get", "hike %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hike: %w", err)
	}
	return record, nil
}

// List retrieves hikes matching the given filters, newest first.
func (r *HikeRepository) List(ctx context.Context, filters secondary.HikeFilters) ([]*secondary.HikeRecord, error) {
	query := "SELECT " + hikeColumns + " FROM hikes WHERE 1=1"
	args := []any{}

	if filters.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filters.OwnerID)
	}
	if filters.Query != "" {
		query += " AND (name LIKE ? OR location LIKE ?)"
		pattern := "%" + filters.Query + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.query(ctx, query, args...)
}

// Update updates an existing hike. Empty fields are left unchanged.
func (r *HikeRepository) Update(ctx context.Context, hike *secondary.HikeRecord) error {
	query := "UPDATE hikes SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}

	if hike.Name != "" {
		query += ", name = ?"
		args = append(args, hike.Name)
	}
	if hike.Location != "" {
		query += ", location = ?"
		args = append(args, hike.Location)
	}
	if hike.Notes != "" {
		query += ", notes = ?"
		args = append(args, hike.Notes)
	}
	if hike.ImagePath != "" {
		query += ", image_path = ?"
		args = append(args, hike.ImagePath)
	}

	query += " WHERE id = ?"
	args = append(args, hike.ID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update hike: %w", err)
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return apperr.NotFound("sqlite.hikes.update", "hike %s not found", hike.ID)
	}

	r.feed.notify()
	return nil
}

// Delete removes a hike from persistence.
func (r *HikeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM hikes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete hike: %w", err)
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return apperr.NotFound("sqlite.hikes.delete", "hike %s not found", id)
	}

	r.feed.notify()
	return nil
}

// Watch streams the hikes matching filters, re-querying after every write
// made through this repository.
func (r *HikeRepository) Watch(ctx context.Context, filters secondary.HikeFilters) (*secondary.HikeStream, error) {
	return watch(ctx, r.feed, func(ctx context.Context) ([]*secondary.HikeRecord, error) {
		return r.List(ctx, filters)
	}), nil
}

// ListUnsynced returns the owner's hikes not yet migrated, in creation order.
func (r *HikeRepository) ListUnsynced(ctx context.Context, ownerID string) ([]*secondary.HikeRecord, error) {
	return r.query(ctx,
		"SELECT "+hikeColumns+" FROM hikes WHERE owner_id = ? AND synced = 0 ORDER BY rowid",
		ownerID,
	)
}

// MarkSynced flags hikes as migrated in one transaction.
func (r *HikeRepository) MarkSynced(ctx context.Context, remoteIDs map[string]string) error {
	if len(remoteIDs) == 0 {
		return nil
	}
	if err := markSynced(ctx, r.db, "hikes", remoteIDs); err != nil {
		return fmt.Errorf("failed to mark hikes synced: %w", err)
	}
	r.feed.notify()
	return nil
}

// DeleteSynced removes the owner's migrated hikes. Hikes that still have
// local observations or an image not yet uploaded are kept.
func (r *HikeRepository) DeleteSynced(ctx context.Context, ownerID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM hikes WHERE owner_id = ? AND synced = 1
		 AND NOT EXISTS (SELECT 1 FROM observations o WHERE o.hike_id = hikes.id)
		 AND NOT EXISTS (SELECT 1 FROM assets a
		                 WHERE a.entity_type = 'hike' AND a.entity_id = hikes.id AND a.synced = 0)`,
		ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete synced hikes: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		r.feed.notify()
	}
	return int(n), nil
}

// CountUnsynced returns how many of the owner's hikes are not yet migrated.
func (r *HikeRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hikes WHERE owner_id = ? AND synced = 0",
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced hikes: %w", err)
	}

	return count, nil
}

func (r *HikeRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.HikeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list hikes: %w", err)
	}
	defer rows.Close()

	var hikes []*secondary.HikeRecord
	for rows.Next() {
		record, err := scanHike(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hike: %w", err)
		}
		hikes = append(hikes, record)
	}

	return hikes, rows.Err()
}

func scanHike(s scanner) (*secondary.HikeRecord, error) {
	var (
		location  sql.NullString
		notes     sql.NullString
		startedAt sql.NullTime
		imagePath sql.NullString
		remoteID  sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.HikeRecord{}
	err := s.Scan(&record.ID, &record.OwnerID, &record.Name, &location, &notes,
		&record.DistanceMeters, &startedAt, &imagePath, &record.Synced, &remoteID,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.Location = location.String
	record.Notes = notes.String
	record.StartedAt = formatNullTime(startedAt)
	record.ImagePath = imagePath.String
	record.RemoteID = remoteID.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

// Ensure HikeRepository implements the interface
var _ secondary.LocalHikeRepository = (*HikeRepository)(nil)
