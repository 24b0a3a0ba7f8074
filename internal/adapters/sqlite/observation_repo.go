package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/hikelog/internal/apperr"
	coreobservation "github.com/example/hikelog/internal/core/observation"
	"github.com/example/hikelog/internal/ports/secondary"
)

const observationColumns = "id, hike_id, owner_id, species, notes, latitude, longitude, observed_at, image_path, synced, remote_id, created_at, updated_at"

// ObservationRepository implements secondary.LocalObservationRepository with SQLite.
type ObservationRepository struct {
	db   *sql.DB
	feed changeFeed
}

// NewObservationRepository creates a new SQLite observation repository.
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db, feed: newChangeFeed()}
}

// NextID returns the next available local observation ID.
func (r *ObservationRepository) NextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM observations WHERE id LIKE 'OBS-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next observation ID: %w", err)
	}

	return coreobservation.GenerateObservationID(maxID), nil
}

// Create persists a new observation. The parent hike must exist locally.
func (r *ObservationRepository) Create(ctx context.Context, obs *secondary.ObservationRecord) error {
	if obs.ID == "" {
		return fmt.Errorf("observation ID must be pre-populated by service layer")
	}
	if obs.HikeID == "" {
		return fmt.Errorf("observation HikeID must be pre-populated by service layer")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO observations (id, hike_id, owner_id, species, notes, latitude, longitude, observed_at, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.HikeID, obs.OwnerID, obs.Species, nullString(obs.Notes),
		obs.Latitude, obs.Longitude, nullTime(obs.ObservedAt), nullString(obs.ImagePath),
	)
	if err != nil {
		return fmt.Errorf("failed to create observation: %w", err)
	}

	r.feed.notify()
	return nil
}

// GetByID retrieves an observation by its ID.
func (r *ObservationRepository) GetByID(ctx context.Context, id string) (*secondary.ObservationRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+observationColumns+" FROM observations WHERE id = ?", id)
	record, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("sqlite.observations.get", "observation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return record, nil
}

// List retrieves observations matching the given filters in the order they were recorded.
func (r *ObservationRepository) List(ctx context.Context, filters secondary.ObservationFilters) ([]*secondary.ObservationRecord, error) {
	query := "SELECT " + observationColumns + " FROM observations WHERE 1=1"
	args := []any{}

	if filters.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filters.OwnerID)
	}
	if filters.HikeID != "" {
		query += " AND hike_id = ?"
		args = append(args, filters.HikeID)
	}

	query += " ORDER BY rowid"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.query(ctx, query, args...)
}

// Update updates an existing observation. Empty fields are left unchanged.
func (r *ObservationRepository) Update(ctx context.Context, obs *secondary.ObservationRecord) error {
	query := "UPDATE observations SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}

	if obs.Species != "" {
		query += ", species = ?"
		args = append(args, obs.Species)
	}
	if obs.Notes != "" {
		query += ", notes = ?"
		args = append(args, obs.Notes)
	}
	if obs.ImagePath != "" {
		query += ", image_path = ?"
		args = append(args, obs.ImagePath)
	}

	query += " WHERE id = ?"
	args = append(args, obs.ID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update observation: %w", err)
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return apperr.NotFound("sqlite.observations.update", "observation %s not found", obs.ID)
	}

	r.feed.notify()
	return nil
}

// Delete removes an observation from persistence.
func (r *ObservationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM observations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return apperr.NotFound("sqlite.observations.delete", "observation %s not found", id)
	}

	r.feed.notify()
	return nil
}

// Watch streams the observations matching filters.
func (r *ObservationRepository) Watch(ctx context.Context, filters secondary.ObservationFilters) (*secondary.ObservationStream, error) {
	return watch(ctx, r.feed, func(ctx context.Context) ([]*secondary.ObservationRecord, error) {
		return r.List(ctx, filters)
	}), nil
}

// CountByHike returns the number of observations recorded on a hike.
func (r *ObservationRepository) CountByHike(ctx context.Context, hikeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations WHERE hike_id = ?",
		hikeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}

	return count, nil
}

// ListUnsynced returns the owner's observations not yet migrated, in creation order.
func (r *ObservationRepository) ListUnsynced(ctx context.Context, ownerID string) ([]*secondary.ObservationRecord, error) {
	return r.query(ctx,
		"SELECT "+observationColumns+" FROM observations WHERE owner_id = ? AND synced = 0 ORDER BY rowid",
		ownerID,
	)
}

// MarkSynced flags observations as migrated in one transaction.
func (r *ObservationRepository) MarkSynced(ctx context.Context, remoteIDs map[string]string) error {
	if len(remoteIDs) == 0 {
		return nil
	}
	if err := markSynced(ctx, r.db, "observations", remoteIDs); err != nil {
		return fmt.Errorf("failed to mark observations synced: %w", err)
	}
	r.feed.notify()
	return nil
}

// DeleteSynced removes the owner's migrated observations, except those whose
// image is not yet uploaded.
func (r *ObservationRepository) DeleteSynced(ctx context.Context, ownerID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM observations WHERE owner_id = ? AND synced = 1
		 AND NOT EXISTS (SELECT 1 FROM assets a
		                 WHERE a.entity_type = 'observation' AND a.entity_id = observations.id AND a.synced = 0)`,
		ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete synced observations: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		r.feed.notify()
	}
	return int(n), nil
}

// CountUnsynced returns how many of the owner's observations are not yet migrated.
func (r *ObservationRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations WHERE owner_id = ? AND synced = 0",
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced observations: %w", err)
	}

	return count, nil
}

func (r *ObservationRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.ObservationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var observations []*secondary.ObservationRecord
	for rows.Next() {
		record, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, record)
	}

	return observations, rows.Err()
}

func scanObservation(s scanner) (*secondary.ObservationRecord, error) {
	var (
		notes      sql.NullString
		observedAt sql.NullTime
		imagePath  sql.NullString
		remoteID   sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)

	record := &secondary.ObservationRecord{}
	err := s.Scan(&record.ID, &record.HikeID, &record.OwnerID, &record.Species, &notes,
		&record.Latitude, &record.Longitude, &observedAt, &imagePath, &record.Synced, &remoteID,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.Notes = notes.String
	record.ObservedAt = formatNullTime(observedAt)
	record.ImagePath = imagePath.String
	record.RemoteID = remoteID.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

// Ensure ObservationRepository implements the interface
var _ secondary.LocalObservationRepository = (*ObservationRepository)(nil)
