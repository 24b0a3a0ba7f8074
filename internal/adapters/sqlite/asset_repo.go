package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/hikelog/internal/apperr"
	coreasset "github.com/example/hikelog/internal/core/asset"
	"github.com/example/hikelog/internal/ports/secondary"
)

const assetColumns = "id, owner_id, entity_type, entity_id, path, content_type, size_bytes, synced, remote_url, created_at"

// sqliteTimestamp matches the text CURRENT_TIMESTAMP writes, so cutoffs
// compare correctly against stored rows.
const sqliteTimestamp = "2006-01-02 15:04:05"

// AssetRepository implements secondary.AssetRepository with SQLite.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new SQLite asset repository.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetNextID returns the next available asset ID.
func (r *AssetRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 7) AS INTEGER)), 0) FROM assets",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next asset ID: %w", err)
	}

	return coreasset.GenerateAssetID(maxID), nil
}

// Create persists a new asset row.
func (r *AssetRepository) Create(ctx context.Context, asset *secondary.AssetRecord) error {
	if asset.ID == "" {
		return fmt.Errorf("asset ID must be pre-populated by service layer")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, owner_id, entity_type, entity_id, path, content_type, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.OwnerID, asset.EntityType, asset.EntityID, asset.Path,
		nullString(asset.ContentType), asset.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an asset by its ID.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*secondary.AssetRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	record, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("sqlite.assets.get", "asset %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return record, nil
}

// ListByOwner returns the owner's assets in creation order.
func (r *AssetRepository) ListByOwner(ctx context.Context, ownerID string, unsyncedOnly bool) ([]*secondary.AssetRecord, error) {
	query := "SELECT " + assetColumns + " FROM assets WHERE owner_id = ?"
	if unsyncedOnly {
		query += " AND synced = 0"
	}
	query += " ORDER BY rowid"

	return r.query(ctx, query, ownerID)
}

// ListSynced returns uploaded assets, for one owner or for all when ownerID is empty.
func (r *AssetRepository) ListSynced(ctx context.Context, ownerID string) ([]*secondary.AssetRecord, error) {
	if ownerID == "" {
		return r.query(ctx, "SELECT "+assetColumns+" FROM assets WHERE synced = 1 ORDER BY rowid")
	}
	return r.query(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE owner_id = ? AND synced = 1 ORDER BY rowid",
		ownerID,
	)
}

// ListSyncedBefore returns uploaded assets created before cutoff.
func (r *AssetRepository) ListSyncedBefore(ctx context.Context, cutoff time.Time) ([]*secondary.AssetRecord, error) {
	return r.query(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE synced = 1 AND created_at < ? ORDER BY rowid",
		cutoff.UTC().Format(sqliteTimestamp),
	)
}

// MarkSynced flags assets as uploaded in one transaction.
func (r *AssetRepository) MarkSynced(ctx context.Context, remoteURLs map[string]string) error {
	if len(remoteURLs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for id, url := range remoteURLs {
		_, err := tx.ExecContext(ctx,
			"UPDATE assets SET synced = 1, remote_url = ? WHERE id = ?",
			url, id,
		)
		if err != nil {
			return fmt.Errorf("failed to mark asset %s synced: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit asset sync: %w", err)
	}
	return nil
}

// Delete removes an asset row. Deleting an absent row is not an error.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

func (r *AssetRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.AssetRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*secondary.AssetRecord
	for rows.Next() {
		record, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, record)
	}

	return assets, rows.Err()
}

func scanAsset(s scanner) (*secondary.AssetRecord, error) {
	var (
		contentType sql.NullString
		remoteURL   sql.NullString
		createdAt   time.Time
	)

	record := &secondary.AssetRecord{}
	err := s.Scan(&record.ID, &record.OwnerID, &record.EntityType, &record.EntityID, &record.Path,
		&contentType, &record.SizeBytes, &record.Synced, &remoteURL, &createdAt)
	if err != nil {
		return nil, err
	}

	record.ContentType = contentType.String
	record.RemoteURL = remoteURL.String
	record.CreatedAt = createdAt.Format(time.RFC3339)

	return record, nil
}

// Ensure AssetRepository implements the interface
var _ secondary.AssetRepository = (*AssetRepository)(nil)
