package surreal

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/ports/secondary"
)

// HikeRepository implements secondary.RemoteHikeRepository with SurrealDB.
type HikeRepository struct {
	client *Client
}

// NewHikeRepository creates a new SurrealDB hike repository.
func NewHikeRepository(client *Client) *HikeRepository {
	return &HikeRepository{client: client}
}

// NextID asks the server for a fresh document ID.
func (r *HikeRepository) NextID(ctx context.Context) (string, error) {
	return r.client.NewID(ctx)
}

// Create stores a new hike document under hike.ID.
func (r *HikeRepository) Create(ctx context.Context, hike *secondary.HikeRecord) error {
	if hike.ID == "" {
		return fmt.Errorf("hike ID must be pre-populated by service layer")
	}
	doc := hikeToDocument(hike)
	_, err := run(ctx, r.client, "surreal.hikes.create", func(db *surrealdb.DB) (*hikeDocument, error) {
		return surrealdb.Create[hikeDocument](ctx, db, models.NewRecordID(hikesTable, hike.ID), doc)
	})
	return err
}

// Replace creates or overwrites the hike document keyed by hike.ID.
func (r *HikeRepository) Replace(ctx context.Context, hike *secondary.HikeRecord) error {
	if hike.ID == "" {
		return fmt.Errorf("hike ID must be pre-populated by service layer")
	}
	doc := hikeToDocument(hike)
	_, err := run(ctx, r.client, "surreal.hikes.replace", func(db *surrealdb.DB) (*hikeDocument, error) {
		return surrealdb.Upsert[hikeDocument](ctx, db, models.NewRecordID(hikesTable, hike.ID), doc)
	})
	return err
}

// GetByID retrieves a hike document.
func (r *HikeRepository) GetByID(ctx context.Context, id string) (*secondary.HikeRecord, error) {
	doc, err := run(ctx, r.client, "surreal.hikes.get", func(db *surrealdb.DB) (*hikeDocument, error) {
		doc, err := surrealdb.Select[hikeDocument](ctx, db, models.NewRecordID(hikesTable, id))
		if isNoRecord(err) {
			return nil, nil
		}
		return doc, err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == nil {
		return nil, apperr.NotFound("surreal.hikes.get", "hike %s not found", id)
	}
	return hikeFromDocument(doc), nil
}

// List retrieves hikes matching the given filters, newest first.
func (r *HikeRepository) List(ctx context.Context, filters secondary.HikeFilters) ([]*secondary.HikeRecord, error) {
	query := "SELECT * FROM hikes WHERE true"
	vars := map[string]any{}

	if filters.OwnerID != "" {
		query += " AND owner_id = $owner"
		vars["owner"] = filters.OwnerID
	}
	if filters.Query != "" {
		query += " AND (string::contains(string::lowercase(name), $q) OR string::contains(string::lowercase(location ?? ''), $q))"
		vars["q"] = strings.ToLower(filters.Query)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT $limit"
		vars["limit"] = filters.Limit
	}

	docs, err := run(ctx, r.client, "surreal.hikes.list", func(db *surrealdb.DB) ([]hikeDocument, error) {
		return queryAll[hikeDocument](ctx, db, query, vars)
	})
	if err != nil {
		return nil, err
	}

	hikes := make([]*secondary.HikeRecord, 0, len(docs))
	for i := range docs {
		hikes = append(hikes, hikeFromDocument(&docs[i]))
	}
	return hikes, nil
}

// Update merges the non-empty fields of hike into the stored document.
func (r *HikeRepository) Update(ctx context.Context, hike *secondary.HikeRecord) error {
	docs, err := run(ctx, r.client, "surreal.hikes.update", func(db *surrealdb.DB) ([]hikeDocument, error) {
		return queryAll[hikeDocument](ctx, db, "UPDATE $rid MERGE $patch RETURN AFTER", map[string]any{
			"rid":   models.NewRecordID(hikesTable, hike.ID),
			"patch": hikePatch(hike),
		})
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return apperr.NotFound("surreal.hikes.update", "hike %s not found", hike.ID)
	}
	return nil
}

// Delete removes a hike document.
func (r *HikeRepository) Delete(ctx context.Context, id string) error {
	docs, err := run(ctx, r.client, "surreal.hikes.delete", func(db *surrealdb.DB) ([]hikeDocument, error) {
		return queryAll[hikeDocument](ctx, db, "DELETE $rid RETURN BEFORE", map[string]any{
			"rid": models.NewRecordID(hikesTable, id),
		})
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return apperr.NotFound("surreal.hikes.delete", "hike %s not found", id)
	}
	return nil
}

// Watch streams the hikes matching filters through a live query.
func (r *HikeRepository) Watch(ctx context.Context, filters secondary.HikeFilters) (*secondary.HikeStream, error) {
	return watchTable(ctx, r.client, hikesTable, func(ctx context.Context) ([]*secondary.HikeRecord, error) {
		return r.List(ctx, filters)
	})
}

// Ensure HikeRepository implements the interface
var _ secondary.RemoteHikeRepository = (*HikeRepository)(nil)
