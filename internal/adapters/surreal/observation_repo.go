package surreal

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/ports/secondary"
)

// ObservationRepository implements secondary.RemoteObservationRepository with SurrealDB.
type ObservationRepository struct {
	client *Client
}

// NewObservationRepository creates a new SurrealDB observation repository.
func NewObservationRepository(client *Client) *ObservationRepository {
	return &ObservationRepository{client: client}
}

// NextID asks the server for a fresh document ID.
func (r *ObservationRepository) NextID(ctx context.Context) (string, error) {
	return r.client.NewID(ctx)
}

// Create stores a new observation document under obs.ID.
func (r *ObservationRepository) Create(ctx context.Context, obs *secondary.ObservationRecord) error {
	if obs.ID == "" {
		return fmt.Errorf("observation ID must be pre-populated by service layer")
	}
	doc := observationToDocument(obs)
	_, err := run(ctx, r.client, "surreal.observations.create", func(db *surrealdb.DB) (*observationDocument, error) {
		return surrealdb.Create[observationDocument](ctx, db, models.NewRecordID(observationsTable, obs.ID), doc)
	})
	return err
}

// Replace creates or overwrites the observation document keyed by obs.ID.
func (r *ObservationRepository) Replace(ctx context.Context, obs *secondary.ObservationRecord) error {
	if obs.ID == "" {
		return fmt.Errorf("observation ID must be pre-populated by service layer")
	}
	doc := observationToDocument(obs)
	_, err := run(ctx, r.client, "surreal.observations.replace", func(db *surrealdb.DB) (*observationDocument, error) {
		return surrealdb.Upsert[observationDocument](ctx, db, models.NewRecordID(observationsTable, obs.ID), doc)
	})
	return err
}

// GetByID retrieves an observation document.
func (r *ObservationRepository) GetByID(ctx context.Context, id string) (*secondary.ObservationRecord, error) {
	doc, err := run(ctx, r.client, "surreal.observations.get", func(db *surrealdb.DB) (*observationDocument, error) {
		doc, err := surrealdb.Select[observationDocument](ctx, db, models.NewRecordID(observationsTable, id))
		if isNoRecord(err) {
			return nil, nil
		}
		return doc, err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == nil {
		return nil, apperr.NotFound("surreal.observations.get", "observation %s not found", id)
	}
	return observationFromDocument(doc), nil
}

// List retrieves observations matching the given filters in recording order.
func (r *ObservationRepository) List(ctx context.Context, filters secondary.ObservationFilters) ([]*secondary.ObservationRecord, error) {
	query := "SELECT * FROM observations WHERE true"
	vars := map[string]any{}

	if filters.OwnerID != "" {
		query += " AND owner_id = $owner"
		vars["owner"] = filters.OwnerID
	}
	if filters.HikeID != "" {
		query += " AND hike_id = $hike"
		vars["hike"] = filters.HikeID
	}

	query += " ORDER BY created_at ASC"

	if filters.Limit > 0 {
		query += " LIMIT $limit"
		vars["limit"] = filters.Limit
	}

	docs, err := run(ctx, r.client, "surreal.observations.list", func(db *surrealdb.DB) ([]observationDocument, error) {
		return queryAll[observationDocument](ctx, db, query, vars)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*secondary.ObservationRecord, 0, len(docs))
	for i := range docs {
		out = append(out, observationFromDocument(&docs[i]))
	}
	return out, nil
}

// Update merges the non-empty fields of obs into the stored document.
func (r *ObservationRepository) Update(ctx context.Context, obs *secondary.ObservationRecord) error {
	docs, err := run(ctx, r.client, "surreal.observations.update", func(db *surrealdb.DB) ([]observationDocument, error) {
		return queryAll[observationDocument](ctx, db, "UPDATE $rid MERGE $patch RETURN AFTER", map[string]any{
			"rid":   models.NewRecordID(observationsTable, obs.ID),
			"patch": observationPatch(obs),
		})
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return apperr.NotFound("surreal.observations.update", "observation %s not found", obs.ID)
	}
	return nil
}

// Delete removes an observation document.
func (r *ObservationRepository) Delete(ctx context.Context, id string) error {
	docs, err := run(ctx, r.client, "surreal.observations.delete", func(db *surrealdb.DB) ([]observationDocument, error) {
		return queryAll[observationDocument](ctx, db, "DELETE $rid RETURN BEFORE", map[string]any{
			"rid": models.NewRecordID(observationsTable, id),
		})
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return apperr.NotFound("surreal.observations.delete", "observation %s not found", id)
	}
	return nil
}

// CountByHike returns the number of observations recorded on a hike.
func (r *ObservationRepository) CountByHike(ctx context.Context, hikeID string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}
	rows, err := run(ctx, r.client, "surreal.observations.count", func(db *surrealdb.DB) ([]countRow, error) {
		return queryAll[countRow](ctx, db,
			"SELECT count() AS count FROM observations WHERE hike_id = $hike GROUP ALL",
			map[string]any{"hike": hikeID})
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// Watch streams the observations matching filters through a live query.
func (r *ObservationRepository) Watch(ctx context.Context, filters secondary.ObservationFilters) (*secondary.ObservationStream, error) {
	return watchTable(ctx, r.client, observationsTable, func(ctx context.Context) ([]*secondary.ObservationRecord, error) {
		return r.List(ctx, filters)
	})
}

// Ensure ObservationRepository implements the interface
var _ secondary.RemoteObservationRepository = (*ObservationRepository)(nil)
