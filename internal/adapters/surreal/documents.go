package surreal

import (
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/example/hikelog/internal/ports/secondary"
)

const (
	hikesTable        = "hikes"
	observationsTable = "observations"
	usersTable        = "users"
)

// Timestamps are stored as RFC3339 strings so documents read back the
// same way regardless of codec.
type hikeDocument struct {
	ID             *models.RecordID `json:"id,omitempty"`
	OwnerID        string           `json:"owner_id"`
	Name           string           `json:"name"`
	Location       string           `json:"location,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	DistanceMeters float64          `json:"distance_meters"`
	StartedAt      string           `json:"started_at,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type observationDocument struct {
	ID         *models.RecordID `json:"id,omitempty"`
	HikeID     string           `json:"hike_id"`
	OwnerID    string           `json:"owner_id"`
	Species    string           `json:"species"`
	Notes      string           `json:"notes,omitempty"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	ObservedAt string           `json:"observed_at,omitempty"`
	ImageURL   string           `json:"image_url,omitempty"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
}

type userDocument struct {
	ID          *models.RecordID `json:"id,omitempty"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
}

// recordKey returns the identifier part of a record ID ("abc" for hikes:abc).
func recordKey(rid *models.RecordID) string {
	if rid == nil {
		return ""
	}
	return fmt.Sprint(rid.ID)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func hikeToDocument(h *secondary.HikeRecord) hikeDocument {
	doc := hikeDocument{
		OwnerID:        h.OwnerID,
		Name:           h.Name,
		Location:       h.Location,
		Notes:          h.Notes,
		DistanceMeters: h.DistanceMeters,
		StartedAt:      h.StartedAt,
		ImageURL:       h.ImagePath,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      now(),
	}
	if doc.CreatedAt == "" {
		doc.CreatedAt = doc.UpdatedAt
	}
	return doc
}

func hikeFromDocument(doc *hikeDocument) *secondary.HikeRecord {
	return &secondary.HikeRecord{
		ID:             recordKey(doc.ID),
		OwnerID:        doc.OwnerID,
		Name:           doc.Name,
		Location:       doc.Location,
		Notes:          doc.Notes,
		DistanceMeters: doc.DistanceMeters,
		StartedAt:      doc.StartedAt,
		ImagePath:      doc.ImageURL,
		Synced:         true,
		RemoteID:       recordKey(doc.ID),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func observationToDocument(o *secondary.ObservationRecord) observationDocument {
	doc := observationDocument{
		HikeID:     o.HikeID,
		OwnerID:    o.OwnerID,
		Species:    o.Species,
		Notes:      o.Notes,
		Latitude:   o.Latitude,
		Longitude:  o.Longitude,
		ObservedAt: o.ObservedAt,
		ImageURL:   o.ImagePath,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  now(),
	}
	if doc.CreatedAt == "" {
		doc.CreatedAt = doc.UpdatedAt
	}
	return doc
}

func observationFromDocument(doc *observationDocument) *secondary.ObservationRecord {
	return &secondary.ObservationRecord{
		ID:         recordKey(doc.ID),
		HikeID:     doc.HikeID,
		OwnerID:    doc.OwnerID,
		Species:    doc.Species,
		Notes:      doc.Notes,
		Latitude:   doc.Latitude,
		Longitude:  doc.Longitude,
		ObservedAt: doc.ObservedAt,
		ImagePath:  doc.ImageURL,
		Synced:     true,
		RemoteID:   recordKey(doc.ID),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// hikePatch holds only the fields an update changes.
func hikePatch(h *secondary.HikeRecord) map[string]any {
	patch := map[string]any{"updated_at": now()}
	if h.Name != "" {
		patch["name"] = h.Name
	}
	if h.Location != "" {
		patch["location"] = h.Location
	}
	if h.Notes != "" {
		patch["notes"] = h.Notes
	}
	if h.ImagePath != "" {
		patch["image_url"] = h.ImagePath
	}
	return patch
}

func observationPatch(o *secondary.ObservationRecord) map[string]any {
	patch := map[string]any{"updated_at": now()}
	if o.Species != "" {
		patch["species"] = o.Species
	}
	if o.Notes != "" {
		patch["notes"] = o.Notes
	}
	if o.ImagePath != "" {
		patch["image_url"] = o.ImagePath
	}
	return patch
}
