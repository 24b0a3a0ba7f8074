package primary

import (
	"context"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/stream"
)

// ObservationService defines the primary port for observation operations.
type ObservationService interface {
	RecordObservation(ctx context.Context, req RecordObservationRequest) result.Result[*Observation]
	ListObservations(ctx context.Context, hikeID string) result.Result[[]*Observation]
	DeleteObservation(ctx context.Context, observationID string) result.Result[result.Unit]
	WatchObservations(ctx context.Context, hikeID string) (*stream.Subscription[result.Result[[]*Observation]], error)
}

// RecordObservationRequest contains parameters for recording an observation.
type RecordObservationRequest struct {
	HikeID     string  `validate:"notblank"`
	Species    string  `validate:"notblank"`
	Notes      string
	Latitude   float64 `validate:"latitude"`
	Longitude  float64 `validate:"longitude"`
	ObservedAt string  `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ImageURI   string
}

// Observation is the public view of an observation.
type Observation struct {
	ID         string
	HikeID     string
	OwnerID    string
	Species    string
	Notes      string
	Latitude   float64
	Longitude  float64
	ObservedAt string
	ImageURL   string
	CreatedAt  string
}
