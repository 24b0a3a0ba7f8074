package primary

import (
	"context"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/stream"
)

// HikeService defines the primary port for hike operations.
// Every call resolves its repository once, from the current authentication state.
type HikeService interface {
	CreateHike(ctx context.Context, req CreateHikeRequest) result.Result[*Hike]
	GetHike(ctx context.Context, hikeID string) result.Result[*Hike]
	ListHikes(ctx context.Context, filters HikeFilters) result.Result[[]*Hike]
	SearchHikes(ctx context.Context, query string) result.Result[[]*Hike]
	UpdateHike(ctx context.Context, req UpdateHikeRequest) result.Result[*Hike]
	DeleteHike(ctx context.Context, req DeleteHikeRequest) result.Result[result.Unit]

	// AttachImage stores a photo for a hike: on the device in guest mode, in
	// object storage when signed in.
	AttachImage(ctx context.Context, req AttachImageRequest) result.Result[*Hike]

	// WatchHikes streams the current owner's hikes until the subscription is closed.
	WatchHikes(ctx context.Context) (*stream.Subscription[result.Result[[]*Hike]], error)
}

// CreateHikeRequest contains parameters for creating a hike.
type CreateHikeRequest struct {
	Name           string  `validate:"notblank,max=120"`
	Location       string  `validate:"max=200"`
	Notes          string
	DistanceMeters float64 `validate:"gte=0"`
	StartedAt      string  `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	// ImageURI optionally attaches a photo (path or file:// URI).
	ImageURI string
}

// UpdateHikeRequest contains parameters for updating a hike.
// Empty fields are left unchanged.
type UpdateHikeRequest struct {
	HikeID   string `validate:"notblank"`
	Name     string `validate:"max=120"`
	Location string
	Notes    string
}

// DeleteHikeRequest contains parameters for deleting a hike.
type DeleteHikeRequest struct {
	HikeID string `validate:"notblank"`
	Force  bool
}

// AttachImageRequest contains parameters for attaching a photo to a hike.
type AttachImageRequest struct {
	HikeID   string `validate:"notblank"`
	ImageURI string `validate:"notblank"`
}

// HikeFilters contains filter options for listing hikes.
type HikeFilters struct {
	Limit int
}

// Hike is the public view of a hike.
type Hike struct {
	ID             string
	OwnerID        string
	Name           string
	Location       string
	Notes          string
	DistanceMeters float64
	StartedAt      string
	ImageURL       string
	Backend        string
	CreatedAt      string
}
