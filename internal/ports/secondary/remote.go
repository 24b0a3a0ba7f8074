package secondary

import "context"

// ObjectStore defines the secondary port for remote binary storage.
type ObjectStore interface {
	// Upload streams the handle's content to key and returns its durable URL.
	// progress, if non-nil, is called as bytes are sent.
	Upload(ctx context.Context, key string, handle UploadHandle, progress ProgressFunc) (string, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, key string) error

	// DownloadURL resolves a time-limited URL for reading key.
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Authenticator verifies credentials against the account backend.
// Credential verification itself happens remotely; the application only
// consumes the resulting user.
type Authenticator interface {
	Register(ctx context.Context, email, password, displayName string) (*UserRecord, error)
	SignIn(ctx context.Context, email, password string) (*UserRecord, error)
}

// UserRecord is an account as returned by the Authenticator.
type UserRecord struct {
	ID          string
	Email       string
	DisplayName string
}
