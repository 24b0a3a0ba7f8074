package primary

import (
	"context"

	"github.com/example/hikelog/internal/core/auth"
)

// AccountService drives the authentication state: guest sessions, account
// registration and sign-in. It is the single writer of that state.
type AccountService interface {
	// StartGuest creates or restores the device's guest identity and enters guest mode.
	StartGuest(ctx context.Context) (*AccountStatus, error)

	// Register creates an account and signs in. When called from guest mode the
	// returned status names the guest whose data is waiting to be migrated.
	Register(ctx context.Context, req RegisterRequest) (*AccountStatus, error)

	SignIn(ctx context.Context, req SignInRequest) (*AccountStatus, error)

	// SignOut returns to guest mode if a guest identity exists, else to signed out.
	SignOut(ctx context.Context) (*AccountStatus, error)

	// Restore rebuilds the authentication state from persisted identity at startup.
	Restore(ctx context.Context) (*AccountStatus, error)

	Status(ctx context.Context) (*AccountStatus, error)
}

// RegisterRequest contains parameters for registering an account.
type RegisterRequest struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8"`
	DisplayName string `validate:"max=80"`
}

// SignInRequest contains parameters for signing in.
type SignInRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// AccountStatus describes the current authentication state.
type AccountStatus struct {
	State       auth.State
	Description string
	Mode        string
	GuestID     string
	// PendingMigrationGuestID is set when a guest's data has not yet been
	// migrated into the signed-in account.
	PendingMigrationGuestID string
}
