package secondary

import "context"

// OnboardingMode records how the user chose to start using the app.
type OnboardingMode string

const (
	OnboardingNone    OnboardingMode = ""
	OnboardingGuest   OnboardingMode = "guest"
	OnboardingAccount OnboardingMode = "account"
)

// GuestIdentityStore persists the guest identity and session bookkeeping
// across process restarts.
type GuestIdentityStore interface {
	// GetGuestID returns the stored guest ID, or "" when none exists.
	GetGuestID(ctx context.Context) (string, error)
	SaveGuestID(ctx context.Context, guestID string) error
	ClearGuestID(ctx context.Context) error

	GetMode(ctx context.Context) (OnboardingMode, error)
	SetMode(ctx context.Context, mode OnboardingMode) error

	// GetSession returns the signed-in session, or nil when signed out.
	GetSession(ctx context.Context) (*SessionRecord, error)
	SaveSession(ctx context.Context, session *SessionRecord) error
	ClearSession(ctx context.Context) error

	// RecordMigration stores the outcome of a guest migration.
	RecordMigration(ctx context.Context, entry *MigrationLedgerRecord) error
	// GetMigration returns the last recorded migration of a guest, or nil.
	GetMigration(ctx context.Context, guestID string) (*MigrationLedgerRecord, error)
}

// SessionRecord is the persisted signed-in user.
type SessionRecord struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	SignedInAt  string `json:"signed_in_at"`
}

// MigrationLedgerRecord remembers which account a guest migrated into.
type MigrationLedgerRecord struct {
	GuestID              string   `json:"guest_id"`
	UserID               string   `json:"user_id"`
	Outcome              string   `json:"outcome"`
	MigratedHikes        int      `json:"migrated_hikes"`
	MigratedObservations int      `json:"migrated_observations"`
	UploadedImages       int      `json:"uploaded_images"`
	FailedItems          int      `json:"failed_items"`
	Errors               []string `json:"errors,omitempty"`
	CompletedAt          string   `json:"completed_at"`
	CleanedUp            bool     `json:"cleaned_up"`
}
