package primary

import (
	"context"

	"github.com/example/hikelog/internal/core/migration"
	"github.com/example/hikelog/internal/core/result"
)

// MigrationService moves a guest's local data into a newly registered account.
type MigrationService interface {
	// CheckMigrationNeeded computes what a migration would move. Read-only.
	CheckMigrationNeeded(ctx context.Context, guestID string) result.Result[migration.Stats]

	// MigrateGuestData starts a migration and returns its ordered progress
	// events. The channel is closed after the terminal Complete or Error event.
	// Invalid arguments are rejected synchronously. The caller must drain the
	// channel or cancel ctx.
	MigrateGuestData(ctx context.Context, guestID, newUserID string) (<-chan migration.Progress, error)

	// CleanupAfterMigration deletes local records and files that were migrated.
	// Unmigrated data is never touched. Idempotent.
	CleanupAfterMigration(ctx context.Context, guestID string) result.Result[result.Unit]
}
