package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime parses an RFC3339 string. Empty or malformed input stores NULL.
func nullTime(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

// markSynced sets synced and remote_id for every local ID in one transaction.
// table is always a package constant.
func markSynced(ctx context.Context, db *sql.DB, table string, remoteIDs map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("UPDATE %s SET synced = 1, remote_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for localID, remoteID := range remoteIDs {
		if _, err := stmt.ExecContext(ctx, remoteID, localID); err != nil {
			return fmt.Errorf("%s: %w", localID, err)
		}
	}

	return tx.Commit()
}
