// Package badgerkv contains the BadgerDB-backed guest identity store.
package badgerkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/example/hikelog/internal/ports/secondary"
)

// Key layout
const (
	guestIDKey         = "identity:guest_id"
	modeKey            = "identity:mode"
	sessionKey         = "identity:session"
	migrationKeyPrefix = "migration:"
)

// IdentityStore implements secondary.GuestIdentityStore using BadgerDB.
type IdentityStore struct {
	db *badger.DB
}

// NewIdentityStore creates a new BadgerDB-backed identity store.
func NewIdentityStore(db *badger.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// GetGuestID returns the stored guest ID, or "" when none exists.
func (s *IdentityStore) GetGuestID(ctx context.Context) (string, error) {
	raw, err := s.getRaw(guestIDKey)
	if err != nil {
		return "", fmt.Errorf("get guest id: %w", err)
	}
	return string(raw), nil
}

// SaveGuestID stores the guest ID.
func (s *IdentityStore) SaveGuestID(ctx context.Context, guestID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(guestIDKey), []byte(guestID)); err != nil {
			return fmt.Errorf("set guest id: %w", err)
		}
		return nil
	})
}

// ClearGuestID removes the guest ID. Clearing an absent ID is not an error.
func (s *IdentityStore) ClearGuestID(ctx context.Context) error {
	return s.delete(guestIDKey)
}

// GetMode returns the onboarding mode, or OnboardingNone.
func (s *IdentityStore) GetMode(ctx context.Context) (secondary.OnboardingMode, error) {
	raw, err := s.getRaw(modeKey)
	if err != nil {
		return secondary.OnboardingNone, fmt.Errorf("get mode: %w", err)
	}
	return secondary.OnboardingMode(raw), nil
}

// SetMode stores the onboarding mode.
func (s *IdentityStore) SetMode(ctx context.Context, mode secondary.OnboardingMode) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(modeKey), []byte(mode))
	})
}

// GetSession returns the signed-in session, or nil when signed out.
func (s *IdentityStore) GetSession(ctx context.Context) (*secondary.SessionRecord, error) {
	var session secondary.SessionRecord
	found, err := s.getJSON(sessionKey, &session)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// SaveSession stores the signed-in session.
func (s *IdentityStore) SaveSession(ctx context.Context, session *secondary.SessionRecord) error {
	return s.setJSON(sessionKey, session)
}

// ClearSession removes the session.
func (s *IdentityStore) ClearSession(ctx context.Context) error {
	return s.delete(sessionKey)
}

// RecordMigration stores the outcome of a guest migration, replacing any
// earlier entry for the same guest.
func (s *IdentityStore) RecordMigration(ctx context.Context, entry *secondary.MigrationLedgerRecord) error {
	if entry.GuestID == "" {
		return fmt.Errorf("migration entry requires a guest id")
	}
	return s.setJSON(migrationKeyPrefix+entry.GuestID, entry)
}

// GetMigration returns the last recorded migration of a guest, or nil.
func (s *IdentityStore) GetMigration(ctx context.Context, guestID string) (*secondary.MigrationLedgerRecord, error) {
	var entry secondary.MigrationLedgerRecord
	found, err := s.getJSON(migrationKeyPrefix+guestID, &entry)
	if err != nil {
		return nil, fmt.Errorf("get migration: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &entry, nil
}

func (s *IdentityStore) getRaw(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

func (s *IdentityStore) getJSON(key string, v any) (bool, error) {
	raw, err := s.getRaw(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *IdentityStore) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *IdentityStore) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Ensure IdentityStore implements the interface
var _ secondary.GuestIdentityStore = (*IdentityStore)(nil)
