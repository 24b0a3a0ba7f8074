package surreal

import (
	"context"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/ports/secondary"
)

// Authenticator implements secondary.Authenticator against the users table.
// Password hashing and comparison run inside the database.
type Authenticator struct {
	client *Client
}

// NewAuthenticator creates a new SurrealDB-backed authenticator.
func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

// Register creates an account. A taken email is a validation error.
func (a *Authenticator) Register(ctx context.Context, email, password, displayName string) (*secondary.UserRecord, error) {
	email = normalizeEmail(email)
	docs, err := run(ctx, a.client, "surreal.users.register", func(db *surrealdb.DB) ([]userDocument, error) {
		return queryAll[userDocument](ctx, db,
			`CREATE users CONTENT {
				email: $email,
				display_name: $name,
				password: crypto::argon2::generate($pass)
			} RETURN id, email, display_name`,
			map[string]any{"email": email, "name": displayName, "pass": password})
	})
	if err != nil {
		if strings.Contains(err.Error(), "users_email") || strings.Contains(strings.ToLower(err.Error()), "already contains") {
			return nil, apperr.Validation("surreal.users.register", "an account for %s already exists", email)
		}
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.New(apperr.KindPermanent, "surreal.users.register", "account was not created")
	}
	return userFromDocument(&docs[0]), nil
}

// SignIn verifies credentials and returns the matching account.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*secondary.UserRecord, error) {
	email = normalizeEmail(email)
	docs, err := run(ctx, a.client, "surreal.users.signin", func(db *surrealdb.DB) ([]userDocument, error) {
		return queryAll[userDocument](ctx, db,
			`SELECT id, email, display_name FROM users
			 WHERE email = $email AND crypto::argon2::compare(password, $pass)`,
			map[string]any{"email": email, "pass": password})
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.Validation("surreal.users.signin", "invalid email or password")
	}
	return userFromDocument(&docs[0]), nil
}

func userFromDocument(doc *userDocument) *secondary.UserRecord {
	return &secondary.UserRecord{
		ID:          recordKey(doc.ID),
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ensure Authenticator implements the interface
var _ secondary.Authenticator = (*Authenticator)(nil)
