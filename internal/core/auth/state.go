// Package auth contains the authentication state model and the storage
// backend selection rule derived from it.
// This is part of the Functional Core - no I/O, only pure functions.
package auth

import "strings"

// User is the signed-in account as observed from the authentication subsystem.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// State is a sealed union: Unauthenticated, Guest or Authenticated.
// Switch over it exhaustively; no other implementations exist.
type State interface {
	isState()
}

// Unauthenticated means no guest session and no account.
type Unauthenticated struct{}

// Guest is an anonymous user whose data lives on this device.
type Guest struct {
	GuestID string
}

// Authenticated is a signed-in user whose data lives in the cloud.
type Authenticated struct {
	User User
}

func (Unauthenticated) isState() {}
func (Guest) isState()           {}
func (Authenticated) isState()   {}

// Backend identifies where an entity family is stored.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// SelectBackend maps a state to the backend every repository call must use.
// Only an Authenticated state with a user ID selects remote; anything else,
// including nil or unrecognised states, selects local.
func SelectBackend(s State) Backend {
	if a, ok := s.(Authenticated); ok && strings.TrimSpace(a.User.ID) != "" {
		return BackendRemote
	}
	return BackendLocal
}

// OwnerID returns the identity records are owned by in state s.
// It is empty when Unauthenticated.
func OwnerID(s State) string {
	switch v := s.(type) {
	case Guest:
		return v.GuestID
	case Authenticated:
		return v.User.ID
	default:
		return ""
	}
}

// Describe returns a short label for display and logging.
func Describe(s State) string {
	switch v := s.(type) {
	case Guest:
		return "guest " + v.GuestID
	case Authenticated:
		if v.User.Email != "" {
			return "signed in as " + v.User.Email
		}
		return "signed in as " + v.User.ID
	default:
		return "signed out"
	}
}
