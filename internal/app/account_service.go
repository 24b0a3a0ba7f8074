package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
	"github.com/example/hikelog/internal/validation"
)

// AccountServiceImpl implements the AccountService interface.
// It is the only writer of the authentication state.
type AccountServiceImpl struct {
	holder        *AuthStateHolder
	identity      secondary.GuestIdentityStore
	authenticator secondary.Authenticator
}

// NewAccountService creates a new AccountService with injected dependencies.
// authenticator may be nil when no remote store is configured; guest mode
// still works, registration and sign-in fail.
func NewAccountService(
	holder *AuthStateHolder,
	identity secondary.GuestIdentityStore,
	authenticator secondary.Authenticator,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		holder:        holder,
		identity:      identity,
		authenticator: authenticator,
	}
}

// StartGuest creates or restores the device's guest identity.
func (s *AccountServiceImpl) StartGuest(ctx context.Context) (*primary.AccountStatus, error) {
	if _, ok := s.holder.Current().(auth.Authenticated); ok {
		return nil, apperr.Validation("account.start_guest", "already signed in, sign out first")
	}

	guestID, err := s.identity.GetGuestID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest identity: %w", err)
	}
	if guestID == "" {
		guestID = "guest-" + uuid.NewString()
		if err := s.identity.SaveGuestID(ctx, guestID); err != nil {
			return nil, fmt.Errorf("failed to save guest identity: %w", err)
		}
		logging.Ctx(ctx).Info().Str("guest_id", guestID).Msg("created guest identity")
	}
	if err := s.identity.SetMode(ctx, secondary.OnboardingGuest); err != nil {
		return nil, fmt.Errorf("failed to save onboarding mode: %w", err)
	}

	s.holder.Set(auth.Guest{GuestID: guestID})
	return s.Status(ctx)
}

// Register creates an account and signs in.
func (s *AccountServiceImpl) Register(ctx context.Context, req primary.RegisterRequest) (*primary.AccountStatus, error) {
	if err := validation.Struct("account.register", req); err != nil {
		return nil, err
	}
	if s.authenticator == nil {
		return nil, errNoRemote("account.register")
	}

	user, err := s.authenticator.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	return s.signedIn(ctx, user)
}

// SignIn signs in with an existing account.
func (s *AccountServiceImpl) SignIn(ctx context.Context, req primary.SignInRequest) (*primary.AccountStatus, error) {
	if err := validation.Struct("account.signin", req); err != nil {
		return nil, err
	}
	if s.authenticator == nil {
		return nil, errNoRemote("account.signin")
	}

	user, err := s.authenticator.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return s.signedIn(ctx, user)
}

func (s *AccountServiceImpl) signedIn(ctx context.Context, user *secondary.UserRecord) (*primary.AccountStatus, error) {
	session := &secondary.SessionRecord{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SignedInAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.identity.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := s.identity.SetMode(ctx, secondary.OnboardingAccount); err != nil {
		return nil, fmt.Errorf("failed to save onboarding mode: %w", err)
	}

	s.holder.Set(auth.Authenticated{User: auth.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}})
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("signed in")
	return s.Status(ctx)
}

// SignOut clears the session and falls back to the stored guest identity.
func (s *AccountServiceImpl) SignOut(ctx context.Context) (*primary.AccountStatus, error) {
	if err := s.identity.ClearSession(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}

	guestID, err := s.identity.GetGuestID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest identity: %w", err)
	}
	if guestID == "" {
		if err := s.identity.SetMode(ctx, secondary.OnboardingNone); err != nil {
			return nil, fmt.Errorf("failed to save onboarding mode: %w", err)
		}
		s.holder.Set(auth.Unauthenticated{})
		return s.Status(ctx)
	}

	if err := s.identity.SetMode(ctx, secondary.OnboardingGuest); err != nil {
		return nil, fmt.Errorf("failed to save onboarding mode: %w", err)
	}
	s.holder.Set(auth.Guest{GuestID: guestID})
	return s.Status(ctx)
}

// Restore rebuilds the authentication state from the identity store.
// A saved session wins over guest mode.
func (s *AccountServiceImpl) Restore(ctx context.Context) (*primary.AccountStatus, error) {
	session, err := s.identity.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if session != nil && strings.TrimSpace(session.UserID) != "" {
		s.holder.Set(auth.Authenticated{User: auth.User{
			ID:          session.UserID,
			Email:       session.Email,
			DisplayName: session.DisplayName,
		}})
		return s.Status(ctx)
	}

	mode, err := s.identity.GetMode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read onboarding mode: %w", err)
	}
	guestID, err := s.identity.GetGuestID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest identity: %w", err)
	}
	if mode == secondary.OnboardingGuest && guestID != "" {
		s.holder.Set(auth.Guest{GuestID: guestID})
	} else {
		s.holder.Set(auth.Unauthenticated{})
	}
	return s.Status(ctx)
}

// Status describes the current state.
func (s *AccountServiceImpl) Status(ctx context.Context) (*primary.AccountStatus, error) {
	state := s.holder.Current()
	mode, err := s.identity.GetMode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read onboarding mode: %w", err)
	}
	guestID, err := s.identity.GetGuestID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest identity: %w", err)
	}

	status := &primary.AccountStatus{
		State:       state,
		Description: auth.Describe(state),
		Mode:        string(mode),
		GuestID:     guestID,
	}

	// A guest whose data never completed a migration is waiting for one.
	if _, ok := state.(auth.Authenticated); ok && guestID != "" {
		entry, err := s.identity.GetMigration(ctx, guestID)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration ledger: %w", err)
		}
		if entry == nil || entry.Outcome != "success" {
			status.PendingMigrationGuestID = guestID
		}
	}
	return status, nil
}

func errNoRemote(op string) error {
	return apperr.New(apperr.KindPermanent, op, "no remote store is configured")
}

var _ primary.AccountService = (*AccountServiceImpl)(nil)
