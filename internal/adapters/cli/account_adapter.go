package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/hikelog/internal/ports/primary"
)

// AccountAdapter is a thin adapter over AccountService.
type AccountAdapter struct {
	service primary.AccountService
	out     io.Writer
}

// NewAccountAdapter creates a new AccountAdapter with the given service.
func NewAccountAdapter(service primary.AccountService, out io.Writer) *AccountAdapter {
	return &AccountAdapter{
		service: service,
		out:     out,
	}
}

// StartGuest enters guest mode.
func (a *AccountAdapter) StartGuest(ctx context.Context) (*primary.AccountStatus, error) {
	status, err := a.service.StartGuest(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "%s Guest session %s\n", check(), status.GuestID)
	fmt.Fprintln(a.out, "  Your hikes stay on this device until you register.")
	return status, nil
}

// Register creates an account.
func (a *AccountAdapter) Register(ctx context.Context, req primary.RegisterRequest) (*primary.AccountStatus, error) {
	status, err := a.service.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "%s Registered %s\n", check(), req.Email)
	a.pendingHint(status)
	return status, nil
}

// SignIn signs in.
func (a *AccountAdapter) SignIn(ctx context.Context, req primary.SignInRequest) (*primary.AccountStatus, error) {
	status, err := a.service.SignIn(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "%s %s\n", check(), status.Description)
	a.pendingHint(status)
	return status, nil
}

// SignOut signs out.
func (a *AccountAdapter) SignOut(ctx context.Context) (*primary.AccountStatus, error) {
	status, err := a.service.SignOut(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "%s Signed out. Now: %s\n", check(), status.Description)
	return status, nil
}

// Status prints the current authentication state.
func (a *AccountAdapter) Status(ctx context.Context) (*primary.AccountStatus, error) {
	status, err := a.service.Status(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "State: %s\n", status.Description)
	if status.GuestID != "" {
		fmt.Fprintf(a.out, "Guest: %s\n", status.GuestID)
	}
	a.pendingHint(status)
	return status, nil
}

func (a *AccountAdapter) pendingHint(status *primary.AccountStatus) {
	if status.PendingMigrationGuestID == "" {
		return
	}
	fmt.Fprintf(a.out, "%s Guest data from %s has not been moved to your account.\n",
		color.New(color.FgYellow).Sprint("!"), status.PendingMigrationGuestID)
	fmt.Fprintln(a.out, "  Run: hikelog migrate run")
}
