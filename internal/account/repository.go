package account

import (
	"context"
	"errors"
)

var (
	ErrNotFound              = errors.New("account not found")
	ErrEmailTaken            = errors.New("email already registered")
	ErrNoPendingVerification = errors.New("no pending verification")
	ErrCodeExpired           = errors.New("verification code expired")
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrNotVerified           = errors.New("email not verified")
	ErrMailDelivery          = errors.New("verification email could not be sent")
)

// Repository persists accounts.
type Repository interface {
	// Create stores a new account. Returns ErrEmailTaken if the email exists.
	Create(ctx context.Context, acc *Account) error
	// GetByEmail returns ErrNotFound if no account has the email.
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// MarkVerified sets the account verified and clears the pending code in one write.
	MarkVerified(ctx context.Context, id string) error
	// UpdatePending replaces the pending code and expiry in one write.
	UpdatePending(ctx context.Context, id string, pending PendingVerification) error
}
