package account

import "time"

// State is the position of an account in the verification lifecycle.
type State string

const (
	StatePendingVerification State = "pending_verification"
	StateVerified            State = "verified"
)

// PendingVerification is an outstanding one-time code. Code and expiry only
// ever exist together.
type PendingVerification struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer valid at t.
func (p PendingVerification) Expired(t time.Time) bool {
	return t.After(p.ExpiresAt)
}

// Account is a registered user.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	EmailVerified bool
	Pending       *PendingVerification // nil once verified
	CreatedAt     time.Time
}

// State returns the verification state of the account.
func (a *Account) State() State {
	if a.EmailVerified {
		return StateVerified
	}

	return StatePendingVerification
}
