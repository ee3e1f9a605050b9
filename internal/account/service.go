package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers verification codes to account holders.
type Notifier interface {
	SendVerificationCode(ctx context.Context, name, email, code string, expiresAt time.Time) error
}

// Service implements registration, email verification and login.
type Service struct {
	store     Repository
	hasher    Hasher
	issuer    CodeIssuer
	notifier  Notifier
	now       func() time.Time
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCodeIssuer overrides the verification code issuer.
func WithCodeIssuer(issuer CodeIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// NewService creates an account service.
func NewService(store Repository, hasher Hasher, notifier Notifier, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		hasher:   hasher,
		issuer:   NewRandomCodeIssuer(CodeTTL),
		notifier: notifier,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Compared against on unknown emails so both login failures cost one hash check.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare login hash: %w", err)
	}

	s.dummyHash = dummy

	return s, nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterResult describes a completed registration.
type RegisterResult struct {
	Account *Account
	// MailErr is set when the account was created but the code could not be sent.
	MailErr error
}

// Register creates an account in the pending verification state and mails its code.
// Failing to send the code does not undo the registration.
func (s *Service) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()

	pending, err := s.issuer.Issue(now)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Pending:      &pending,
		CreatedAt:    now,
	}

	if err := s.store.Create(ctx, acc); err != nil {
		return nil, err
	}

	result := &RegisterResult{Account: acc}

	if err := s.notifier.SendVerificationCode(ctx, acc.Name, acc.Email, pending.Code, pending.ExpiresAt); err != nil {
		result.MailErr = fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	return result, nil
}

// VerifyResult describes a successful verification.
type VerifyResult struct {
	Account         *Account
	AlreadyVerified bool
}

// Verify moves an account to the verified state when code matches the pending
// code and has not expired. Verifying a verified account is a no-op.
func (s *Service) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	acc, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if acc.EmailVerified {
		return &VerifyResult{Account: acc, AlreadyVerified: true}, nil
	}

	if acc.Pending == nil {
		return nil, ErrNoPendingVerification
	}

	if acc.Pending.Expired(s.now()) {
		return nil, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(acc.Pending.Code), []byte(strings.TrimSpace(code))) != 1 {
		return nil, ErrInvalidCode
	}

	if err := s.store.MarkVerified(ctx, acc.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	acc.EmailVerified = true
	acc.Pending = nil

	return &VerifyResult{Account: acc}, nil
}

// Resend issues a new code, replacing any pending one, and mails it.
func (s *Service) Resend(ctx context.Context, email string) (*Account, error) {
	acc, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if acc.EmailVerified {
		return nil, ErrAlreadyVerified
	}

	pending, err := s.issuer.Issue(s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdatePending(ctx, acc.ID, pending); err != nil {
		return nil, fmt.Errorf("update pending code: %w", err)
	}

	acc.Pending = &pending

	if err := s.notifier.SendVerificationCode(ctx, acc.Name, acc.Email, pending.Code, pending.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	return acc, nil
}

// Login checks credentials. Unknown emails and wrong passwords both return
// ErrInvalidCredentials; a correct password on an unverified account returns
// ErrNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = s.hasher.Compare(s.dummyHash, password)

			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	ok, err := s.hasher.Compare(acc.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !acc.EmailVerified {
		return nil, ErrNotVerified
	}

	return acc, nil
}
