package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/url-shortener/internal/account"
	"github.com/serroba/url-shortener/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errMail = errors.New("smtp down")

type sentCode struct {
	name, email, code string
	expiresAt         time.Time
}

type mockNotifier struct {
	sent []sentCode
	err  error
}

func (m *mockNotifier) SendVerificationCode(_ context.Context, name, email, code string, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}

	m.sent = append(m.sent, sentCode{name: name, email: email, code: code, expiresAt: expiresAt})

	return nil
}

func (m *mockNotifier) last() sentCode {
	return m.sent[len(m.sent)-1]
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

type fixture struct {
	svc      *account.Service
	store    *store.AccountMemoryStore
	notifier *mockNotifier
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    store.NewAccountMemoryStore(),
		notifier: &mockNotifier{},
		clock:    &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
	}

	svc, err := account.NewService(
		f.store,
		account.NewBcryptHasher(bcrypt.MinCost),
		f.notifier,
		account.WithClock(f.clock.now),
	)
	require.NoError(t, err)

	f.svc = svc

	return f
}

func (f *fixture) register(t *testing.T) *account.Account {
	t.Helper()

	res, err := f.svc.Register(context.Background(), "A", "a@x.com", "p")
	require.NoError(t, err)
	require.NoError(t, res.MailErr)

	return res.Account
}

func TestRandomCodeIssuer(t *testing.T) {
	issuer := account.NewRandomCodeIssuer(account.CodeTTL)
	now := time.Now()

	for range 200 {
		pending, err := issuer.Issue(now)

		require.NoError(t, err)
		require.Len(t, pending.Code, 6)
		assert.GreaterOrEqual(t, pending.Code, "100000")
		assert.LessOrEqual(t, pending.Code, "999999")
		assert.Equal(t, now.Add(15*time.Minute), pending.ExpiresAt)
	}
}

func TestService_Register(t *testing.T) {
	t.Run("creates a pending account and mails the code", func(t *testing.T) {
		f := newFixture(t)

		acc := f.register(t)

		assert.Equal(t, account.StatePendingVerification, acc.State())
		require.NotNil(t, acc.Pending)
		assert.Equal(t, f.clock.t.Add(account.CodeTTL), acc.Pending.ExpiresAt)
		assert.NotEqual(t, "p", acc.PasswordHash)

		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, "a@x.com", f.notifier.last().email)
		assert.Equal(t, acc.Pending.Code, f.notifier.last().code)
	})

	t.Run("normalizes the email", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.svc.Register(context.Background(), " A ", "  A@X.com ", "p")

		require.NoError(t, err)
		assert.Equal(t, "a@x.com", res.Account.Email)
		assert.Equal(t, "A", res.Account.Name)
	})

	t.Run("rejects a second registration with the same email", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)

		res, err := f.svc.Register(context.Background(), "B", "A@x.com", "q")

		assert.Nil(t, res)
		assert.ErrorIs(t, err, account.ErrEmailTaken)
	})

	t.Run("keeps the account when mail fails", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errMail

		res, err := f.svc.Register(context.Background(), "A", "a@x.com", "p")

		require.NoError(t, err)
		assert.ErrorIs(t, res.MailErr, account.ErrMailDelivery)
		assert.ErrorIs(t, res.MailErr, errMail)

		stored, err := f.store.GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.NotNil(t, stored.Pending)
	})
}

func TestService_Verify(t *testing.T) {
	t.Run("verifies with the correct code before expiry", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)

		res, err := f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)

		require.NoError(t, err)
		assert.False(t, res.AlreadyVerified)

		stored, _ := f.store.GetByEmail(context.Background(), "a@x.com")
		assert.Equal(t, account.StateVerified, stored.State())
		assert.Nil(t, stored.Pending)
	})

	t.Run("accepts the code at the exact expiry instant", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		f.clock.t = acc.Pending.ExpiresAt

		_, err := f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)

		require.NoError(t, err)
	})

	t.Run("is idempotent once verified", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		code := acc.Pending.Code

		_, err := f.svc.Verify(context.Background(), "a@x.com", code)
		require.NoError(t, err)

		res, err := f.svc.Verify(context.Background(), "a@x.com", "000000")

		require.NoError(t, err)
		assert.True(t, res.AlreadyVerified)
	})

	t.Run("rejects an expired code and stays pending", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		f.clock.t = acc.Pending.ExpiresAt.Add(time.Second)

		res, err := f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)

		assert.Nil(t, res)
		assert.ErrorIs(t, err, account.ErrCodeExpired)

		stored, _ := f.store.GetByEmail(context.Background(), "a@x.com")
		assert.Equal(t, account.StatePendingVerification, stored.State())
		assert.NotNil(t, stored.Pending)
	})

	t.Run("rejects a wrong code and stays pending", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)

		_, err := f.svc.Verify(context.Background(), "a@x.com", "not-it")

		assert.ErrorIs(t, err, account.ErrInvalidCode)

		stored, _ := f.store.GetByEmail(context.Background(), "a@x.com")
		assert.Equal(t, account.StatePendingVerification, stored.State())
	})

	t.Run("returns ErrNotFound for unknown emails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Verify(context.Background(), "nobody@x.com", "123456")

		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("returns ErrNoPendingVerification without a code", func(t *testing.T) {
		f := newFixture(t)
		err := f.store.Create(context.Background(), &account.Account{ID: "1", Email: "a@x.com"})
		require.NoError(t, err)

		_, err = f.svc.Verify(context.Background(), "a@x.com", "123456")

		assert.ErrorIs(t, err, account.ErrNoPendingVerification)
	})
}

func TestService_Resend(t *testing.T) {
	t.Run("replaces the pending code", func(t *testing.T) {
		f := newFixture(t)
		first := f.register(t).Pending.Code
		f.clock.t = f.clock.t.Add(time.Minute)

		acc, err := f.svc.Resend(context.Background(), "a@x.com")

		require.NoError(t, err)
		require.Len(t, f.notifier.sent, 2)
		assert.Equal(t, acc.Pending.Code, f.notifier.last().code)
		assert.Equal(t, f.clock.t.Add(account.CodeTTL), acc.Pending.ExpiresAt)

		stored, _ := f.store.GetByEmail(context.Background(), "a@x.com")
		assert.Equal(t, acc.Pending.Code, stored.Pending.Code)

		if first != acc.Pending.Code {
			_, err = f.svc.Verify(context.Background(), "a@x.com", first)
			assert.ErrorIs(t, err, account.ErrInvalidCode)
		}
	})

	t.Run("fails for verified accounts", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		_, err := f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)
		require.NoError(t, err)

		_, err = f.svc.Resend(context.Background(), "a@x.com")

		assert.ErrorIs(t, err, account.ErrAlreadyVerified)
	})

	t.Run("fails for unknown emails", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Resend(context.Background(), "nobody@x.com")

		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("reports mail failures", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)
		f.notifier.err = errMail

		_, err := f.svc.Resend(context.Background(), "a@x.com")

		assert.ErrorIs(t, err, account.ErrMailDelivery)
	})
}

func TestService_Login(t *testing.T) {
	t.Run("rejects unverified accounts with the correct password", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)

		_, err := f.svc.Login(context.Background(), "a@x.com", "p")

		assert.ErrorIs(t, err, account.ErrNotVerified)
	})

	t.Run("accepts verified accounts", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		_, err := f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)
		require.NoError(t, err)

		got, err := f.svc.Login(context.Background(), "A@X.COM", "p")

		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		f := newFixture(t)
		acc := f.register(t)
		_, _ = f.svc.Verify(context.Background(), "a@x.com", acc.Pending.Code)

		_, err := f.svc.Login(context.Background(), "a@x.com", "wrong")

		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	})

	t.Run("rejects unknown emails like wrong passwords", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Login(context.Background(), "nobody@x.com", "p")

		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	})
}
