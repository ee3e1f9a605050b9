package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/url-shortener/internal/account"
)

// PostgresAccountStore is a PostgreSQL implementation of account.Repository.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountStore creates a new PostgreSQL-backed account store.
func NewPostgresAccountStore(pool *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

func (p *PostgresAccountStore) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, password_hash, email_verified,
			verification_code, verification_expires, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var (
		code    *string
		expires *time.Time
	)

	if acc.Pending != nil {
		code, expires = &acc.Pending.Code, &acc.Pending.ExpiresAt
	}

	_, err := p.pool.Exec(ctx, query,
		acc.ID, acc.Name, acc.Email, acc.PasswordHash, acc.EmailVerified,
		code, expires, acc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrEmailTaken
		}

		return err
	}

	return nil
}

func (p *PostgresAccountStore) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT id, name, email, password_hash, email_verified,
			verification_code, verification_expires, created_at
		FROM accounts
		WHERE email = $1
	`

	var (
		acc     account.Account
		code    *string
		expires *time.Time
	)

	err := p.pool.QueryRow(ctx, query, email).Scan(
		&acc.ID,
		&acc.Name,
		&acc.Email,
		&acc.PasswordHash,
		&acc.EmailVerified,
		&code,
		&expires,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, err
	}

	if code != nil && expires != nil {
		acc.Pending = &account.PendingVerification{Code: *code, ExpiresAt: *expires}
	}

	return &acc, nil
}

func (p *PostgresAccountStore) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET email_verified = TRUE, verification_code = NULL, verification_expires = NULL
		WHERE id = $1
	`

	return p.exec(ctx, query, id)
}

func (p *PostgresAccountStore) UpdatePending(ctx context.Context, id string, pending account.PendingVerification) error {
	query := `
		UPDATE accounts
		SET verification_code = $2, verification_expires = $3
		WHERE id = $1
	`

	return p.exec(ctx, query, id, pending.Code, pending.ExpiresAt)
}

func (p *PostgresAccountStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}

	return nil
}

var _ account.Repository = (*PostgresAccountStore)(nil)
