package shortener

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrDuplicateCode = errors.New("short code already exists")
	ErrCodeCollision = errors.New("generated short code collided")
)

// Repository persists links. Create must fail with ErrDuplicateCode when the code
// is already taken; uniqueness is never checked by callers beforehand.
type Repository interface {
	Create(ctx context.Context, link *Link) error
	GetByCode(ctx context.Context, code Code) (*Link, error)
}
