package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CodeGenerator generates short codes.
type CodeGenerator func() string

// Kind tells whether a link code was supplied by the caller or generated.
type Kind string

const (
	KindCustom    Kind = "custom"
	KindGenerated Kind = "generated"
)

// Shortener creates links from original URLs.
type Shortener struct {
	store        Repository
	generateCode CodeGenerator
	now          func() time.Time
}

// New creates a shortener backed by the given store and code generator.
func New(store Repository, generator CodeGenerator) *Shortener {
	return &Shortener{
		store:        store,
		generateCode: generator,
		now:          time.Now,
	}
}

// Shorten stores a link for originalURL. A non-empty customCode is used verbatim,
// otherwise a code is generated. Generated codes are not retried on collision.
func (s *Shortener) Shorten(ctx context.Context, originalURL string, customCode Code) (*Link, Kind, error) {
	kind := KindCustom

	code := customCode
	if code == "" {
		kind = KindGenerated
		code = Code(s.generateCode())
	}

	link := &Link{
		Code:        code,
		OriginalURL: originalURL,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Create(ctx, link); err != nil {
		if kind == KindGenerated && errors.Is(err, ErrDuplicateCode) {
			return nil, kind, fmt.Errorf("%w: %s", ErrCodeCollision, code)
		}

		return nil, kind, err
	}

	return link, kind, nil
}

// Resolve returns the link stored under code.
func (s *Shortener) Resolve(ctx context.Context, code Code) (*Link, error) {
	return s.store.GetByCode(ctx, code)
}
