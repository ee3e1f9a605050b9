package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// CodeTTL is how long a verification code stays valid.
	CodeTTL = 15 * time.Minute

	minCode = 100000
	maxCode = 999999
)

// CodeIssuer produces verification codes.
type CodeIssuer interface {
	Issue(now time.Time) (PendingVerification, error)
}

// RandomCodeIssuer draws 6-digit codes uniformly from crypto/rand.
type RandomCodeIssuer struct {
	ttl time.Duration
}

// NewRandomCodeIssuer creates an issuer whose codes expire after ttl.
func NewRandomCodeIssuer(ttl time.Duration) *RandomCodeIssuer {
	return &RandomCodeIssuer{ttl: ttl}
}

func (r *RandomCodeIssuer) Issue(now time.Time) (PendingVerification, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return PendingVerification{}, fmt.Errorf("generate verification code: %w", err)
	}

	return PendingVerification{
		Code:      fmt.Sprintf("%06d", n.Int64()+minCode),
		ExpiresAt: now.Add(r.ttl),
	}, nil
}
