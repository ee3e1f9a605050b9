package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store counts requests per key over a sliding window.
type Store interface {
	// Record adds one request under key and returns how many requests fall
	// inside the window ending now, this one included.
	Record(ctx context.Context, key string, window time.Duration) (int64, error)
}

// LimitExceeded describes the limit a request broke.
type LimitExceeded struct {
	Scope Scope
	Limit LimitConfig
	Count int64
}

// RetryAfter is the longest a client may have to wait before the limit frees up.
func (e *LimitExceeded) RetryAfter() time.Duration {
	return e.Limit.Window
}

// PolicyLimiter checks requests against a Policy, or against per-route limits.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a limiter counting in store.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{store: store, policy: policy}
}

// Allow counts the request against every limit of every scope. It returns nil
// when all limits hold, otherwise the broken limit with the longest window.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (*LimitExceeded, error) {
	var worst *LimitExceeded

	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			exceeded, err := l.record(ctx, scopeKey(clientKey, scope, limit), scope, limit)
			if err != nil {
				return nil, err
			}

			worst = longer(worst, exceeded)
		}
	}

	return worst, nil
}

// AllowRoute applies route specific limits in place of the policy. Counters are
// shared by every request matching the route template.
func (l *PolicyLimiter) AllowRoute(
	ctx context.Context, clientKey, route string, limits []LimitConfig,
) (*LimitExceeded, error) {
	var worst *LimitExceeded

	for _, limit := range limits {
		key := fmt.Sprintf("%s:%s", scopeKey(clientKey, ScopeRoute, limit), route)

		exceeded, err := l.record(ctx, key, ScopeRoute, limit)
		if err != nil {
			return nil, err
		}

		worst = longer(worst, exceeded)
	}

	return worst, nil
}

func (l *PolicyLimiter) record(ctx context.Context, key string, scope Scope, limit LimitConfig) (*LimitExceeded, error) {
	count, err := l.store.Record(ctx, key, limit.Window)
	if err != nil {
		return nil, fmt.Errorf("record %s request: %w", scope, err)
	}

	if count <= limit.Max {
		return nil, nil
	}

	return &LimitExceeded{Scope: scope, Limit: limit, Count: count}, nil
}

func longer(a, b *LimitExceeded) *LimitExceeded {
	if a == nil || (b != nil && b.Limit.Window > a.Limit.Window) {
		return b
	}

	return a
}

func scopeKey(clientKey string, scope Scope, limit LimitConfig) string {
	return fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())
}
