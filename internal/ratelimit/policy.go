package ratelimit

import "time"

// LimitConfig allows at most Max requests per sliding Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits enforced for it. Every limit of every
// resolved scope must hold for a request to pass.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyConfig holds the per-minute budgets used to build the default policy.
type PolicyConfig struct {
	GlobalPerMinute int64
	ReadPerMinute   int64
	WritePerMinute  int64
	AuthPerMinute   int64
	AuthPerHour     int64
}

// DefaultPolicyConfig returns the budgets used when none are configured.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		GlobalPerMinute: 1000,
		ReadPerMinute:   600,
		WritePerMinute:  60,
		AuthPerMinute:   10,
		AuthPerHour:     50,
	}
}

// PolicyBuilder assembles a Policy one limit at a time.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

// NewPolicyBuilder creates an empty builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

// AddLimit adds a limit of maxRequests per window to scope. Non-positive
// limits are ignored.
func (b *PolicyBuilder) AddLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	if maxRequests > 0 && window > 0 {
		b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: maxRequests})
	}

	return b
}

// Build returns the assembled policy.
func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: b.limits}
}

// NewPolicy builds a policy from cfg. Zero budgets leave that limit out.
func NewPolicy(cfg PolicyConfig) *Policy {
	return NewPolicyBuilder().
		AddLimit(ScopeGlobal, cfg.GlobalPerMinute, time.Minute).
		AddLimit(ScopeRead, cfg.ReadPerMinute, time.Minute).
		AddLimit(ScopeWrite, cfg.WritePerMinute, time.Minute).
		AddLimit(ScopeAuth, cfg.AuthPerMinute, time.Minute).
		AddLimit(ScopeAuth, cfg.AuthPerHour, time.Hour).
		Build()
}
