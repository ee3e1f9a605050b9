package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/metrics"
	"github.com/serroba/url-shortener/internal/ratelimit"
	"go.uber.org/zap"
)

// ClientKey identifies a client for rate limiting by IP and User-Agent.
func ClientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(ClientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// PolicyRateLimiter enforces the limiter's policy on every operation. Operation
// metadata under ratelimit.MetadataKey can disable limiting, replace the policy
// with route limits, or pick the scope through the resolver.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)
		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		route := operationPath(ctx)
		key := ClientKey(ctx)

		var (
			exceeded *ratelimit.LimitExceeded
			err      error
		)

		if cfg != nil && len(cfg.Limits) > 0 {
			exceeded, err = limiter.AllowRoute(ctx.Context(), key, route, cfg.Limits)
		} else {
			exceeded, err = limiter.Allow(ctx.Context(), key, resolver.Resolve(ctx))
		}

		if err != nil {
			logger.Error("rate limit check failed", zap.String("route", route), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if exceeded != nil {
			rejectRequest(api, ctx, exceeded, route, logger)

			return
		}

		next(ctx)
	}
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}

func rejectRequest(api huma.API, ctx huma.Context, exceeded *ratelimit.LimitExceeded, route string, logger *zap.Logger) {
	metrics.RateLimited.WithLabelValues(string(exceeded.Scope)).Inc()

	logger.Warn("rate limit exceeded",
		zap.String("route", route),
		zap.String("method", ctx.Method()),
		zap.String("scope", string(exceeded.Scope)),
		zap.Int64("count", exceeded.Count),
		zap.Int64("max", exceeded.Limit.Max),
		zap.Duration("window", exceeded.Limit.Window),
		zap.String("clientIp", ClientIP(ctx)),
	)

	seconds := int64(exceeded.RetryAfter() / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	ctx.SetHeader("Retry-After", strconv.FormatInt(seconds, 10))

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, fmt.Sprintf(
		"rate limit exceeded: %s scope, %d/%d requests in %s",
		exceeded.Scope, exceeded.Count, exceeded.Limit.Max, exceeded.Limit.Window,
	))
}
