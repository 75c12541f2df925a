// Package ratelimit throttles generation attempts per account. A fixed
// window in Redis is enough here: the hard gate is the credit ledger, the
// limiter only smooths bursts.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cardgen/internal/platform/middleware"
	platformredis "cardgen/internal/platform/redis"
)

// Limiter counts requests per account in one-minute windows.
type Limiter struct {
	redis     *platformredis.Client
	perMinute int
	logger    *slog.Logger
}

// NewLimiter creates a limiter. A nil redis client disables limiting.
func NewLimiter(redis *platformredis.Client, perMinute int, logger *slog.Logger) *Limiter {
	return &Limiter{
		redis:     redis,
		perMinute: perMinute,
		logger:    logger,
	}
}

// Allow reports whether the account may run another generation attempt now.
// Redis outages fail open with a warning.
func (l *Limiter) Allow(ctx context.Context, accountID string) bool {
	if l.redis == nil || l.perMinute <= 0 {
		return true
	}

	window := time.Now().Unix() / 60
	key := fmt.Sprintf("ratelimit:generate:%s:%d", accountID, window)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.WarnContext(ctx, "rate limiter unavailable; failing open",
				"account_id", accountID,
				"error", err.Error(),
			)
		}
		return true
	}
	if count == 1 {
		// First hit owns the window expiry.
		l.redis.Expire(ctx, key, 2*time.Minute)
	}
	return count <= int64(l.perMinute)
}

// Middleware rejects over-limit generation requests with a 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := middleware.GetAccountID(r.Context())
		if accountID != "" && !l.Allow(r.Context(), accountID) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many generation attempts; try again shortly"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
