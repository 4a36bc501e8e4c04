package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitConfig holds configuration for a specific rate limit
type RateLimitConfig struct {
	Name   string
	Limit  int
	Window time.Duration
	KeyFn  func(*http.Request) string
}

// RateLimit creates a fixed-window rate limiting middleware backed by Redis.
// Redis errors let the request through.
func (m *Middleware) RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Limit <= 0 {
		cfg.Limit = m.cfg.Security.RateLimiting.DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = m.cfg.Security.RateLimiting.DefaultWindow
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = OwnerKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.cfg.Security.RateLimiting.Enabled || m.rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, cfg.KeyFn(r))

			count, err := m.rdb.Incr(ctx, key)
			if err != nil {
				m.log.Error().Err(err).Msg("failed to increment rate limit counter")
				next.ServeHTTP(w, r)
				return
			}

			// Set expiry on first request
			if count == 1 {
				if err := m.rdb.Expire(ctx, key, cfg.Window); err != nil {
					m.log.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window")
				}
			}

			ttl, _ := m.rdb.Client.TTL(ctx, key).Result()
			if ttl < 0 {
				ttl = cfg.Window
			}
			resetTime := time.Now().Add(ttl).Unix()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, cfg.Limit-int(count))))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

			if int(count) > cfg.Limit {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(ttl.Seconds()), 10))
				writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKey returns the client IP address as the rate limit key
func IPKey(r *http.Request) string {
	return ClientIP(r)
}

// OwnerKey keys authenticated requests by owner and the rest by IP
func OwnerKey(r *http.Request) string {
	if owner := GetOwnerID(r.Context()); owner != "" {
		return "owner:" + owner
	}
	return "ip:" + ClientIP(r)
}
