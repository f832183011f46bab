package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"commune/internal/ratelimit/metrics"
	"commune/internal/ratelimit/models"
	"commune/internal/ratelimit/store/bucket"
	"commune/internal/transport/http/shared"
	"commune/pkg/requestcontext"
)

// BucketStore answers sliding window checks.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Middleware limits requests per client IP and scope. The primary store may
// be shared (Redis); an in-memory store answers while it is failing.
type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *breaker
	limits   map[models.Scope]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithLimit sets the allowance of a scope. Scopes without a limit are not
// limited.
func WithLimit(scope models.Scope, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.RequestsPerWindow > 0 && limit.Window > 0 {
			m.limits[scope] = limit
		}
	}
}

// WithFallback replaces the in-memory fallback store.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary:  primary,
		fallback: bucket.NewInMemoryBucketStore(),
		breaker:  newBreaker(5, 3),
		limits:   make(map[models.Scope]models.Limit),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit returns middleware enforcing the limit of scope.
func (m *Middleware) RateLimit(scope models.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := m.limits[scope]
			if m.disabled || !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := models.NewIPKey(scope, requestcontext.ClientIP(ctx))

			result, degraded := m.check(ctx, key, limit)
			if result == nil {
				// Both stores failed: fail open rather than lock out every visitor.
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				m.metrics.IncRejected(string(scope))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"scope", string(scope),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type sweeper interface {
	Sweep(ctx context.Context) int
}

// RunSweep drops idle in-memory windows every interval until ctx is
// cancelled. Stores that expire keys themselves are skipped.
func (m *Middleware) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, store := range []BucketStore{m.primary, m.fallback} {
				if sw, ok := store.(sweeper); ok {
					if n := sw.Sweep(ctx); n > 0 {
						m.logger.DebugContext(ctx, "swept idle rate limit windows", "count", n)
					}
				}
			}
		}
	}
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool) {
	result, err := m.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	open, changed := m.breaker.observe(err == nil)
	if changed {
		m.metrics.SetCircuitOpen(open)
	}
	if err == nil {
		return result, open
	}

	m.metrics.IncStoreErrors()
	m.logger.ErrorContext(ctx, "rate limit store failed",
		"error", err,
		"circuit_open", open,
	)

	m.metrics.IncFallbackChecks()
	result, err = m.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit store failed", "error", err)
		return nil, true
	}
	return result, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	shared.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:            "too_many_requests",
		ErrorDescription: "Too many requests from this IP address. Please try again later.",
		RetryAfter:       result.RetryAfter,
	})
}
