package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"commune/internal/ratelimit/metrics"
	"commune/internal/ratelimit/models"
	"commune/internal/ratelimit/store/bucket"
	pkgtestutil "commune/pkg/testutil"
)

// flakyStore delegates to an in-memory store unless failing is set.
type flakyStore struct {
	inner   *bucket.InMemoryBucketStore
	failing atomic.Bool
}

func (f *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if f.failing.Load() {
		return nil, errors.New("redis: connection refused")
	}
	return f.inner.Allow(ctx, key, limit, window)
}

type RateLimitSuite struct {
	suite.Suite
	store   *flakyStore
	metrics *metrics.Metrics
	mw      *Middleware
	handler http.Handler
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.store = &flakyStore{inner: bucket.NewInMemoryBucketStore()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.mw = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithLimit(models.ScopeStart, models.Limit{RequestsPerWindow: 2, Window: time.Minute}),
		WithMetrics(s.metrics),
	)
	s.handler = s.mw.RateLimit(models.ScopeStart)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
}

func (s *RateLimitSuite) do(ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/members/register", nil)
	return pkgtestutil.DoRequest(s.handler, pkgtestutil.WithClientIP(req, ip))
}

func (s *RateLimitSuite) TestLimitsPerIP() {
	s.Equal(http.StatusAccepted, s.do("203.0.113.7").Code)
	rr := s.do("203.0.113.7")
	s.Equal(http.StatusAccepted, rr.Code)
	s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = s.do("203.0.113.7")
	pkgtestutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "too_many_requests")
	s.NotEmpty(rr.Header().Get("Retry-After"))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Rejected.WithLabelValues("start")))

	s.Equal(http.StatusAccepted, s.do("198.51.100.1").Code, "other clients are unaffected")
}

func (s *RateLimitSuite) TestUnconfiguredScopePassesThrough() {
	h := s.mw.RateLimit(models.ScopeConfirm)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for range 5 {
		rr := pkgtestutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/confirm", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.Empty(rr.Header().Get("X-RateLimit-Limit"))
	}
}

func (s *RateLimitSuite) TestDisabled() {
	mw := New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithLimit(models.ScopeStart, models.Limit{RequestsPerWindow: 1, Window: time.Minute}),
		WithDisabled(true),
	)
	h := mw.RateLimit(models.ScopeStart)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	for range 3 {
		s.Equal(http.StatusAccepted, pkgtestutil.DoRequest(h, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	}
}

func (s *RateLimitSuite) TestStoreOutageUsesFallback() {
	s.store.failing.Store(true)

	rr := s.do("203.0.113.7")
	s.Equal(http.StatusAccepted, rr.Code)
	s.Equal("degraded", rr.Header().Get("X-RateLimit-Status"))

	s.Equal(http.StatusAccepted, s.do("203.0.113.7").Code)
	s.Equal(http.StatusTooManyRequests, s.do("203.0.113.7").Code, "fallback still enforces the limit")
	s.Equal(float64(3), testutil.ToFloat64(s.metrics.FallbackChecks))
}

func (s *RateLimitSuite) TestCircuitClosesAfterRecovery() {
	s.store.failing.Store(true)
	for i := range 5 {
		s.do(fmt.Sprintf("192.0.2.%d", i+1))
	}
	s.True(s.mw.breaker.isOpen())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CircuitOpen))

	s.store.failing.Store(false)
	for range 2 {
		rr := s.do("198.51.100.9")
		s.Equal("degraded", rr.Header().Get("X-RateLimit-Status"))
	}
	s.store.inner = bucket.NewInMemoryBucketStore()
	rr := s.do("198.51.100.9")
	s.Empty(rr.Header().Get("X-RateLimit-Status"))
	s.False(s.mw.breaker.isOpen())
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.CircuitOpen))
}

func TestBreaker(t *testing.T) {
	b := newBreaker(2, 2)

	open, changed := b.observe(false)
	assert.False(t, open)
	assert.False(t, changed)
	open, changed = b.observe(false)
	assert.True(t, open)
	assert.True(t, changed)

	open, _ = b.observe(true)
	assert.True(t, open)
	open, _ = b.observe(false)
	assert.True(t, open, "a failure while open restarts the success streak")
	open, _ = b.observe(true)
	assert.True(t, open)
	open, changed = b.observe(true)
	assert.False(t, open)
	assert.True(t, changed)

	// A success between failures keeps the breaker closed.
	b.observe(false)
	b.observe(true)
	open, _ = b.observe(false)
	assert.False(t, open)
}
