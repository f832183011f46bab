package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"commune/internal/confirmation/metrics"
	"commune/internal/confirmation/models"
	"commune/pkg/platform/sentinel"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	onRead func()
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	now, hook := c.now, c.onRead
	c.onRead = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return now
}

// OnNextRead runs fn once, right after the next reading has been taken.
func (c *fakeClock) OnNextRead(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRead = fn
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type InMemoryStoreSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *fakeClock
	metrics *metrics.Metrics
	store   *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = NewInMemoryStore(
		WithCapacity(3),
		WithTTL(5*time.Minute),
		WithClock(s.clock.Now),
		WithMetrics(s.metrics),
	)
}

func pending(id string) *models.PendingConfirmation {
	return &models.PendingConfirmation{ID: id, Email: id + "@example.org"}
}

func (s *InMemoryStoreSuite) TestPutAndGet() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	rec, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("a@example.org", rec.Email)
	s.Equal(s.clock.Now(), rec.CreatedAt)
	s.Equal(s.clock.Now().Add(5*time.Minute), rec.ExpiresAt)
}

func (s *InMemoryStoreSuite) TestPut_RequiresID() {
	err := s.store.Put(s.ctx, &models.PendingConfirmation{})
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *InMemoryStoreSuite) TestGet_Unknown() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestPut_ReplacesExisting() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))
	replacement := pending("a")
	replacement.Email = "other@example.org"
	s.Require().NoError(s.store.Put(s.ctx, replacement))

	rec, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("other@example.org", rec.Email)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestTTL_MeasuredFromInsertion() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	// Repeated lookups must not renew the lifetime.
	for range 4 {
		s.clock.Advance(time.Minute)
		_, err := s.store.Get(s.ctx, "a")
		s.Require().NoError(err)
	}

	s.clock.Advance(time.Minute + time.Millisecond)
	_, err := s.store.Get(s.ctx, "a")
	s.ErrorIs(err, sentinel.ErrExpired)

	// Once observed as expired it is gone for good.
	_, err = s.store.Get(s.ctx, "a")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.store.Len())
}

func (s *InMemoryStoreSuite) TestCapacity_NeverExceeded() {
	for i := range 10 {
		s.Require().NoError(s.store.Put(s.ctx, pending(fmt.Sprintf("id-%d", i))))
		s.LessOrEqual(s.store.Len(), 3)
	}

	s.Equal(3, s.store.Len())
	_, err := s.store.Get(s.ctx, "id-0")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, "id-9")
	s.NoError(err)
	s.Equal(float64(7), testutil.ToFloat64(s.metrics.Evictions.WithLabelValues(metrics.EvictionCapacity)))
	s.Equal(float64(3), testutil.ToFloat64(s.metrics.Pending))
}

func (s *InMemoryStoreSuite) TestCapacity_EvictsLeastRecentlyUsed() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))
	s.Require().NoError(s.store.Put(s.ctx, pending("b")))
	s.Require().NoError(s.store.Put(s.ctx, pending("c")))

	_, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(s.ctx, pending("d")))

	_, err = s.store.Get(s.ctx, "b")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, "a")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestInvalidate() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	s.Require().NoError(s.store.Invalidate(s.ctx, "a"))
	s.Require().NoError(s.store.Invalidate(s.ctx, "never-existed"))

	_, err := s.store.Get(s.ctx, "a")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.Evictions.WithLabelValues(metrics.EvictionCapacity)))
}

func (s *InMemoryStoreSuite) TestInvalidateAll() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))
	s.Require().NoError(s.store.Put(s.ctx, pending("b")))

	s.Require().NoError(s.store.InvalidateAll(s.ctx))
	s.Equal(0, s.store.Len())

	s.Require().NoError(s.store.Put(s.ctx, pending("c")))
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	s.Require().NoError(s.store.Put(s.ctx, pending("old")))
	s.clock.Advance(3 * time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, pending("new")))
	s.clock.Advance(2*time.Minute + time.Second)

	n, err := s.store.DeleteExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(1, s.store.Len())
	_, err = s.store.Get(s.ctx, "new")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestExecute_ConsumeEvicts() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	err := s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool { return true })
	s.Require().NoError(err)

	err = s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool {
		s.Fail("callback must not run for a consumed record")
		return true
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExecute_NotConsumedStaysPending() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	s.Require().NoError(s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool { return false }))

	_, err := s.store.Get(s.ctx, "a")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestExecute_Expired() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))
	s.clock.Advance(5 * time.Minute)

	err := s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool { return true })
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *InMemoryStoreSuite) TestExecute_ExpiresWhileWaitingForEntry() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	holding := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error)
	go func() {
		firstDone <- s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool {
			close(holding)
			<-release
			return false
		})
	}()
	<-holding

	// The second attempt finds the record live, then waits on the first.
	looked := make(chan struct{})
	s.clock.OnNextRead(func() { close(looked) })
	secondDone := make(chan error)
	go func() {
		secondDone <- s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool {
			s.Fail("callback must not run for an expired record")
			return true
		})
	}()
	<-looked

	s.clock.Advance(5 * time.Minute)
	close(release)

	s.NoError(<-firstDone)
	s.ErrorIs(<-secondDone, sentinel.ErrExpired)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Evictions.WithLabelValues(metrics.EvictionExpired)))
	s.Equal(0, s.store.Len())
}

func (s *InMemoryStoreSuite) TestExecute_ReplacedRecordSurvivesStaleConsume() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	err := s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool {
		// A replacement lands while the first attempt is still running.
		s.Require().NoError(s.store.Put(s.ctx, pending("a")))
		return true
	})
	s.Require().NoError(err)

	_, err = s.store.Get(s.ctx, "a")
	s.NoError(err, "replacement must not be evicted by the stale consume")
}

func (s *InMemoryStoreSuite) TestExecute_ConcurrentConsumeRunsOnce() {
	s.Require().NoError(s.store.Put(s.ctx, pending("a")))

	var consumed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.Execute(s.ctx, "a", func(*models.PendingConfirmation) bool {
				consumed.Add(1)
				return true
			})
		}()
	}
	wg.Wait()

	s.Equal(int32(1), consumed.Load())
}
