package bucket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "rl:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("request over limit denied with retry-after", func() {
		for range testLimit {
			result, err := s.store.Allow(s.ctx, "rl:over", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
		s.now = s.now.Add(20 * time.Second)

		result, err := s.store.Allow(s.ctx, "rl:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
	})

	s.Run("window slides instead of resetting", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "rl:slide", testLimit, testWindow)
			s.Require().NoError(err)
		}
		s.now = s.now.Add(testWindow)

		result, err := s.store.Allow(s.ctx, "rl:slide", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are independent", func() {
		_, err := s.store.Allow(s.ctx, "rl:a", 1, testWindow)
		s.Require().NoError(err)
		result, err := s.store.Allow(s.ctx, "rl:b", 1, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestResetAndCount() {
	for range 3 {
		_, err := s.store.Allow(s.ctx, "rl:reset", testLimit, testWindow)
		s.Require().NoError(err)
	}
	count, err := s.store.GetCurrentCount(s.ctx, "rl:reset")
	s.Require().NoError(err)
	s.Equal(3, count)

	s.Require().NoError(s.store.Reset(s.ctx, "rl:reset"))
	count, err = s.store.GetCurrentCount(s.ctx, "rl:reset")
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *InMemoryBucketStoreSuite) TestSweep() {
	_, err := s.store.Allow(s.ctx, "rl:old", testLimit, testWindow)
	s.Require().NoError(err)
	s.now = s.now.Add(30 * time.Second)
	_, err = s.store.Allow(s.ctx, "rl:new", testLimit, testWindow)
	s.Require().NoError(err)
	s.now = s.now.Add(31 * time.Second)

	s.Equal(1, s.store.Sweep(s.ctx))
	count, err := s.store.GetCurrentCount(s.ctx, "rl:new")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllowNeverExceedsLimit() {
	store := NewInMemoryBucketStore()
	var (
		mu      sync.Mutex
		allowed int
		wg      sync.WaitGroup
	)
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.Allow(s.ctx, "rl:concurrent", testLimit, testWindow)
			s.NoError(err, fmt.Sprintf("request %d", i))
			if result != nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
