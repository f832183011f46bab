package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"commune/internal/confirmation/metrics"
	"commune/internal/confirmation/models"
	"commune/pkg/platform/sentinel"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 5 * time.Minute
)

// Error Contract:
// - Put never fails for in-memory storage; the error return keeps the
//   signature open for shared backends.
// - Get and Execute return ErrNotFound for absent or consumed identifiers and
//   ErrExpired for records whose lifetime has elapsed. Callers must not reveal
//   the difference to end users.

// InMemoryStore holds pending confirmations bounded in count and lifetime.
//
// Capacity is enforced by an LRU: when full, inserting evicts the least
// recently used record. Lifetime is absolute from insertion; lookups never
// extend it, and expired records are treated as absent before they are
// physically purged.
type InMemoryStore struct {
	mu       sync.Mutex
	cache    *lru.Cache
	entries  map[string]*entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
	metrics  *metrics.Metrics

	// removing is set while the store itself removes entries, so onEvicted can
	// tell capacity pressure apart from explicit invalidation.
	removing bool
}

// entry wraps a record with the lock that serializes completion attempts.
type entry struct {
	mu       sync.Mutex
	record   *models.PendingConfirmation
	consumed bool
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithCapacity bounds the number of pending confirmations.
func WithCapacity(capacity int) Option {
	return func(s *InMemoryStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithTTL sets the absolute lifetime of each pending confirmation.
func WithTTL(ttl time.Duration) Option {
	return func(s *InMemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source. Tests use it to step over the TTL.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics reports evictions and the pending count.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *InMemoryStore) {
		s.metrics = m
	}
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cache = lru.New(s.capacity)
	s.cache.OnEvicted = s.onEvicted
	return s
}

// TTL returns the absolute lifetime applied to inserted records.
func (s *InMemoryStore) TTL() time.Duration {
	return s.ttl
}

// Put inserts or replaces the record under rec.ID and stamps its lifetime.
// When the store is full the least recently used record is dropped silently.
func (s *InMemoryStore) Put(_ context.Context, rec *models.PendingConfirmation) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("pending confirmation requires an id: %w", sentinel.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)

	e := &entry{record: rec}
	s.cache.Add(rec.ID, e)
	s.entries[rec.ID] = e
	s.metrics.SetPending(s.cache.Len())
	return nil
}

// Get returns the live record for id.
func (s *InMemoryStore) Get(_ context.Context, id string) (*models.PendingConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return e.record, nil
}

// Execute runs fn against the live record for id while holding that record's
// completion lock. If fn returns true the record is consumed and evicted, so
// concurrent or later calls for the same id see ErrNotFound and fn runs at
// most once with a true outcome per record.
//
// The store-wide lock is not held while fn runs; completions for different
// identifiers proceed in parallel.
func (s *InMemoryStore) Execute(ctx context.Context, id string, fn func(rec *models.PendingConfirmation) bool) error {
	s.mu.Lock()
	e, err := s.lookupLocked(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-check under the entry lock: a racing call may have consumed it, and
	// the lifetime may have run out while we waited.
	if e.consumed {
		return fmt.Errorf("confirmation %s already consumed: %w", id, sentinel.ErrNotFound)
	}
	if e.record.IsExpired(s.now()) {
		if s.removeIfSame(id, e) {
			s.metrics.AddEvictions(metrics.EvictionExpired, 1)
		}
		return fmt.Errorf("confirmation %s: %w", id, sentinel.ErrExpired)
	}

	if !fn(e.record) {
		return nil
	}

	e.consumed = true
	s.removeIfSame(id, e)
	return nil
}

// Invalidate removes id unconditionally. Absent ids are a no-op.
func (s *InMemoryStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removing = true
	s.cache.Remove(id)
	s.removing = false
	s.metrics.SetPending(s.cache.Len())
	return nil
}

// InvalidateAll drops every record.
func (s *InMemoryStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removing = true
	s.cache.Clear()
	s.removing = false
	s.metrics.SetPending(0)
	return nil
}

// DeleteExpired physically purges records whose lifetime has elapsed and
// returns how many were removed.
func (s *InMemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for id, e := range s.entries {
		if e.record.IsExpired(now) {
			expired = append(expired, id)
		}
	}

	s.removing = true
	for _, id := range expired {
		s.cache.Remove(id)
	}
	s.removing = false

	s.metrics.AddEvictions(metrics.EvictionExpired, len(expired))
	s.metrics.SetPending(s.cache.Len())
	return len(expired), nil
}

// Len returns the number of records currently held, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// lookupLocked must be called with s.mu held.
func (s *InMemoryStore) lookupLocked(id string) (*entry, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("confirmation %s: %w", id, sentinel.ErrNotFound)
	}
	e := v.(*entry)
	if e.record.IsExpired(s.now()) {
		s.removing = true
		s.cache.Remove(id)
		s.removing = false
		s.metrics.AddEvictions(metrics.EvictionExpired, 1)
		s.metrics.SetPending(s.cache.Len())
		return nil, fmt.Errorf("confirmation %s: %w", id, sentinel.ErrExpired)
	}
	return e, nil
}

// removeIfSame evicts id only while it still maps to e, so a record that
// replaced e under the same id survives. It reports whether e was removed.
func (s *InMemoryStore) removeIfSame(id string, e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[id]; !ok || current != e {
		return false
	}
	s.removing = true
	s.cache.Remove(id)
	s.removing = false
	s.metrics.SetPending(s.cache.Len())
	return true
}

// onEvicted keeps the entries index in step with the LRU. It runs under s.mu.
func (s *InMemoryStore) onEvicted(key lru.Key, value any) {
	id := key.(string)
	if current, ok := s.entries[id]; ok && current == value.(*entry) {
		delete(s.entries, id)
	}
	if !s.removing {
		s.metrics.AddEvictions(metrics.EvictionCapacity, 1)
	}
}
