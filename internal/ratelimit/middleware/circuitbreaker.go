package middleware

import "sync"

// breaker tracks the health of the primary bucket store. It trips after
// tripAfter consecutive failures and resets after resetAfter consecutive
// successes. A failure while tripped restarts the success streak.
type breaker struct {
	mu         sync.Mutex
	tripped    bool
	streak     int // consecutive results contradicting the current state
	tripAfter  int
	resetAfter int
}

func newBreaker(tripAfter, resetAfter int) *breaker {
	return &breaker{tripAfter: tripAfter, resetAfter: resetAfter}
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// observe records one primary check. It returns the state afterwards and
// whether this observation flipped it.
func (b *breaker) observe(ok bool) (open, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A result agreeing with the current state breaks any streak.
	if ok != b.tripped {
		b.streak = 0
		return b.tripped, false
	}

	b.streak++
	threshold := b.tripAfter
	if b.tripped {
		threshold = b.resetAfter
	}
	if b.streak < threshold {
		return b.tripped, false
	}
	b.tripped = !b.tripped
	b.streak = 0
	return b.tripped, true
}
