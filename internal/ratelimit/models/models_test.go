package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIPKey(t *testing.T) {
	assert.Equal(t, "rl:start:ip:203.0.113.7", NewIPKey(ScopeStart, "203.0.113.7"))
	assert.Equal(t, "rl:confirm:ip:2001_db8__1", NewIPKey(ScopeConfirm, "2001:db8::1"))
}

func TestNewResult(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	allowed := NewResult(true, 5, 2, now.Add(time.Minute), now)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)

	denied := NewResult(false, 5, 5, now.Add(1500*time.Millisecond), now)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 2, denied.RetryAfter)

	elapsed := NewResult(false, 5, 5, now, now)
	assert.Equal(t, 1, elapsed.RetryAfter, "retry-after is never below one second")
}
