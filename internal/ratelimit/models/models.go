package models

import (
	"math"
	"time"
)

// Scope groups endpoints that share a limit.
type Scope string

const (
	// ScopeStart covers endpoints that send a confirmation mail.
	ScopeStart Scope = "start"
	// ScopeConfirm covers the link target.
	ScopeConfirm Scope = "confirm"
)

// Limit is a sliding window allowance.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// NewResult fills the derived fields from the window state after a check.
func NewResult(allowed bool, limit, count int, resetAt, now time.Time) *RateLimitResult {
	res := &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		res.RetryAfter = max(int(math.Ceil(resetAt.Sub(now).Seconds())), 1)
	}
	return res
}
