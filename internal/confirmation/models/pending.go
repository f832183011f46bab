package models

import (
	"time"

	"golang.org/x/text/language"
)

// PendingConfirmation is the record held by the store between the moment the
// link is mailed and the moment it is confirmed or expires.
type PendingConfirmation struct {
	ID        string
	Email     string
	Message   string
	Locale    language.Tag
	Handler   Handler
	Context   Context
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the record's absolute lifetime has elapsed.
// Lifetime is fixed at insertion and never extended by lookups.
func (p *PendingConfirmation) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
