package models

import (
	"time"

	"github.com/google/uuid"
)

// Keys of the confirmation context shared between the flows that start a
// confirmation and the handlers that complete it.
const (
	ContextKeyEventID      = "eventId"
	ContextKeyMemberID     = "memberId"
	ContextKeyPasswordHash = "passwordHash"
)

// Purposes label audit events per flow.
const (
	PurposeRegistration  = "registration"
	PurposeEventJoin     = "event_join"
	PurposePasswordReset = "password_reset"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

type Member struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

type Event struct {
	ID        uuid.UUID
	Title     string
	StartsAt  time.Time
	Attendees []string
}

// Attends reports whether email is on the attendee list.
func (e *Event) Attends(email string) bool {
	for _, a := range e.Attendees {
		if a == email {
			return true
		}
	}
	return false
}
