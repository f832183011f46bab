package audit

import "time"

// Action names an audited step in a confirmation's life.
type Action string

const (
	ActionConfirmationStarted   Action = "confirmation_started"
	ActionConfirmationConfirmed Action = "confirmation_confirmed"
	ActionConfirmationRejected  Action = "confirmation_rejected"
	ActionConfirmationFailed    Action = "confirmation_failed"
	ActionMailRejected          Action = "mail_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	// Email is the recipient the confirmation was mailed to.
	Email string `json:"email,omitempty"`
	// Purpose names the flow (registration, event_join, ...) when known.
	Purpose   string `json:"purpose,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
