package models

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type JoinEventRequest struct {
	Email string `json:"email"`
}

type PasswordResetRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateEventRequest struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

// AcceptedResponse is returned by every flow endpoint regardless of whether
// the address is known.
type AcceptedResponse struct {
	Status string `json:"status"`
}

type EventResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	Attendees int       `json:"attendees"`
}
