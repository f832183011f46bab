package models

// RateLimitExceededResponse is the API response when rate limit is exceeded.
type RateLimitExceededResponse struct {
	Error            string `json:"error"` // "too_many_requests"
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"` // seconds
}
