// Package shared holds the JSON response helpers used by every HTTP handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "commune/pkg/domain-errors"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto its HTTP status and envelope.
// Internal errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	description := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		description = "internal error"
	}
	WriteJSON(w, dErrors.HTTPStatus(code), ErrorResponse{
		Error:            string(code),
		ErrorDescription: description,
	})
}
