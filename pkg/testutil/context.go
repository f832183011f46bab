package testutil

import (
	"net/http"

	"golang.org/x/text/language"

	"commune/pkg/requestcontext"
)

// WithLocale adds a negotiated locale to the request context.
// This simulates what the locale middleware does for inbound requests.
func WithLocale(req *http.Request, tag language.Tag) *http.Request {
	return req.WithContext(requestcontext.WithLocale(req.Context(), tag))
}

// WithClientIP sets the client IP as the metadata middleware would.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent()))
}
