// Package locale resolves the visitor's language once per request.
package locale

import (
	"net/http"

	"golang.org/x/text/language"

	"commune/pkg/requestcontext"
)

// QueryParam overrides Accept-Language, e.g. links that carry "?lang=de".
const QueryParam = "lang"

// Matcher picks a supported tag from an explicit choice and an
// Accept-Language header.
type Matcher func(explicit, acceptLanguage string) language.Tag

// Middleware stores the negotiated locale in the request context.
func Middleware(match Matcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := match(r.URL.Query().Get(QueryParam), r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(requestcontext.WithLocale(r.Context(), tag)))
		})
	}
}
