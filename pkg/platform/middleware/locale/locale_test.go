package locale

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"commune/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var gotExplicit, gotHeader string
	match := func(explicit, acceptLanguage string) language.Tag {
		gotExplicit, gotHeader = explicit, acceptLanguage
		return language.German
	}

	var got language.Tag
	h := Middleware(match)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Locale(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/confirm?id=x&lang=de", nil)
	req.Header.Set("Accept-Language", "en-US")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "de", gotExplicit)
	assert.Equal(t, "en-US", gotHeader)
	assert.Equal(t, language.German, got)
	assert.Equal(t, "de", rec.Header().Get("Content-Language"))
}
