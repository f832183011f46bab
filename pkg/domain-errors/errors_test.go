package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, CodeUnavailable, "config store unavailable")
	outer := fmt.Errorf("load settings: %w", wrapped)

	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(base, CodeInternal))
	assert.ErrorIs(t, outer, base)
}

func TestHasCode_NestedDomainErrors(t *testing.T) {
	inner := New(CodeNotFound, "event not found")
	outer := Wrap(inner, CodeBadRequest, "cannot join event")

	assert.True(t, Is(outer, CodeBadRequest))
	assert.True(t, Is(outer, CodeNotFound))
	assert.Equal(t, CodeBadRequest, CodeOf(outer))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
}

func TestMessageOf_HidesCause(t *testing.T) {
	err := Wrap(errors.New("pq: relation does not exist"), CodeInternal, "failed to load setting")
	assert.Equal(t, "failed to load setting", MessageOf(err))
	assert.Equal(t, "internal error", MessageOf(errors.New("raw")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:      http.StatusBadRequest,
		CodeValidation:      http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), string(code))
	}
}
