package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_RoundTrip(t *testing.T) {
	eventID := uuid.New()
	ctx := NewContext(
		"eventId", eventID,
		"eventTitle", "Go Meetup",
		"seats", 2,
	)

	assert.Equal(t, 3, ctx.Len())
	assert.Equal(t, eventID, ctx.GetID("eventId"))
	assert.Equal(t, "Go Meetup", ctx.GetString("eventTitle"))
	assert.Equal(t, int64(2), ctx.GetNumber("seats"))
	assert.Equal(t, []string{"eventId", "eventTitle", "seats"}, ctx.Keys())
}

func TestNewContext_Empty(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, 0, ctx.Len())
	assert.False(t, ctx.Has("anything"))
	assert.Equal(t, 0, EmptyContext.Len())
}

func TestNewContext_ConstructionErrorsPanic(t *testing.T) {
	cases := map[string][]any{
		"odd number of arguments": {"eventId"},
		"non-string key":          {42, "value"},
		"empty key":               {"", "value"},
		"duplicate key":           {"k", "a", "k", "b"},
		"unsupported value type":  {"price", 9.99},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, func() { NewContext(args...) })
		})
	}
}

func TestContext_RequiredAccessFailsFast(t *testing.T) {
	ctx := NewContext("memberId", nil, "email", "a@example.org")

	t.Run("missing key", func(t *testing.T) {
		assert.PanicsWithValue(t, `confirmation context: required key "eventId" is missing`, func() {
			ctx.GetString("eventId")
		})
	})
	t.Run("null value", func(t *testing.T) {
		assert.PanicsWithValue(t, `confirmation context: required key "memberId" is null`, func() {
			ctx.GetID("memberId")
		})
	})
	t.Run("wrong kind", func(t *testing.T) {
		assert.Panics(t, func() { ctx.GetNumber("email") })
	})
}

func TestContext_LookupDistinguishesNullFromMissing(t *testing.T) {
	ctx := NewContext("memberId", nil)

	v, ok := ctx.Lookup("memberId")
	require.True(t, ok)
	assert.True(t, v.IsNull())

	_, ok = ctx.Lookup("other")
	assert.False(t, ok)
}
