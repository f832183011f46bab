package models

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Kind enumerates the value types a Context can carry.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindID
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindID:
		return "id"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Value is a single context entry. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	id   uuid.UUID
	num  int64
}

// StringValue wraps a string.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// IDValue wraps an identifier.
func IDValue(id uuid.UUID) Value {
	return Value{kind: KindID, id: id}
}

// NumberValue wraps an integer.
func NumberValue(n int64) Value {
	return Value{kind: KindNumber, num: n}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Context is the opaque payload handed from the code that starts a
// confirmation to the Handler that completes it. Keys are a private contract
// between those two parties; the engine never reads them.
//
// Contexts are immutable once built. Misuse (odd argument lists, unsupported
// value types, reading absent or null keys) panics: it is a bug in the
// calling code, not an operational condition.
type Context struct {
	values map[string]Value
}

// EmptyContext is a Context without entries.
var EmptyContext = Context{}

// NewContext builds a Context from alternating key/value arguments.
// Values may be string, uuid.UUID, any integer type, Value, or nil.
//
//	models.NewContext("eventId", eventID, "seats", 2)
func NewContext(keyValues ...any) Context {
	if len(keyValues)%2 != 0 {
		panic(fmt.Sprintf("confirmation context: odd number of arguments (%d)", len(keyValues)))
	}
	values := make(map[string]Value, len(keyValues)/2)
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok || key == "" {
			panic(fmt.Sprintf("confirmation context: key at position %d must be a non-empty string, got %T", i, keyValues[i]))
		}
		if _, dup := values[key]; dup {
			panic(fmt.Sprintf("confirmation context: duplicate key %q", key))
		}
		values[key] = toValue(key, keyValues[i+1])
	}
	return Context{values: values}
}

func toValue(key string, raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case string:
		return StringValue(v)
	case uuid.UUID:
		return IDValue(v)
	case int:
		return NumberValue(int64(v))
	case int32:
		return NumberValue(int64(v))
	case int64:
		return NumberValue(v)
	case uint32:
		return NumberValue(int64(v))
	default:
		panic(fmt.Sprintf("confirmation context: unsupported value type %T for key %q", raw, key))
	}
}

// Lookup returns the raw value for key and whether it is present.
func (c Context) Lookup(key string) (Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present (null values count as present).
func (c Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Len returns the number of entries.
func (c Context) Len() int {
	return len(c.values)
}

// Keys returns the keys in sorted order.
func (c Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// GetString returns the string stored under key.
// Panics if the key is absent, null, or not a string.
func (c Context) GetString(key string) string {
	return c.require(key, KindString).str
}

// GetID returns the identifier stored under key.
// Panics if the key is absent, null, or not an identifier.
func (c Context) GetID(key string) uuid.UUID {
	return c.require(key, KindID).id
}

// GetNumber returns the number stored under key.
// Panics if the key is absent, null, or not a number.
func (c Context) GetNumber(key string) int64 {
	return c.require(key, KindNumber).num
}

func (c Context) require(key string, want Kind) Value {
	v, ok := c.values[key]
	if !ok {
		panic(fmt.Sprintf("confirmation context: required key %q is missing", key))
	}
	if v.kind == KindNull {
		panic(fmt.Sprintf("confirmation context: required key %q is null", key))
	}
	if v.kind != want {
		panic(fmt.Sprintf("confirmation context: key %q holds %s, not %s", key, v.kind, want))
	}
	return v
}
