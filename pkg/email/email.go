package email

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

var ErrInvalidAddress = errors.New("invalid email address")

// Normalize trims and lowercases an address so it can be used as a lookup key.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Validate accepts a bare address ("local@domain") and rejects display-name
// forms and anything net/mail cannot parse.
func Validate(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrInvalidAddress
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address || parsed.Name != "" {
		return ErrInvalidAddress
	}
	return nil
}

// DisplayName derives a greeting name from the local part of an address,
// e.g. "jane.doe+events@example.org" becomes "Jane".
func DisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return ""
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
