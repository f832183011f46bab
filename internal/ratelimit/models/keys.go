package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so an identifier containing ':' cannot address a neighbouring bucket.
//
// Example: an IPv6 address "2001:db8::1" becomes "2001_db8__1".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPKey builds the bucket key for a client IP within a scope.
func NewIPKey(scope Scope, ip string) string {
	return "rl:" + string(scope) + ":ip:" + SanitizeKeySegment(ip)
}
