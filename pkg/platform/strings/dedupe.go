// Package strings provides string slice helpers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the
// first occurrence in order.
func DedupeAndTrim(values []string) []string {
	return DedupeBy(values, strings.TrimSpace)
}

// DedupeBy drops values whose key(value) is empty or already seen. The
// returned slice holds the keys, not the original values.
//
//	DedupeBy([]string{" A@x.org", "a@x.org "}, email.Normalize)
//	// []string{"a@x.org"}
func DedupeBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := key(v)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
