// Package strings holds helpers for small string sets built from user input.
package strings

import (
	"strings"
)

// Distinct drops blank values and repeats, keeping first-seen order.
// Values are compared exactly; callers normalize first.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// FoldSet trims and lowercases values into a set. Blank values are
// skipped; a result with no members is nil so callers can treat nil as
// "match everything".
func FoldSet(values []string) map[string]struct{} {
	var set map[string]struct{}
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(values))
		}
		set[key] = struct{}{}
	}
	return set
}
