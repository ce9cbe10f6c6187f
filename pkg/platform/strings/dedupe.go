// Package strings holds small string-slice helpers shared across the
// configuration and transport layers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims whitespace from every element and drops duplicates and
// empties. Order of first occurrence is preserved, so broker and address
// lists keep their configured priority.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}
