package util

import "strings"

// LowerSet turns values into a set of trimmed, lower-cased keys, skipping
// blanks.
func LowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
