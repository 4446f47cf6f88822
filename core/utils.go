package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// SplitList splits a comma separated list, trimming every item and dropping the empty ones.
// Order and duplicates are preserved.
func SplitList(s string) []string {
	items := make([]string, 0, strings.Count(s, ",")+1)
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
