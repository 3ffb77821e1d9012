package stringutils

import "strings"

// Truncate shortens s to at most n runes, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

// Preview flattens s onto one line and truncates it to n runes, for logs.
func Preview(s string, n int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), n)
}
