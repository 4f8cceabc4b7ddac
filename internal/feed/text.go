package feed

import "unicode/utf8"

// Truncate shortens s to at most limit bytes plus "...", cutting on a rune
// boundary so the result stays valid UTF-8.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:runeBoundary(s, limit)] + "..."
}

// runeBoundary returns the largest i <= limit where a rune starts in s
func runeBoundary(s string, limit int) int {
	if limit >= len(s) {
		return len(s)
	}
	if limit <= 0 {
		return 0
	}
	i := limit
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
