package domain

// Truncate returns s cut to at most max runes. Truncation happens on rune
// boundaries so multi-byte characters are never split.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
