package utils

// ellipsis marks truncated text.
const ellipsis = "…"

// Truncate shortens s to at most maxLen runes, ending it with an ellipsis
// when anything was cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	return string(runes[:maxLen-1]) + ellipsis
}
