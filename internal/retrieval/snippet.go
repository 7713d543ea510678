package retrieval

import "unicode/utf8"

// Snippet shortens text to at most maxLen runes, appending "..." when cut.
func Snippet(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLen]) + "..."
}
