package partychat

import "strings"

const (
	// DefaultPreviewLimit bounds directory previews and the reply composer line.
	DefaultPreviewLimit = 90
	// DefaultSnippetLimit bounds inline reply snippets.
	DefaultSnippetLimit = 70

	ellipsis = "…"
)

// Sanitize collapses every run of whitespace to a single space and trims both ends.
func Sanitize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate sanitizes text and, when it is longer than limit characters, cuts it
// to limit-1 characters followed by a single ellipsis. Length is counted in runes.
// A non-positive limit disables truncation.
func Truncate(text string, limit int) string {
	clean := Sanitize(text)
	if limit <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return string(runes[:limit-1]) + ellipsis
}
