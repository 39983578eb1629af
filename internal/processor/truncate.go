package processor

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChars bounds the content handed to downstream prompts.
	DefaultMaxChars = 48000
	// TruncationMarker is appended to any content that was cut.
	TruncationMarker = "\n\n[Content truncated...]"

	paragraphBreak = "\n\n"
)

// Truncate limits text to maxChars characters. When a paragraph break falls in
// the last fifth of the allowed window the cut is made there, otherwise at the
// hard limit. Cut text always ends with TruncationMarker. Text that already
// carries the marker and fits the budget is returned as is, so Truncate is
// idempotent.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	n := utf8.RuneCountInString(text)
	if n <= maxChars {
		return text
	}
	if strings.HasSuffix(text, TruncationMarker) && n-utf8.RuneCountInString(TruncationMarker) <= maxChars {
		return text
	}

	head := text[:byteOffset(text, maxChars)]
	if idx := strings.LastIndex(head, paragraphBreak); idx >= 0 {
		if float64(utf8.RuneCountInString(head[:idx])) >= float64(maxChars)*0.8 {
			return head[:idx] + TruncationMarker
		}
	}
	return head + TruncationMarker
}

// byteOffset returns the byte index of the n-th rune in s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
