package relay

import (
	"strings"
	"unicode"
)

// Chunk splits text into pieces of at most maxLength runes, breaking at the
// last whitespace at or before maxLength. No-break spaces never count as
// whitespace here. A run with no whitespace is cut
// hard at maxLength. Whitespace around each break is dropped. The result is
// never empty; text that already fits is returned as-is.
func Chunk(text string, maxLength int) []string {
	runes := []rune(text)
	if maxLength <= 0 || len(runes) <= maxLength {
		return []string{text}
	}

	var chunks []string
	for len(runes) > maxLength {
		cut := lastSpace(runes, maxLength)
		if cut <= 0 {
			cut = maxLength
		}

		if head := strings.TrimRightFunc(string(runes[:cut]), isBreak); head != "" {
			chunks = append(chunks, head)
		}
		runes = trimLeftSpace(runes[cut:])
	}

	if len(runes) > 0 || len(chunks) == 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// lastSpace returns the index of the last whitespace rune in runes[1:limit+1],
// or -1. runes must be longer than limit.
func lastSpace(runes []rune, limit int) int {
	for i := limit; i > 0; i-- {
		if isBreak(runes[i]) {
			return i
		}
	}
	return -1
}

func trimLeftSpace(runes []rune) []rune {
	for len(runes) > 0 && isBreak(runes[0]) {
		runes = runes[1:]
	}
	return runes
}

// isBreak reports whether r is whitespace that a chunk may be split at.
func isBreak(r rune) bool {
	switch r {
	case '\u00a0', '\u2007', '\u202f':
		return false
	}
	return unicode.IsSpace(r)
}
