// Package stats computes content statistics for a text buffer.
package stats

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stats holds counts derived from a buffer's content.
// It is recomputed wholesale on every change and never persisted.
type Stats struct {
	TotalChars int `json:"total_chars"`
	TotalWords int `json:"total_words"`
	TotalLines int `json:"total_lines"`
}

// Compute returns the statistics for content.
// Characters are Unicode code points; words are whitespace-delimited tokens;
// lines are newline count + 1 for non-empty content.
func Compute(content string) Stats {
	if content == "" {
		return Stats{}
	}
	return Stats{
		TotalChars: utf8.RuneCountInString(content),
		TotalWords: len(strings.FieldsFunc(content, isWordSeparator)),
		TotalLines: strings.Count(content, "\n") + 1,
	}
}

// isWordSeparator reports Unicode white space and the ASCII information
// separators U+001C..U+001F, which unicode.IsSpace leaves out.
func isWordSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
