// Package tokenizer splits text into sentence-like units for the
// sentence-grouped chunking strategy.
package tokenizer

import (
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`)

// Sentences returns the ordered sentence-like units of text. Trailing text
// without closing punctuation is kept as a final unit. Returns nil for
// text with no word characters.
func Sentences(text string) []string {
	spans := sentencePattern.FindAllStringIndex(text, -1)

	var units []string
	last := 0
	for _, span := range spans {
		if s := strings.TrimSpace(text[span[0]:span[1]]); s != "" {
			units = append(units, s)
		}
		last = span[1]
	}

	// Anything after the last sentence boundary is still a unit.
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		units = append(units, rest)
	}
	return units
}
