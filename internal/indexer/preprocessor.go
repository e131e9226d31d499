package indexer

import (
	"strings"
	"unicode"
)

// Preprocess trims text and collapses every whitespace run, newlines included, to one space.
func Preprocess(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Normalize trims text, collapses horizontal whitespace runs to one space and runs of
// line breaks to a single "\n". Line structure survives so the chunker can treat a line
// break as a sentence boundary.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, isHorizontalSpace), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func isHorizontalSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}
