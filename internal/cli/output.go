// Package cli formats kotae results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json" (case-insensitive).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// AnswerOutput is the JSON shape of a one-shot answer.
type AnswerOutput struct {
	Document *indexer.Result `json:"document,omitempty"`
	*models.Answer
	Rendered string `json:"rendered"`
}

// WriteAnswer writes ans to w. Text output is the rendered answer followed by the
// cited segments.
func WriteAnswer(w io.Writer, doc *indexer.Result, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(AnswerOutput{Document: doc, Answer: ans, Rendered: ans.Render()})
	}
	fmt.Fprintln(w, ans.Render())
	if len(ans.Citations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, c := range ans.Citations {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s] %s | Score: %.4f\n", c.Name, c.Source.Label(), c.Score)
		fmt.Fprintf(w, "%s\n", utils.Truncate(c.Content, 200))
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
