// Package models defines core data structures for documents, segments, retrieval hits, and answers.
package models

import (
	"fmt"
	"time"
)

// Source describes where a piece of text came from inside the uploaded file.
type Source struct {
	Path  string `json:"path,omitempty"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Page  int    `json:"page,omitempty"`
	Sheet string `json:"sheet,omitempty"`
}

// Label returns a short human-readable location such as "report.pdf p.3".
func (s Source) Label() string {
	switch {
	case s.Page > 0:
		return fmt.Sprintf("%s p.%d", s.Name, s.Page)
	case s.Sheet != "":
		return fmt.Sprintf("%s [%s]", s.Name, s.Sheet)
	default:
		return s.Name
	}
}

// Document is a unit of extracted text: a PDF page, a whole Word file, or an Excel sheet.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Segment is a contiguous slice of a Document that is embedded and retrieved as one unit.
type Segment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Source     Source    `json:"source"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
