// Package keyword provides exact-word lookup over a session's segments.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// SearchOptions are optional parameters for keyword search. Nil means defaults.
type SearchOptions struct {
	// Fuzzy matches terms within Fuzziness edits (1 or 2; default 1) for typo tolerance.
	Fuzzy     bool
	Fuzziness int
}

// KeywordIndex defines keyword search over segments.
type KeywordIndex interface {
	Index(ctx context.Context, segs []*models.Segment) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is a segment ID.
type KeywordResult struct {
	ID    string
	Score float64
}
