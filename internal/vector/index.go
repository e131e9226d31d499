// Package vector holds session vector indexes and similarity helpers.
package vector

import "context"

// VectorIndex is an append-only vector store with top-k similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Close() error
}

// VectorResult is a single search hit. Position is the insertion index of the vector.
type VectorResult struct {
	ID       string
	Position int
	Score    float64 // inner product; cosine similarity for normalized vectors
}
