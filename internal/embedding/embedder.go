// Package embedding turns text into vectors. Providers: the OpenAI embeddings API,
// a local ONNX model, and a deterministic feature-hashing embedder that needs no
// network. Every provider returns unit-length vectors, so inner product is cosine.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
