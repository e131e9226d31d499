// Package search implements the session vector store: embeddings in a vector index,
// segment records in SQLite, and a Bleve index for word lookup.
package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Store holds the segments of one session. Segments are appended and never changed.
type Store struct {
	embedder embedding.Embedder
	vectors  vector.VectorIndex
	storage  storage.Storage
	keywords keyword.KeywordIndex
	logger   *zap.Logger

	// Serializes Add so the three indexes see batches in the same order.
	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for store events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store whose vectors have embedder.Dimensions() components.
// The embedder is shared and is not closed by Close.
func NewStore(embedder embedding.Embedder, opts ...StoreOption) (*Store, error) {
	vectors, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	db, err := storage.NewSQLiteStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to create segment storage: %w", err)
	}
	kw, err := keyword.NewBleveIndex()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	s := &Store{embedder: embedder, vectors: vectors, storage: db, keywords: kw}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s, nil
}

// Add embeds every segment, then records them. Nothing is recorded unless all
// embeddings succeed.
func (s *Store) Add(ctx context.Context, segs []*models.Segment) error {
	if len(segs) == 0 {
		return nil
	}
	texts := make([]string, len(segs))
	for i, seg := range segs {
		texts[i] = seg.Content
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vecs) != len(segs) {
		return fmt.Errorf("got %d embeddings for %d segments: %w", len(vecs), len(segs), models.ErrEmbeddingService)
	}
	dims := s.embedder.Dimensions()
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("embedding %d has %d dimensions, want %d: %w", i, len(v), dims, models.ErrEmbeddingService)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.BatchCreateSegments(ctx, segs); err != nil {
		return fmt.Errorf("failed to store segments: %w", err)
	}
	ids := make([]string, len(segs))
	for i, seg := range segs {
		ids[i] = seg.ID
		seg.Embedding = vecs[i]
	}
	if err := s.vectors.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := s.keywords.Index(ctx, segs); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	s.logger.Debug("segments added", zap.Int("count", len(segs)), zap.Int("size", s.vectors.Size()))
	return nil
}

// AddDocuments records the documents the segments came from.
func (s *Store) AddDocuments(ctx context.Context, docs []*models.Document) error {
	if err := s.storage.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

// Search returns at most k segments most similar to query, best first. Equal scores
// keep insertion order. An empty store answers without calling the embedder.
func (s *Store) Search(ctx context.Context, query string, k int) ([]*models.Hit, error) {
	if k <= 0 || s.Size() == 0 {
		return []*models.Hit{}, nil
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := s.vectors.Search(ctx, qv, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return s.hits(ctx, len(results), func(i int) (string, float64) {
		return results[i].ID, results[i].Score
	})
}

// Lookup finds segments containing the words of query, best keyword match first.
func (s *Store) Lookup(ctx context.Context, query string, limit int, fuzzy bool) ([]*models.Hit, error) {
	results, err := s.keywords.Search(ctx, query, limit, &keyword.SearchOptions{Fuzzy: fuzzy})
	if err != nil {
		return nil, err
	}
	return s.hits(ctx, len(results), func(i int) (string, float64) {
		return results[i].ID, results[i].Score
	})
}

func (s *Store) hits(ctx context.Context, n int, at func(i int) (string, float64)) ([]*models.Hit, error) {
	ids := make([]string, n)
	scores := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		id, score := at(i)
		ids[i] = id
		scores[id] = score
	}
	segs, err := s.storage.GetSegments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}
	hits := make([]*models.Hit, len(segs))
	for i, seg := range segs {
		hits[i] = &models.Hit{Segment: seg, Score: scores[seg.ID], Rank: i}
	}
	return hits, nil
}

// Size returns the number of stored segments.
func (s *Store) Size() int {
	return s.vectors.Size()
}

// Stats reports how many documents and segments the store holds.
func (s *Store) Stats(ctx context.Context) (documents, segments int64, err error) {
	if documents, err = s.storage.CountDocuments(ctx); err != nil {
		return 0, 0, err
	}
	if segments, err = s.storage.CountSegments(ctx); err != nil {
		return 0, 0, err
	}
	return documents, segments, nil
}

// Documents lists the stored documents in upload order.
func (s *Store) Documents(ctx context.Context) ([]*models.Document, error) {
	return s.storage.ListDocuments(ctx)
}

// Close releases the indexes and the in-memory database.
func (s *Store) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{s.keywords, s.storage, s.vectors} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
