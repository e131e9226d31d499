package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Sink receives the output of one ingestion. A session's search.Store implements it.
type Sink interface {
	AddDocuments(ctx context.Context, docs []*models.Document) error
	Add(ctx context.Context, segments []*models.Segment) error
}

// Result summarizes a successful ingestion.
type Result struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Documents int    `json:"documents"`
	Segments  int    `json:"segments"`
}

// Indexer runs load, chunk and store for one uploaded file.
type Indexer struct {
	loader   *extract.Loader
	chunker  *Chunker
	maxBytes int64
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMaxBytes sets the upload size limit. Zero or negative disables the check.
func WithMaxBytes(n int64) IndexerOption {
	return func(idx *Indexer) { idx.maxBytes = n }
}

// NewIndexer creates an indexer. loader and chunker may be nil for defaults.
func NewIndexer(loader *extract.Loader, chunker *Chunker, opts ...IndexerOption) *Indexer {
	if loader == nil {
		loader = extract.NewLoader()
	}
	if chunker == nil {
		chunker = NewChunker(DefaultMaxLength, DefaultMaxTokenLength)
	}
	idx := &Indexer{loader: loader, chunker: chunker}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// MaxBytes returns the configured upload limit.
func (idx *Indexer) MaxBytes() int64 {
	return idx.maxBytes
}

// IngestFile reads path from disk and ingests it into sink.
func (idx *Indexer) IngestFile(ctx context.Context, sink Sink, path string) (*Result, error) {
	name := filepath.Base(path)
	if !extract.Supported(name) {
		return nil, idx.fail(name, fmt.Errorf("%q: %w", filepath.Ext(name), models.ErrUnsupportedFormat))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, idx.fail(name, fmt.Errorf("stat file: %v: %w", err, models.ErrLoad))
	}
	if err := idx.checkSize(name, info.Size()); err != nil {
		return nil, idx.fail(name, err)
	}
	docs, err := idx.loader.Load(path)
	if err != nil {
		return nil, idx.fail(name, err)
	}
	return idx.ingest(ctx, sink, name, docs)
}

// IngestBytes ingests an in-memory upload named name.
func (idx *Indexer) IngestBytes(ctx context.Context, sink Sink, name string, content []byte) (*Result, error) {
	if !extract.Supported(name) {
		return nil, idx.fail(name, fmt.Errorf("%q: %w", filepath.Ext(name), models.ErrUnsupportedFormat))
	}
	if err := idx.checkSize(name, int64(len(content))); err != nil {
		return nil, idx.fail(name, err)
	}
	docs, err := idx.loader.LoadBytes(name, content)
	if err != nil {
		return nil, idx.fail(name, err)
	}
	return idx.ingest(ctx, sink, name, docs)
}

func (idx *Indexer) checkSize(name string, size int64) error {
	if idx.maxBytes > 0 && size > idx.maxBytes {
		return fmt.Errorf("%s is %d bytes, limit is %d: %w", name, size, idx.maxBytes, models.ErrFileTooLarge)
	}
	return nil
}

func (idx *Indexer) ingest(ctx context.Context, sink Sink, name string, docs []*models.Document) (*Result, error) {
	start := time.Now()
	now := start.UTC()
	for _, d := range docs {
		d.CreatedAt = now
	}
	segs := idx.chunker.Split(docs)
	if len(segs) == 0 {
		return nil, idx.fail(name, fmt.Errorf("%s has no readable text: %w", name, models.ErrLoad))
	}
	if err := sink.Add(ctx, segs); err != nil {
		return nil, idx.fail(name, fmt.Errorf("store segments: %w", err))
	}
	if err := sink.AddDocuments(ctx, docs); err != nil {
		return nil, idx.fail(name, fmt.Errorf("store documents: %w", err))
	}

	kind := docs[0].Source.Kind
	metrics.DocumentsIngestedTotal.WithLabelValues(kind, "success").Inc()
	metrics.SegmentsIngestedTotal.Add(float64(len(segs)))
	idx.logger.Info("document ingested",
		zap.String("name", name),
		zap.String("kind", kind),
		zap.Int("documents", len(docs)),
		zap.Int("segments", len(segs)),
		zap.Duration("took", time.Since(start)),
	)
	return &Result{Name: name, Kind: kind, Documents: len(docs), Segments: len(segs)}, nil
}

func (idx *Indexer) fail(name string, err error) error {
	kind := "unknown"
	if ext := filepath.Ext(name); extract.Supported(name) {
		kind = ext[1:]
	}
	metrics.DocumentsIngestedTotal.WithLabelValues(kind, "error").Inc()
	idx.logger.Warn("ingestion failed", zap.String("name", name), zap.Error(err))
	return err
}
