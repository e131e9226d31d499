// Package session runs document conversations. A session accepts one upload, keeps the
// uploaded document's segments in its own store, and answers questions about it.
// Operations on one session run one at a time, in arrival order, on the session's
// event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/pkg/utils"
)

// State is the conversation phase of a session.
type State string

const (
	StateAwaitingUpload State = "awaiting_upload"
	StateIngesting      State = "ingesting"
	StateReady          State = "ready"
)

// DefaultQueueSize is the number of operations that may wait behind the running one.
const DefaultQueueSize = 16

// Options holds what every session needs. Embedder and Generator are required; the
// rest fall back to defaults.
type Options struct {
	Embedder  embedding.Embedder
	Generator generation.Generator
	Indexer   *indexer.Indexer
	Prompts   *prompt.Builder
	TopK      int
	MaxTopK   int
	QueueSize int
	// EmbeddingCacheSize, when positive, gives the session its own LRU of embedded
	// texts in front of Embedder. It is dropped when the session closes.
	EmbeddingCacheSize int
	Logger             *zap.Logger
}

// Upload is a file handed to a session. When Path is set the file is read from disk
// and Content is ignored.
type Upload struct {
	Name    string
	Content []byte
	Path    string
}

// Info is a snapshot of a session.
type Info struct {
	ID        string          `json:"id"`
	State     State           `json:"state"`
	Document  *indexer.Result `json:"document,omitempty"`
	Segments  int             `json:"segments"`
	Questions int             `json:"questions"`
	CreatedAt time.Time       `json:"created_at"`
}

// Session is one conversation.
type Session struct {
	id        string
	createdAt time.Time
	embedder  embedding.Embedder
	cache     *embedding.CachedEmbedder
	generator generation.Generator
	indexer   *indexer.Indexer
	prompts   *prompt.Builder
	topK      int
	maxTopK   int
	logger    *zap.Logger

	requests  chan *request
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu        sync.RWMutex
	state     State
	store     *search.Store
	document  *indexer.Result
	questions int
}

type request struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	err  error
	done chan struct{}
}

// New starts a session in StateAwaitingUpload.
func New(id string, opts Options) (*Session, error) {
	if opts.Embedder == nil {
		return nil, errors.New("session requires an embedder")
	}
	if opts.Generator == nil {
		return nil, errors.New("session requires a generator")
	}
	logger := utils.OrNop(opts.Logger).With(zap.String("session", id))
	if opts.Indexer == nil {
		opts.Indexer = indexer.NewIndexer(nil, nil, indexer.WithLogger(logger))
	}
	if opts.Prompts == nil {
		b, err := prompt.NewBuilder(prompt.English)
		if err != nil {
			return nil, err
		}
		opts.Prompts = b
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	s := &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		embedder:  opts.Embedder,
		generator: opts.Generator,
		indexer:   opts.Indexer,
		prompts:   opts.Prompts,
		topK:      opts.TopK,
		maxTopK:   opts.MaxTopK,
		logger:    logger,
		requests:  make(chan *request, opts.QueueSize),
		closing:   make(chan struct{}),
		stopped:   make(chan struct{}),
		state:     StateAwaitingUpload,
	}
	if opts.EmbeddingCacheSize > 0 {
		s.cache = embedding.NewCachedEmbedder(opts.Embedder, opts.EmbeddingCacheSize)
		s.embedder = s.cache
	}
	go s.loop()
	metrics.SessionsActive.Inc()
	logger.Debug("session started")
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session started.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := Info{
		ID:        s.id,
		State:     s.state,
		Document:  s.document,
		Questions: s.questions,
		CreatedAt: s.createdAt,
	}
	if s.store != nil {
		info.Segments = s.store.Size()
	}
	return info
}

// MaxUploadMB returns the upload limit in whole megabytes, 0 when there is none.
func (s *Session) MaxUploadMB() int {
	return int(s.indexer.MaxBytes() >> 20)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		// A close wins over queued work.
		select {
		case <-s.closing:
			s.drain()
			return
		default:
		}
		select {
		case <-s.closing:
			s.drain()
			return
		case r := <-s.requests:
			if err := r.ctx.Err(); err != nil {
				r.err = err
			} else {
				r.err = r.run(r.ctx)
			}
			close(r.done)
		}
	}
}

func (s *Session) drain() {
	for {
		select {
		case r := <-s.requests:
			r.err = models.ErrSessionClosed
			close(r.done)
		default:
			return
		}
	}
}

// do queues fn on the event loop and waits for it. If ctx ends first the caller gets
// ctx.Err(); a queued fn whose ctx has ended is skipped.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-s.closing:
		return models.ErrSessionClosed
	default:
	}
	r := &request{ctx: ctx, run: fn, done: make(chan struct{})}
	select {
	case s.requests <- r:
	case <-s.closing:
		return models.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-r.done:
		return r.err
	case <-s.stopped:
		select {
		case <-r.done:
			return r.err
		default:
			return models.ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event loop after the running operation and discards the store.
// Queued operations fail with models.ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		<-s.stopped
		s.mu.Lock()
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				s.closeErr = fmt.Errorf("failed to close session store: %w", err)
			}
			s.store = nil
		}
		if s.cache != nil {
			_ = s.cache.Close()
		}
		s.mu.Unlock()
		metrics.SessionsActive.Dec()
		s.logger.Debug("session closed")
	})
	return s.closeErr
}
