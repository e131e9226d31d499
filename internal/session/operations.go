package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
)

// Upload ingests the session's document. It moves the session from
// StateAwaitingUpload through StateIngesting to StateReady. On failure the partial
// store is discarded and the session waits for another upload. A session that already
// holds a document answers models.ErrDocumentLoaded.
func (s *Session) Upload(ctx context.Context, up Upload) (*indexer.Result, error) {
	var res *indexer.Result
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.ingest(ctx, up)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Session) ingest(ctx context.Context, up Upload) (*indexer.Result, error) {
	s.mu.RLock()
	doc := s.document
	s.mu.RUnlock()
	if doc != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, models.ErrDocumentLoaded)
	}

	s.setState(StateIngesting)
	store, err := search.NewStore(s.embedder, search.WithLogger(s.logger))
	if err != nil {
		s.setState(StateAwaitingUpload)
		return nil, err
	}
	var res *indexer.Result
	if up.Path != "" {
		res, err = s.indexer.IngestFile(ctx, store, up.Path)
	} else {
		res, err = s.indexer.IngestBytes(ctx, store, up.Name, up.Content)
	}
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			s.logger.Warn("failed to discard partial store", zap.Error(cerr))
		}
		s.setState(StateAwaitingUpload)
		return nil, err
	}

	s.mu.Lock()
	s.store = store
	s.document = res
	s.state = StateReady
	s.mu.Unlock()
	return res, nil
}

// Ask answers question with the session's default top-k.
func (s *Session) Ask(ctx context.Context, question string) (*models.Answer, error) {
	return s.AskQuestion(ctx, models.Question{Content: question})
}

// AskQuestion retrieves the segments most similar to q, asks the model with them as
// context, and cites them as source_0, source_1, ... in rank order. When nothing
// citable is retrieved the model is not called and the answer says so. Errors leave
// the session state unchanged.
func (s *Session) AskQuestion(ctx context.Context, q models.Question) (*models.Answer, error) {
	if err := q.Validate(s.topK, s.maxTopK); err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	var ans *models.Answer
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		ans, err = s.answer(ctx, q)
		return err
	})
	switch {
	case err != nil:
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		if !errors.Is(err, models.ErrNoFileProvided) {
			s.logger.Warn("question failed", zap.Error(err))
		}
		return nil, err
	case ans.NoContent:
		metrics.QuestionsTotal.WithLabelValues("no_content").Inc()
	default:
		metrics.QuestionsTotal.WithLabelValues("answered").Inc()
	}
	return ans, nil
}

func (s *Session) answer(ctx context.Context, q models.Question) (*models.Answer, error) {
	s.mu.RLock()
	store, state := s.store, s.state
	s.mu.RUnlock()
	if state != StateReady || store == nil {
		return nil, models.ErrNoFileProvided
	}

	hits, err := store.Search(ctx, q.Content, q.TopK)
	if err != nil {
		return nil, err
	}
	ans := &models.Answer{Question: q.Content, Citations: []*models.Citation{}}
	cited := make([]*models.Hit, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Segment.Content) == "" {
			continue
		}
		ans.Citations = append(ans.Citations, &models.Citation{
			Name:      fmt.Sprintf("source_%d", len(ans.Citations)),
			SegmentID: h.Segment.ID,
			Content:   h.Segment.Content,
			Source:    h.Segment.Source,
			Score:     h.Score,
		})
		cited = append(cited, h)
	}
	if len(cited) == 0 {
		ans.Text = NoContentAnswer
		ans.NoContent = true
	} else {
		p := s.prompts.Build(q.Content, cited)
		text, err := s.generator.Generate(ctx, p.Text)
		if err != nil {
			return nil, err
		}
		ans.Text = text
	}

	s.mu.Lock()
	s.questions++
	s.mu.Unlock()
	s.logger.Debug("question answered", zap.Int("hits", len(hits)), zap.Int("citations", len(ans.Citations)))
	return ans, nil
}

// Lookup finds segments containing the words of query. It fails with
// models.ErrNoFileProvided until a document is loaded.
func (s *Session) Lookup(ctx context.Context, query string, limit int, fuzzy bool) ([]*models.Hit, error) {
	var hits []*models.Hit
	err := s.do(ctx, func(ctx context.Context) error {
		s.mu.RLock()
		store := s.store
		s.mu.RUnlock()
		if store == nil {
			return models.ErrNoFileProvided
		}
		var err error
		hits, err = store.Lookup(ctx, query, limit, fuzzy)
		return err
	})
	return hits, err
}
