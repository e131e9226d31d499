package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
)

// stubEmbedder maps known texts to fixed vectors and counts calls.
type stubEmbedder struct {
	vecs  map[string][]float32
	calls int32
	fail  error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.fail != nil {
		return nil, s.fail
	}
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Close() error    { return nil }

func newStore(t *testing.T, e embedding.Embedder) *Store {
	t.Helper()
	s, err := NewStore(e, WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func segments(contents ...string) []*models.Segment {
	out := make([]*models.Segment, len(contents))
	for i, c := range contents {
		out[i] = &models.Segment{ID: fmt.Sprintf("d#%d", i), DocumentID: "d", Index: i, Content: c}
	}
	return out
}

func TestStore_emptySearchSkipsEmbedder(t *testing.T) {
	e := &stubEmbedder{}
	s := newStore(t, e)
	hits, err := s.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatal(err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", hits)
	}
	if atomic.LoadInt32(&e.calls) != 0 {
		t.Error("empty store must not call the embedder")
	}
}

func TestStore_searchOrdersBySimilarity(t *testing.T) {
	e := &stubEmbedder{vecs: map[string][]float32{
		"north": {1, 0, 0},
		"south": {0, 1, 0},
		"mixed": {0.8, 0.6, 0},
		"query": {1, 0, 0},
	}}
	s := newStore(t, e)
	ctx := context.Background()
	if err := s.Add(ctx, segments("south", "mixed", "north")); err != nil {
		t.Fatal(err)
	}
	hits, err := s.Search(ctx, "query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].Segment.Content != "north" || hits[1].Segment.Content != "mixed" {
		t.Errorf("order = %s, %s", hits[0].Segment.Content, hits[1].Segment.Content)
	}
	if hits[0].Rank != 0 || hits[1].Rank != 1 || hits[0].Score < hits[1].Score {
		t.Errorf("ranks/scores wrong: %+v %+v", hits[0], hits[1])
	}

	all, _ := s.Search(ctx, "query", 10)
	if len(all) != 3 {
		t.Errorf("k above size should return size hits, got %d", len(all))
	}
}

func TestStore_tiesKeepInsertionOrder(t *testing.T) {
	e := &stubEmbedder{vecs: map[string][]float32{"q": {0, 0, 1}}}
	s := newStore(t, e)
	ctx := context.Background()
	if err := s.Add(ctx, segments("a", "b", "c")); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, []*models.Segment{{ID: "e#0", DocumentID: "e", Content: "d"}}); err != nil {
		t.Fatal(err)
	}
	hits, _ := s.Search(ctx, "q", 4)
	want := []string{"a", "b", "c", "d"}
	for i, h := range hits {
		if h.Segment.Content != want[i] {
			t.Errorf("hit %d = %s, want %s", i, h.Segment.Content, want[i])
		}
	}
}

func TestStore_addIsAllOrNothing(t *testing.T) {
	e := &stubEmbedder{fail: fmt.Errorf("boom: %w", models.ErrEmbeddingService)}
	s := newStore(t, e)
	ctx := context.Background()
	err := s.Add(ctx, segments("one", "two"))
	if !errors.Is(err, models.ErrEmbeddingService) {
		t.Fatalf("err = %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("size = %d after failed add", s.Size())
	}
	if _, n, _ := s.Stats(ctx); n != 0 {
		t.Errorf("storage has %d segments after failed add", n)
	}
}

func TestStore_lookupAndStats(t *testing.T) {
	s := newStore(t, embedding.NewHashEmbedder(3))
	ctx := context.Background()
	if err := s.Add(ctx, segments("The harbor opens at dawn.", "Basalt is quarried to the north.")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDocuments(ctx, []*models.Document{{ID: "d", Content: "x", Source: models.Source{Name: "f.docx"}}}); err != nil {
		t.Fatal(err)
	}
	hits, err := s.Lookup(ctx, "basalt", 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Segment.ID != "d#1" {
		t.Errorf("lookup = %+v", hits)
	}
	docs, segs, err := s.Stats(ctx)
	if err != nil || docs != 1 || segs != 2 {
		t.Errorf("stats = %d docs, %d segs, %v", docs, segs, err)
	}
	list, _ := s.Documents(ctx)
	if len(list) != 1 || list[0].Source.Name != "f.docx" {
		t.Errorf("documents = %+v", list)
	}
}

func TestStore_storesAreIndependent(t *testing.T) {
	e := embedding.NewHashEmbedder(16)
	a := newStore(t, e)
	b := newStore(t, e)
	if err := a.Add(context.Background(), segments("only in a")); err != nil {
		t.Fatal(err)
	}
	if b.Size() != 0 {
		t.Errorf("b.Size() = %d", b.Size())
	}
}
