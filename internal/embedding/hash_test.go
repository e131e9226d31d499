package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder_deterministicUnitVectors(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()
	a, err := e.Embed(ctx, "The volcanic basalt quarry lies north.")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "The volcanic basalt quarry lies north.")
	if len(a) != 128 || e.Dimensions() != 128 {
		t.Fatalf("len = %d", len(a))
	}
	if math.Abs(dot(a, a)-1) > 1e-5 {
		t.Errorf("norm^2 = %f, want 1", dot(a, a))
	}
	if math.Abs(dot(a, b)-1) > 1e-5 {
		t.Error("same text should embed identically")
	}
}

func TestHashEmbedder_sharedWordsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(512)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "Where is the basalt quarry?")
	near, _ := e.Embed(ctx, "The basalt quarry lies north.")
	far, _ := e.Embed(ctx, "Lunch costs twelve dollars.")
	if dot(q, near) <= dot(q, far) {
		t.Errorf("expected overlap to win: near=%f far=%f", dot(q, near), dot(q, far))
	}
}

func TestHashEmbedder_noWordsIsZero(t *testing.T) {
	v, err := NewHashEmbedder(16).Embed(context.Background(), "?!")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashEmbedder_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}
