package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	segs := []*models.Segment{
		{ID: "d#0", Content: "The harbor opens at dawn.", Source: models.Source{Name: "guide.pdf", Page: 1}},
		{ID: "d#1", Content: "The volcanic basalt quarry lies north.", Source: models.Source{Name: "guide.pdf", Page: 2}},
		{ID: "d#2", Content: "Lunch costs twelve dollars.", Source: models.Source{Name: "guide.pdf", Page: 3}},
	}
	if err := idx.Index(context.Background(), segs); err != nil {
		t.Fatalf("Index: %v", err)
	}
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "basalt", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "d#1" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %f", results[0].Score)
	}
	if n, _ := idx.DocCount(); n != 3 {
		t.Errorf("DocCount = %d", n)
	}
}

func TestBleveIndex_caseInsensitive(t *testing.T) {
	idx := newTestIndex(t)
	results, _ := idx.Search(context.Background(), "HARBOR", 10, nil)
	if len(results) != 1 || results[0].ID != "d#0" {
		t.Errorf("results = %+v", results)
	}
}

func TestBleveIndex_fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if results, _ := idx.Search(ctx, "basalr", 10, nil); len(results) != 0 {
		t.Errorf("exact search should miss a typo, got %+v", results)
	}
	results, err := idx.Search(ctx, "basalr", 10, &SearchOptions{Fuzzy: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "d#1" {
		t.Errorf("fuzzy results = %+v", results)
	}
}

func TestBleveIndex_limitAndBlank(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	results, _ := idx.Search(ctx, "guide", 1, nil) // every source name matches
	if len(results) != 1 {
		t.Errorf("limit 1 returned %d", len(results))
	}
	if results, _ := idx.Search(ctx, "   ", 5, nil); len(results) != 0 {
		t.Errorf("blank query returned %d", len(results))
	}
}

func TestBleveIndex_matchesFileNameParts(t *testing.T) {
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	segs := []*models.Segment{
		{ID: "a#0", Content: "Revenue grew.", Source: models.Source{Name: "annual_report-2023.xlsx", Sheet: "Summary"}},
		{ID: "b#0", Content: "Revenue fell.", Source: models.Source{Name: "minutes.docx"}},
	}
	if err := idx.Index(ctx, segs); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		query string
		want  string
	}{
		{"report", "a#0"},
		{"annual", "a#0"},
		{"xlsx", "a#0"},
		{"minutes", "b#0"},
		{"docx", "b#0"},
	}
	for _, tt := range tests {
		results, err := idx.Search(ctx, tt.query, 10, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].ID != tt.want {
			t.Errorf("Search(%q) = %+v, want only %s", tt.query, results, tt.want)
		}
	}
}
