package models

import (
	"errors"
	"testing"
)

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name     string
		question *Question
		wantErr  bool
		wantTopK int
	}{
		{"empty question", &Question{Content: ""}, true, 0},
		{"blank question", &Question{Content: "  \n\t "}, true, 0},
		{"sets default top_k", &Question{Content: "hello"}, false, 4},
		{"keeps explicit top_k", &Question{Content: "hello", TopK: 2}, false, 2},
		{"caps top_k", &Question{Content: "hello", TopK: 500}, false, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.Validate(4, 20)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyQuestion) {
					t.Errorf("expected ErrEmptyQuestion, got %v", err)
				}
				return
			}
			if tt.question.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.question.TopK, tt.wantTopK)
			}
		})
	}
}

func TestQuestion_ValidateTrims(t *testing.T) {
	q := &Question{Content: "  what is it?  "}
	if err := q.Validate(4, 0); err != nil {
		t.Fatal(err)
	}
	if q.Content != "what is it?" {
		t.Errorf("Content = %q", q.Content)
	}
}

func TestAnswer_Render(t *testing.T) {
	a := &Answer{
		Text: "The quarry lies north. ",
		Citations: []*Citation{
			{Name: "source_0", Content: "a"},
			{Name: "source_1", Content: "b"},
		},
	}
	want := "The quarry lies north.\n\nSources: source_0, source_1"
	if got := a.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	empty := &Answer{Text: "Nothing relevant."}
	if got := empty.Render(); got != "Nothing relevant.\nNo sources found" {
		t.Errorf("Render() = %q", got)
	}
}

func TestSource_Label(t *testing.T) {
	tests := []struct {
		src  Source
		want string
	}{
		{Source{Name: "a.pdf", Page: 3}, "a.pdf p.3"},
		{Source{Name: "b.xlsx", Sheet: "Sheet1"}, "b.xlsx [Sheet1]"},
		{Source{Name: "c.docx"}, "c.docx"},
	}
	for _, tt := range tests {
		if got := tt.src.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}
