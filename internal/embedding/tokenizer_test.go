package embedding

import (
	"reflect"
	"testing"
)

func spanTexts(text string, spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.Start:s.End]
	}
	return out
}

func TestSpans(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxRunes int
		want     []string
	}{
		{"words and punctuation", "Hello, world!", 0, []string{"Hello", ",", "world", "!"}},
		{"cjk per rune", "東京は晴れ。", 0, []string{"東", "京", "は", "晴", "れ", "。"}},
		{"mixed", "GPT-4 で", 0, []string{"GPT", "-", "4", "で"}},
		{"long run capped", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"whitespace only", " \n\t ", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spanTexts(tt.text, Spans(tt.text, tt.maxRunes))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Spans(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWords(t *testing.T) {
	got := Words("The Quarry, north!")
	want := []string{"the", "quarry", "north"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %q, want %q", got, want)
	}
}

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("unexpected lengths %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsID || ids[3] != sepID {
		t.Errorf("ids = %v", ids)
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention = %v", attn)
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("acb") {
		t.Error("order should matter")
	}
}
