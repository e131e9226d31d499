package prompt

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func hit(content string) *models.Hit {
	return &models.Hit{Segment: &models.Segment{Content: content}}
}

func TestBuild_english(t *testing.T) {
	b, err := NewBuilder("")
	if err != nil {
		t.Fatal(err)
	}
	p := b.Build("  Where is the quarry?  ", []*models.Hit{hit("First text."), hit("Second text.")})
	if p.Empty {
		t.Error("prompt with context should not be empty")
	}
	if strings.Count(p.Text, Separator) != 2 {
		t.Errorf("expected one separator per segment:\n%s", p.Text)
	}
	first := strings.Index(p.Text, "First text.")
	second := strings.Index(p.Text, "Second text.")
	question := strings.Index(p.Text, "Question: Where is the quarry?\n")
	if first < 0 || second < first || question < second {
		t.Errorf("sections out of order:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, Separator+"\nFirst text.") {
		t.Errorf("separator should precede the segment:\n%s", p.Text)
	}
}

func TestBuild_japanese(t *testing.T) {
	b, err := NewBuilder(Japanese)
	if err != nil {
		t.Fatal(err)
	}
	p := b.Build("石切り場はどこ？", []*models.Hit{hit("北にあります。")})
	for _, want := range []string{"文章を前提にして質問に答えてください。", "文章 :", "質問 : 石切り場はどこ？", "北にあります。"} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("missing %q in:\n%s", want, p.Text)
		}
	}
	if p.Language != Japanese {
		t.Errorf("language = %s", p.Language)
	}
}

func TestBuild_emptyContext(t *testing.T) {
	b, _ := NewBuilder(English)
	p := b.Build("q?", []*models.Hit{hit("   "), nil, {Segment: nil}})
	if !p.Empty || len(p.Context) != 0 {
		t.Errorf("blank hits should leave the context empty: %+v", p)
	}
	if strings.Contains(p.Text, Separator) {
		t.Errorf("no separator expected:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, "Question: q?") {
		t.Errorf("question section missing:\n%s", p.Text)
	}
}

func TestBuild_deterministic(t *testing.T) {
	b, _ := NewBuilder(English)
	hits := []*models.Hit{hit("a"), hit("b")}
	if b.Build("q", hits).Text != b.Build("q", hits).Text {
		t.Error("same input should render the same prompt")
	}
}

func TestNewBuilder_unknownLanguage(t *testing.T) {
	if _, err := NewBuilder("fr"); err == nil {
		t.Error("expected error for unknown language")
	}
}
