// Package prompt builds the grounded question prompt sent to the chat model.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/hyperjump/kotae/internal/models"
)

// Separator precedes every context segment.
const Separator = "---------------------------------------------"

// Languages with a built-in template.
const (
	English  = "en"
	Japanese = "ja"
)

var templates = map[string]string{
	English: `Answer the question using the document below as your premise.
If the document does not contain the answer, say so.

Document:
{{range .Context}}
{{$.Separator}}
{{.}}
{{end}}
Question: {{.Question}}
`,
	Japanese: `文章を前提にして質問に答えてください。

文章 :
{{range .Context}}
{{$.Separator}}
{{.}}
{{end}}
質問 : {{.Question}}
`,
}

// Prompt is a rendered prompt.
type Prompt struct {
	Text     string
	Language string
	// Context holds the segment texts placed in the document section, in rank order.
	Context []string
	// Empty is set when the document section has no segments.
	Empty bool
}

// Builder renders prompts from one template.
type Builder struct {
	language string
	tmpl     *template.Template
}

type templateData struct {
	Separator string
	Context   []string
	Question  string
}

// NewBuilder returns a Builder for language ("" means English).
func NewBuilder(language string) (*Builder, error) {
	if language == "" {
		language = English
	}
	src, ok := templates[language]
	if !ok {
		return nil, fmt.Errorf("no prompt template for language %q (have %s, %s)", language, English, Japanese)
	}
	tmpl, err := template.New(language).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", language, err)
	}
	return &Builder{language: language, tmpl: tmpl}, nil
}

// Language returns the template language.
func (b *Builder) Language() string {
	return b.language
}

// Build renders the prompt for question with the hits as context, in the order given.
// Hits whose segment text is blank are left out.
func (b *Builder) Build(question string, hits []*models.Hit) *Prompt {
	var ctx []string
	for _, h := range hits {
		if h == nil || h.Segment == nil {
			continue
		}
		if text := strings.TrimSpace(h.Segment.Content); text != "" {
			ctx = append(ctx, text)
		}
	}
	var sb strings.Builder
	data := templateData{Separator: Separator, Context: ctx, Question: strings.TrimSpace(question)}
	if err := b.tmpl.Execute(&sb, data); err != nil {
		// The templates are fixed and only range over strings.
		panic(fmt.Sprintf("prompt template %s: %v", b.language, err))
	}
	return &Prompt{Text: sb.String(), Language: b.language, Context: ctx, Empty: len(ctx) == 0}
}
