// Package indexer turns loaded documents into segments and feeds them to a session store.
package indexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
)

const (
	// DefaultMaxLength is the segment length limit in runes.
	DefaultMaxLength = 400
	// DefaultMaxTokenLength bounds a single token, in runes.
	DefaultMaxTokenLength = 32
)

// Chunker splits documents into segments of at most maxLength runes. It cuts at
// sentence ends where it can, then at clause delimiters, then between tokens. A
// segment is always a contiguous slice of the normalized document text.
type Chunker struct {
	maxLength      int
	maxTokenLength int
}

// NewChunker returns a Chunker. Non-positive values select the defaults; the token
// length is clamped to maxLength.
func NewChunker(maxLength, maxTokenLength int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if maxTokenLength <= 0 {
		maxTokenLength = DefaultMaxTokenLength
	}
	if maxTokenLength > maxLength {
		maxTokenLength = maxLength
	}
	return &Chunker{maxLength: maxLength, maxTokenLength: maxTokenLength}
}

// MaxLength returns the segment limit in runes.
func (c *Chunker) MaxLength() int {
	return c.maxLength
}

// Split chunks every document in order. Segments never span two documents.
func (c *Chunker) Split(docs []*models.Document) []*models.Segment {
	var segs []*models.Segment
	for _, d := range docs {
		segs = append(segs, c.Chunk(d)...)
	}
	return segs
}

// Chunk splits one document. Blank documents yield nil.
func (c *Chunker) Chunk(doc *models.Document) []*models.Segment {
	text := Normalize(doc.Content)
	if text == "" {
		return nil
	}

	var segs []*models.Segment
	emit := func(s span) {
		segs = append(segs, &models.Segment{
			ID:         fmt.Sprintf("%s#%d", doc.ID, len(segs)),
			DocumentID: doc.ID,
			Index:      len(segs),
			Position:   utf8.RuneCountInString(text[:s.start]),
			Content:    text[s.start:s.end],
			Source:     doc.Source,
			CreatedAt:  doc.CreatedAt,
		})
	}

	var cur span
	open := false
	for _, u := range c.units(text) {
		if open && utf8.RuneCountInString(text[cur.start:u.end]) <= c.maxLength {
			cur.end = u.end
			continue
		}
		if open {
			emit(cur)
		}
		cur, open = u, true
	}
	if open {
		emit(cur)
	}
	return segs
}

type span struct {
	start, end int
}

func (s span) runes(text string) int {
	return utf8.RuneCountInString(text[s.start:s.end])
}

// units returns the smallest pieces the merger may join, each within maxLength.
func (c *Chunker) units(text string) []span {
	var out []span
	for _, sent := range splitAt(text, span{0, len(text)}, isSentenceEnd) {
		if sent.runes(text) <= c.maxLength {
			out = append(out, sent)
			continue
		}
		for _, clause := range splitAt(text, sent, isClauseEnd) {
			if clause.runes(text) <= c.maxLength {
				out = append(out, clause)
				continue
			}
			out = append(out, c.tokenUnits(text, clause)...)
		}
	}
	return out
}

// tokenUnits packs the tokens of s into pieces of at most maxLength runes.
func (c *Chunker) tokenUnits(text string, s span) []span {
	var out []span
	var cur span
	open := false
	for _, ts := range embedding.Spans(text[s.start:s.end], c.maxTokenLength) {
		t := span{s.start + ts.Start, s.start + ts.End}
		if open && utf8.RuneCountInString(text[cur.start:t.end]) <= c.maxLength {
			cur.end = t.end
			continue
		}
		if open {
			out = append(out, cur)
		}
		cur, open = t, true
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// splitAt cuts s after every boundary rune reported by isEnd, keeping trailing closers
// with the piece, and trims whitespace from each piece. Blank pieces are dropped.
func splitAt(text string, s span, isEnd func(r rune, next rune) bool) []span {
	var out []span
	add := func(start, end int) {
		piece := text[start:end]
		lead := len(piece) - len(strings.TrimLeftFunc(piece, unicode.IsSpace))
		trail := len(strings.TrimRightFunc(piece, unicode.IsSpace))
		if trail > lead {
			out = append(out, span{start + lead, start + trail})
		}
	}

	start := s.start
	i := s.start
	for i < s.end {
		r, size := utf8.DecodeRuneInString(text[i:s.end])
		next, _ := utf8.DecodeRuneInString(text[i+size : s.end])
		if i+size >= s.end {
			next = -1
		}
		i += size
		if !isEnd(r, next) {
			continue
		}
		// Keep runs like "?!" or "..." and closing quotes with the sentence.
		for i < s.end {
			c, n := utf8.DecodeRuneInString(text[i:s.end])
			if !isCloser(c) && !isTerminator(c) {
				break
			}
			i += n
		}
		add(start, i)
		start = i
	}
	if start < s.end {
		add(start, s.end)
	}
	return out
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '）', '」', '』', '】', '〕':
		return true
	}
	return false
}

// isSentenceEnd treats a period as a boundary only before whitespace or the end of
// text, so "3.14" and "example.com" stay whole.
func isSentenceEnd(r, next rune) bool {
	switch r {
	case '\n', '!', '?', '。', '！', '？', '…':
		return true
	case '.':
		return next == -1 || unicode.IsSpace(next) || isCloser(next)
	}
	return false
}

func isClauseEnd(r, _ rune) bool {
	switch r {
	case '、', ',', '，', ';', '；', ':', '：':
		return true
	}
	return false
}
