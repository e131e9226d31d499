package embedding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a token's byte range [Start, End) in the text it was cut from.
type Span struct {
	Start, End int
}

// Spans splits text into tokens. A token is a run of letters and digits (at most
// maxRunes runes; longer runs are cut), a single CJK character, or a single other
// non-space character. Whitespace belongs to no token. maxRunes <= 0 means no cap.
func Spans(text string, maxRunes int) []Span {
	var spans []Span
	start, runes := -1, 0
	flush := func(end int) {
		if start >= 0 {
			spans = append(spans, Span{start, end})
			start, runes = -1, 0
		}
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case isCJK(r) || !isWordRune(r):
			flush(i)
			spans = append(spans, Span{i, i + utf8.RuneLen(r)})
		default:
			if start >= 0 && maxRunes > 0 && runes >= maxRunes {
				flush(i)
			}
			if start < 0 {
				start = i
			}
			runes++
		}
	}
	flush(len(text))
	return spans
}

// Words returns the lowercased word tokens of text: letter/digit runs and CJK characters.
// Punctuation is dropped.
func Words(text string) []string {
	var words []string
	for _, s := range Spans(text, 0) {
		r, _ := utf8.DecodeRuneInString(text[s.Start:])
		if !isWordRune(r) {
			continue
		}
		words = append(words, strings.ToLower(text[s.Start:s.End]))
	}
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// HashString returns a deterministic 31-multiplier hash of s.
func HashString(s string) uint64 {
	var h uint64
	for _, c := range s {
		h = 31*h + uint64(c)
	}
	return h
}

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer maps Words to hashed vocabulary IDs. It does not match any real
// vocabulary, so embeddings from it are only self-consistent.
type SimpleTokenizer struct{}

const (
	clsID     = 101
	sepID     = 102
	vocabSize = 30000
)

// Tokenize produces [CLS] words... [SEP] padded to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsID
	attentionMask[0] = 1
	pos := 1
	for _, w := range Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(w) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
