package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kotae/internal/models"
)

// BleveIndex implements KeywordIndex with an in-memory Bleve index.
type BleveIndex struct {
	index bleve.Index
}

// indexedSegment is the document shape stored in Bleve.
type indexedSegment struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// NewBleveIndex creates an empty in-memory index. Nothing is written to disk.
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// No stemming: a lookup for "basalt" should only hit that word.
	text.Analyzer = standard.Name
	text.Store = false
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("source", text)
	im.AddDocumentMapping("segment", docMapping)
	im.DefaultType = "segment"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds segs in one batch.
func (b *BleveIndex) Index(ctx context.Context, segs []*models.Segment) error {
	batch := b.index.NewBatch()
	for _, s := range segs {
		doc := indexedSegment{Content: s.Content, Source: sourceTerms(s.Source)}
		if err := batch.Index(s.ID, doc); err != nil {
			return fmt.Errorf("index segment %s: %w", s.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query (or per-term fuzzy queries) and returns up to limit hits,
// best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	var q blevequery.Query
	if opts != nil && opts.Fuzzy {
		fuzziness := opts.Fuzziness
		if fuzziness <= 0 {
			fuzziness = 1
		}
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// nameSeparators become spaces so "annual_report.xlsx" indexes as annual, report, xlsx.
// The standard tokenizer would otherwise keep each file name whole.
var nameSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ")

func sourceTerms(src models.Source) string {
	return nameSeparators.Replace(src.Label())
}

func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery matches any query term within fuzziness edits.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(strings.Trim(term, ".,;:!?\"'()"))
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the number of indexed segments.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
