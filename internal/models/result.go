package models

import "strings"

// Hit is a single retrieval result. Rank is zero-based in descending similarity order.
type Hit struct {
	Segment *Segment `json:"segment"`
	Score   float64  `json:"score"`
	Rank    int      `json:"rank"`
}

// Citation names a retrieved segment that was given to the model as context.
type Citation struct {
	Name      string  `json:"name"`
	SegmentID string  `json:"segment_id"`
	Content   string  `json:"content"`
	Source    Source  `json:"source"`
	Score     float64 `json:"score"`
}

// Answer is the reply to one question.
type Answer struct {
	Question  string      `json:"question"`
	Text      string      `json:"text"`
	Citations []*Citation `json:"citations"`
	// NoContent is set when retrieval returned nothing citable and the model was not asked.
	NoContent bool `json:"no_content,omitempty"`
}

// NoSourcesFound is appended to answers that have no citations.
const NoSourcesFound = "No sources found"

// CitationNames returns the citation names in rank order.
func (a *Answer) CitationNames() []string {
	names := make([]string, len(a.Citations))
	for i, c := range a.Citations {
		names[i] = c.Name
	}
	return names
}

// Render returns the answer text followed by its sources line.
func (a *Answer) Render() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Text))
	if len(a.Citations) > 0 {
		b.WriteString("\n\nSources: ")
		b.WriteString(strings.Join(a.CitationNames(), ", "))
	} else {
		b.WriteString("\n")
		b.WriteString(NoSourcesFound)
	}
	return b.String()
}
