package models

import "strings"

// Question is a user question addressed to a session.
type Question struct {
	Content string `json:"content"`
	TopK    int    `json:"top_k,omitempty"`
}

// Validate trims the question and clamps TopK into [1, maxTopK], using defaultTopK when unset.
func (q *Question) Validate(defaultTopK, maxTopK int) error {
	q.Content = strings.TrimSpace(q.Content)
	if q.Content == "" {
		return ErrEmptyQuestion
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	if q.TopK <= 0 {
		q.TopK = 1
	}
	return nil
}
