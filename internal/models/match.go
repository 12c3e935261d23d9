// Package models defines request, response and result types for question matching.
package models

import "fmt"

// MatchResult is the outcome of matching one query against the reference set.
// When Matched is false, Question is empty; Score is always the best similarity
// observed (0 for an empty reference set).
type MatchResult struct {
	Query     string  `json:"query"`
	Question  string  `json:"match,omitempty"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Matched   bool    `json:"matched"`
}

// Candidate is one scored reference question.
type Candidate struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// MatchRequest is the body of POST /api/v1/match.
type MatchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks the request and clamps Limit to [0, maxLimit].
func (r *MatchRequest) Validate(maxLimit int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.Limit < 0 {
		r.Limit = 0
	}
	if r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return nil
}

// MatchResponse is the response of POST /api/v1/match.
type MatchResponse struct {
	MatchResult
	Candidates []Candidate `json:"candidates,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse reports the canonical question that a chat message resolves to.
// Resolved is the matched question, or the normalized message when nothing matched.
type ChatResponse struct {
	Query    string `json:"query"`
	Matched  bool   `json:"matched"`
	Match    string `json:"match,omitempty"`
	Resolved string `json:"resolved"`
}
