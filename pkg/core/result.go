// Package core implements the Search Orchestrator (C10): it drives a query
// string through parsing, cache lookup, candidate retrieval, ranking,
// pagination and snippet generation, and exposes the /api/suggestions and
// /api/related lookups that sit alongside search.
package core

import "github.com/larsson/sokmotor/pkg/index"

// RankedResult is a single page in a ResultSet, carrying everything the API
// layer needs to render a hit without touching the index again.
type RankedResult struct {
	ID          index.PageID `json:"id"`
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Domain      string       `json:"domain"`
	Snippet     string       `json:"snippet"`
	Score       float64      `json:"score"`
	Rank        int          `json:"rank"`
}

// ResultSet is the orchestrator's response to a Search call.
type ResultSet struct {
	Query           string         `json:"query"`
	Diagnostic      string         `json:"diagnostic,omitempty"`
	Results         []RankedResult `json:"results"`
	TotalResults    int            `json:"total_results"`
	ReturnedResults int            `json:"returned_results"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	FromCache       bool           `json:"from_cache"`
	HasMore         bool           `json:"has_more"`
	NextOffset      int            `json:"next_offset"`
	// Invalid is set only when the query itself failed to parse (QueryInvalid),
	// as opposed to a well-formed query that simply matched nothing. The HTTP
	// layer uses it to pick a 400 vs 200 status; it is not part of the wire shape.
	Invalid bool `json:"-"`
}
