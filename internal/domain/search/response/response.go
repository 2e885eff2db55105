package response

import (
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
)

// Item is one ranked film in a response.
type Item struct {
	FilmID      int64    `json:"film_id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
	Source      string   `json:"source"`
}

// Payload is the cacheable part of a response.
type Payload struct {
	Results       []Item `json:"results"`
	EnhancedQuery string `json:"enhanced_query,omitempty"`
}

// Response is returned by the search pipeline.
type Response struct {
	Payload
	Query  string `json:"query"`
	TookMs int64  `json:"took_ms"`
	Cached bool   `json:"cached"`
}

// NewPayload builds a payload from ranked candidates.
// The enhanced query is recorded only when enhancement changed the query.
func NewPayload(query, enhanced string, ranked []candidate.Candidate) Payload {
	items := make([]Item, len(ranked))
	for i, c := range ranked {
		items[i] = Item{
			FilmID:  c.DocID(),
			Title:   c.Title(),
			Content: c.Text(),
			Score:   c.Score(),
			Source:  string(c.Source()),
		}
		if s, ok := c.RerankScore(); ok {
			items[i].RerankScore = &s
		}
	}
	p := Payload{Results: items}
	if enhanced != query {
		p.EnhancedQuery = enhanced
	}
	return p
}

// Candidates restores pipeline candidates from the payload.
func (p *Payload) Candidates() []candidate.Candidate {
	out := make([]candidate.Candidate, len(p.Results))
	for i, it := range p.Results {
		out[i] = candidate.Reconstruct(
			it.FilmID, it.Title, it.Content, it.Score, candidate.Source(it.Source), it.RerankScore,
		)
	}
	return out
}

// Empty returns a response with no results.
func Empty(query string) Response {
	return Response{Payload: Payload{Results: []Item{}}, Query: query}
}
