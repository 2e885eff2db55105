package request

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/filmrag/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum query length in runes.
	MaxQueryLength = 512
	DefaultTopK    = 5
	MaxTopK        = 50
)

// Request is a validated search query.
type Request struct {
	query  string
	topK   int
	hybrid bool
	rerank bool
}

// New validates and normalizes search parameters.
// A zero topK means DefaultTopK; larger values are clamped to MaxTopK.
// An empty query is valid and yields an empty response downstream.
func New(query string, topK int, hybrid, rerank bool) (Request, error) {
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must not be negative, got %d", domain.ErrInvalidRequest, topK)
	}
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{query: query, topK: topK, hybrid: hybrid, rerank: rerank}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// Hybrid reports whether sparse retrieval and fusion are enabled.
func (r *Request) Hybrid() bool { return r.hybrid }

// Rerank reports whether cross-encoder reranking is enabled.
func (r *Request) Rerank() bool { return r.rerank }

// IsEmpty reports whether there is nothing to search for.
func (r *Request) IsEmpty() bool { return r.query == "" }

// CacheKeyParts returns the normalized argument tuple identifying this request's payload.
func (r *Request) CacheKeyParts() []string {
	return []string{
		strings.ToLower(r.query),
		strconv.Itoa(r.topK),
		"hybrid=" + strconv.FormatBool(r.hybrid),
		"rerank=" + strconv.FormatBool(r.rerank),
	}
}
