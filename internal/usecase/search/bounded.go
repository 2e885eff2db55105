package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
)

// Bounded caps the wall time of every search. A request cut short returns
// whatever the pipeline assembled and is not cached.
type Bounded struct {
	next    Searcher
	timeout time.Duration
}

// NewBounded wraps next; a non-positive timeout disables the bound.
func NewBounded(next Searcher, timeout time.Duration) *Bounded {
	return &Bounded{next: next, timeout: timeout}
}

// Search runs next under the deadline.
func (b *Bounded) Search(ctx context.Context, req *request.Request) (response.Response, error) {
	if b.timeout <= 0 {
		return b.next.Search(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Search(ctx, req)
}
