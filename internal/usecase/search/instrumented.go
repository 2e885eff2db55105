package search

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
	"github.com/kailas-cloud/filmrag/internal/metrics"
)

// Instrumented wraps a Searcher with latency and result-count metrics.
type Instrumented struct {
	next   Searcher
	logger *zap.Logger
}

// NewInstrumented wraps next.
func NewInstrumented(next Searcher, logger *zap.Logger) *Instrumented {
	return &Instrumented{next: next, logger: logger}
}

// Search delegates to the wrapped searcher and records the outcome.
func (i *Instrumented) Search(ctx context.Context, req *request.Request) (response.Response, error) {
	start := time.Now()
	resp, err := i.next.Search(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		i.logger.Error("Search failed",
			zap.String("query", req.Query()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return resp, err
	}

	metrics.SearchRequestDuration.WithLabelValues(strconv.FormatBool(resp.Cached)).Observe(elapsed.Seconds())
	metrics.SearchResults.Observe(float64(len(resp.Results)))

	i.logger.Debug("Search completed",
		zap.String("query", req.Query()),
		zap.String("enhanced_query", resp.EnhancedQuery),
		zap.Int("top_k", req.TopK()),
		zap.Int("results", len(resp.Results)),
		zap.Bool("cached", resp.Cached),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}
