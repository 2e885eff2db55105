package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// Searcher runs the retrieval pipeline for one request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (response.Response, error)
}

// Enhancer rewrites the raw query for retrieval.
type Enhancer interface {
	Enhance(ctx context.Context, query string) string
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// DenseSearcher runs approximate nearest-neighbour search.
type DenseSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]candidate.Candidate, error)
}

// SparseSearcher runs keyword search over the current snapshot.
type SparseSearcher interface {
	Query(text string, topK int) []candidate.Candidate
}

// Reranker re-scores fused candidates against the original query.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []candidate.Candidate, topK int) []candidate.Candidate
}

// ResultCache stores response payloads.
type ResultCache interface {
	Key(ns cache.Namespace, args ...any) string
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}

// Refresher triggers a background index rebuild when the snapshot is stale.
type Refresher interface {
	RefreshIfStale(ctx context.Context)
}

// StageObserver is notified on every pipeline transition.
type StageObserver interface {
	Enter(stage string)
}
