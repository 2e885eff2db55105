package indexsync

import (
	"context"
	"time"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/index/sparse"
)

// CorpusSource lists the films to index.
type CorpusSource interface {
	FetchAll(ctx context.Context) ([]film.Film, error)
}

// SparseIndex is rebuilt from the full corpus on every sync.
type SparseIndex interface {
	Build(ctx context.Context, docs []film.Document) (*sparse.Snapshot, error)
	NeedsRefresh(now time.Time, interval time.Duration) bool
}

// DenseWriter stores document vectors.
type DenseWriter interface {
	Upsert(ctx context.Context, docs []film.Document, vectors [][]float32) error
}

// CacheClearer drops cached payloads derived from the previous snapshot.
type CacheClearer interface {
	ClearAll(ctx context.Context) int
}

// Locker excludes rebuilds running in other processes. With returns an error
// without calling fn when the lock is held elsewhere.
type Locker interface {
	With(fn func() error) error
}
