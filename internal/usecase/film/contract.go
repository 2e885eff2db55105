package film

import (
	"context"
	"time"

	domfilm "github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// Reader loads films from the catalogue.
type Reader interface {
	FetchByIDs(ctx context.Context, ids []int64) ([]domfilm.Film, error)
}

// Cache stores film details.
type Cache interface {
	Key(ns cache.Namespace, args ...any) string
	Get(ctx context.Context, key string) ([]byte, bool)
	GetBatch(ctx context.Context, keys []string) [][]byte
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}
