// Package film serves film details with read-through caching.
package film

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	domfilm "github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// MaxBatch is the largest id list accepted by GetMany.
const MaxBatch = 100

// Service looks up films. The cache is optional.
type Service struct {
	reader Reader
	cache  Cache
	logger *zap.Logger
}

// New creates a film service. c may be nil.
func New(reader Reader, c Cache, logger *zap.Logger) *Service {
	return &Service{reader: reader, cache: c, logger: logger}
}

// Get returns one film or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (domfilm.Film, error) {
	films, err := s.GetMany(ctx, []int64{id})
	if err != nil {
		return domfilm.Film{}, err
	}
	if len(films) == 0 {
		return domfilm.Film{}, fmt.Errorf("film %d: %w", id, domain.ErrNotFound)
	}
	return films[0], nil
}

// GetMany returns the known films among ids in request order. Duplicates are collapsed.
func (s *Service) GetMany(ctx context.Context, ids []int64) ([]domfilm.Film, error) {
	ids = dedup(ids)
	if len(ids) == 0 {
		return []domfilm.Film{}, nil
	}
	if len(ids) > MaxBatch {
		return nil, fmt.Errorf("%w: at most %d ids per request, got %d", domain.ErrInvalidRequest, MaxBatch, len(ids))
	}

	found := make(map[int64]domfilm.Film, len(ids))
	missing := s.fromCache(ctx, ids, found)

	if len(missing) > 0 {
		films, err := s.reader.FetchByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("fetch films: %w", err)
		}
		for _, f := range films {
			found[f.ID] = f
			s.toCache(ctx, f)
		}
	}

	out := make([]domfilm.Film, 0, len(found))
	for _, id := range ids {
		if f, ok := found[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Service) key(id int64) string {
	return s.cache.Key(cache.Film, id)
}

// fromCache fills found with cached films and returns the ids still missing.
func (s *Service) fromCache(ctx context.Context, ids []int64, found map[int64]domfilm.Film) []int64 {
	if s.cache == nil {
		return ids
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	var missing []int64
	for i, data := range s.cache.GetBatch(ctx, keys) {
		if data == nil {
			missing = append(missing, ids[i])
			continue
		}
		var f domfilm.Film
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("Corrupt film cache entry", zap.Int64("film_id", ids[i]), zap.Error(err))
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = f
	}
	return missing
}

func (s *Service) toCache(ctx context.Context, f domfilm.Film) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.cache.Set(ctx, s.key(f.ID), data, 0)
}

func dedup(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
