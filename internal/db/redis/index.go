package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/filmrag/internal/db"
)

// CreateIndex issues FT.CREATE for the film index. A concurrent creator
// surfaces as db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, idx *db.FilmIndex) error {
	if err := idx.Validate(); err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(idx)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists asks FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// createArgs renders
// <name> ON HASH PREFIX 1 <prefix> SCHEMA <numeric...> <text...> <vector> VECTOR HNSW ...
func createArgs(idx *db.FilmIndex) []string {
	args := []string{idx.Name, "ON", "HASH", "PREFIX", "1", idx.Prefix, "SCHEMA"}
	for _, f := range idx.NumericFields {
		args = append(args, f, "NUMERIC")
	}
	for _, f := range idx.TextFields {
		args = append(args, f, "TEXT")
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(idx.Dim),
		"DISTANCE_METRIC", "COSINE",
	}
	if idx.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(idx.M))
	}
	if idx.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(idx.EFConstruct))
	}

	args = append(args, idx.VectorField, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}
