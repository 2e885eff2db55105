// Package dense stores film vectors in a Redis/Valkey FT index and serves KNN queries.
package dense

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/filmrag/internal/db"
	"github.com/kailas-cloud/filmrag/internal/db/redis"
	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
)

const (
	fieldFilmID  = "film_id"
	fieldTitle   = "title"
	fieldContent = "content"
	fieldVector  = "vector"

	upsertChunk = 100
)

// store is the consumer interface for the dense repository (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, idx *db.FilmIndex) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config names the index and its vector parameters.
type Config struct {
	IndexName       string
	KeyPrefix       string // e.g. "rag:doc:"
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements the dense searcher over an FT index of HASH documents.
type Repo struct {
	store store
	cfg   Config
}

// New creates a dense repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

func (r *Repo) indexDefinition() (*db.FilmIndex, error) {
	def := &db.FilmIndex{
		Name:          r.cfg.IndexName,
		Prefix:        r.cfg.KeyPrefix,
		NumericFields: []string{fieldFilmID},
		TextFields:    []string{fieldTitle},
		VectorField:   fieldVector,
		Dim:           r.cfg.Dimensions,
		M:             r.cfg.HNSWM,
		EFConstruct:   r.cfg.HNSWEFConstruct,
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("film index definition: %w", err)
	}
	return def, nil
}

// Upsert writes documents and their vectors with pipelined HSET in chunks.
func (r *Repo) Upsert(ctx context.Context, docs []film.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs and vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}

	items := make([]db.HashSetItem, 0, min(len(docs), upsertChunk))
	for i, d := range docs {
		if r.cfg.Dimensions > 0 && len(vectors[i]) != r.cfg.Dimensions {
			return fmt.Errorf("document %d: dimension mismatch: expected %d, got %d",
				d.ID(), r.cfg.Dimensions, len(vectors[i]))
		}
		items = append(items, db.HashSetItem{
			Key: r.docKey(d.ID()),
			Fields: map[string]string{
				fieldFilmID:  strconv.FormatInt(d.ID(), 10),
				fieldTitle:   d.Title(),
				fieldContent: d.Text(),
				fieldVector:  redis.VectorBytes(vectors[i]),
			},
		})
		if len(items) == upsertChunk {
			if err := r.store.HSetMulti(ctx, items); err != nil {
				return fmt.Errorf("hset %d documents: %w", len(items), err)
			}
			items = items[:0]
		}
	}
	if len(items) > 0 {
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("hset %d documents: %w", len(items), err)
		}
	}
	return nil
}

// Search returns the topK nearest films by cosine similarity.
func (r *Repo) Search(ctx context.Context, vector []float32, topK int) ([]candidate.Candidate, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Field:        fieldVector,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldFilmID, fieldTitle, fieldContent},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	return r.parseResults(sr), nil
}

// Count returns the number of indexed films.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.IndexName, err)
	}
	return n, nil
}

// HealthCheck pings the store.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("dense store ping: %w", err)
	}
	return nil
}

func (r *Repo) parseResults(sr *db.SearchResult) []candidate.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id, ok := r.entryID(e)
		if !ok {
			continue
		}
		out = append(out, candidate.New(id, e.Fields[fieldTitle], e.Fields[fieldContent], e.Score, candidate.Dense))
	}
	return out
}

// entryID prefers the film_id field and falls back to the key suffix.
func (r *Repo) entryID(e db.SearchEntry) (int64, bool) {
	raw, ok := e.Fields[fieldFilmID]
	if !ok {
		raw = strings.TrimPrefix(e.Key, r.cfg.KeyPrefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r *Repo) docKey(id int64) string {
	return r.cfg.KeyPrefix + strconv.FormatInt(id, 10)
}
