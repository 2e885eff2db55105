// Package sparse implements an in-memory BM25 keyword index over film documents.
// Snapshots are rebuilt off-line and swapped in with a single atomic store, so
// readers always see either the previous or the new snapshot in full.
package sparse

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
	"github.com/kailas-cloud/filmrag/internal/tokenize"
)

// State is the lifecycle state of the index.
type State int32

// Index states.
const (
	Empty State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrTokenizerUnavailable is returned by Build when no tokenizer is configured.
var ErrTokenizerUnavailable = errors.New("tokenizer unavailable")

// Option configures an Index.
type Option func(*Index)

// WithParams overrides the BM25 parameters.
func WithParams(p Params) Option {
	return func(ix *Index) { ix.params = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// Index serves BM25 queries from the current snapshot.
type Index struct {
	tokenizer tokenize.Tokenizer
	params    Params
	now       func() time.Time
	logger    *zap.Logger

	current  atomic.Pointer[Snapshot]
	building atomic.Bool
	group    singleflight.Group
}

// New creates an empty index.
func New(tok tokenize.Tokenizer, logger *zap.Logger, opts ...Option) *Index {
	ix := &Index{
		tokenizer: tok,
		params:    DefaultParams,
		now:       time.Now,
		logger:    logger,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// State reports Building while a build runs, even if an older snapshot is served.
func (ix *Index) State() State {
	if ix.building.Load() {
		return Building
	}
	if ix.current.Load() != nil {
		return Ready
	}
	return Empty
}

// Snapshot returns the snapshot currently served, or nil.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Len returns the number of documents in the served snapshot.
func (ix *Index) Len() int {
	if s := ix.current.Load(); s != nil {
		return s.Len()
	}
	return 0
}

// LastBuildAt returns the time of the last successful build, or the zero time.
func (ix *Index) LastBuildAt() time.Time {
	if s := ix.current.Load(); s != nil {
		return s.BuiltAt()
	}
	return time.Time{}
}

// NeedsRefresh reports whether the index was never built or is older than interval.
func (ix *Index) NeedsRefresh(now time.Time, interval time.Duration) bool {
	s := ix.current.Load()
	if s == nil {
		return true
	}
	return now.Sub(s.BuiltAt()) > interval
}

// Build tokenizes docs into a new snapshot and swaps it in. Concurrent calls
// share one build: a caller arriving mid-build receives the in-flight result.
// On failure the previously served snapshot stays in place.
func (ix *Index) Build(ctx context.Context, docs []film.Document) (*Snapshot, error) {
	v, err, shared := ix.group.Do("build", func() (any, error) {
		ix.building.Store(true)
		defer ix.building.Store(false)
		return ix.build(ctx, docs)
	})
	if shared {
		ix.logger.Debug("sparse build coalesced")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (ix *Index) build(ctx context.Context, docs []film.Document) (*Snapshot, error) {
	if ix.tokenizer == nil {
		return nil, ErrTokenizerUnavailable
	}
	if len(docs) == 0 {
		return nil, domain.ErrCorpusEmpty
	}

	start := ix.now()
	seen := make(map[int64]struct{}, len(docs))
	tokens := make([][]string, len(docs))
	for i, d := range docs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("build cancelled: %w", err)
			}
		}
		if _, dup := seen[d.ID()]; dup {
			return nil, fmt.Errorf("duplicate document id %d", d.ID())
		}
		seen[d.ID()] = struct{}{}
		tokens[i] = ix.tokenizer.Tokenize(d.SearchText())
	}

	owned := make([]film.Document, len(docs))
	copy(owned, docs)

	snap := newSnapshot(uuid.NewString(), ix.now(), owned, tokens)
	ix.current.Store(snap)

	ix.logger.Info("sparse index built",
		zap.String("version", snap.Version()),
		zap.Int("documents", snap.Len()),
		zap.Int("terms", snap.Terms()),
		zap.Duration("took", ix.now().Sub(start)),
	)
	return snap, nil
}

// Query scores the served snapshot against text. An index without a snapshot
// yields no candidates.
func (ix *Index) Query(text string, topK int) []candidate.Candidate {
	s := ix.current.Load()
	if s == nil || ix.tokenizer == nil || topK <= 0 {
		return nil
	}
	return s.score(ix.tokenizer.Tokenize(text), ix.params, topK)
}
