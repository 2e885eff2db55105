// Package indexsync rebuilds the sparse snapshot and the dense store from the corpus.
package indexsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/metrics"
)

// DefaultBatchSize is the number of documents embedded and upserted per round trip.
const DefaultBatchSize = 32

// Config tunes the sync job.
type Config struct {
	BatchSize       int
	RefreshInterval time.Duration // staleness threshold; 0 disables RefreshIfStale
	Timeout         time.Duration // bound for background rebuilds; 0 means unbounded
}

// Result summarizes a rebuild.
type Result struct {
	Documents int           `json:"count"`
	Dense     int           `json:"dense_indexed"`
	Version   string        `json:"version"`
	Took      time.Duration `json:"-"`
}

// Service runs at most one rebuild at a time.
type Service struct {
	corpus   CorpusSource
	sparse   SparseIndex
	embedder domain.Embedder
	dense    DenseWriter
	cache    CacheClearer
	locker   Locker
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	inFlight atomic.Bool
	bg       sync.WaitGroup
}

// New creates a sync service. embedder, dense and cache may be nil.
func New(
	corpus CorpusSource, sparse SparseIndex,
	embedder domain.Embedder, dense DenseWriter, cache CacheClearer,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Service{
		corpus: corpus, sparse: sparse,
		embedder: embedder, dense: dense, cache: cache,
		cfg: cfg, logger: logger, now: time.Now,
	}
}

// WithLocker makes every rebuild, background refreshes included, hold l.
func (s *Service) WithLocker(l Locker) *Service {
	s.locker = l
	return s
}

// InFlight reports whether a rebuild is running.
func (s *Service) InFlight() bool {
	return s.inFlight.Load()
}

// Rebuild performs a full sync: sparse snapshot, dense vectors, cache invalidation.
// A concurrent call fails fast with domain.ErrRebuildInProgress. When the sparse
// build fails the served snapshot is left untouched.
func (s *Service) Rebuild(ctx context.Context) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.IndexRebuildTotal.WithLabelValues("skipped").Inc()
		return Result{}, domain.ErrRebuildInProgress
	}
	defer s.inFlight.Store(false)

	res, err := s.lockedRebuild(ctx)
	if errors.Is(err, domain.ErrRebuildInProgress) {
		metrics.IndexRebuildTotal.WithLabelValues("skipped").Inc()
		s.logger.Info("Index rebuild skipped, another process holds the lock", zap.Error(err))
		return res, err
	}
	if err != nil {
		metrics.IndexRebuildTotal.WithLabelValues("failed").Inc()
		s.logger.Error("Index rebuild failed", zap.Error(err))
		return res, err
	}

	metrics.IndexRebuildTotal.WithLabelValues("success").Inc()
	s.logger.Info("Index rebuilt",
		zap.Int("documents", res.Documents),
		zap.Int("dense_indexed", res.Dense),
		zap.String("version", res.Version),
		zap.Duration("took", res.Took),
	)
	return res, nil
}

// lockedRebuild runs rebuild under the cross-process locker when one is set.
// Failing to take the lock is reported as domain.ErrRebuildInProgress.
func (s *Service) lockedRebuild(ctx context.Context) (Result, error) {
	if s.locker == nil {
		return s.rebuild(ctx)
	}

	var (
		res Result
		ran bool
	)
	err := s.locker.With(func() error {
		ran = true
		var err error
		res, err = s.rebuild(ctx)
		return err
	})
	if err != nil && !ran {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrRebuildInProgress, err)
	}
	return res, err
}

func (s *Service) rebuild(ctx context.Context) (Result, error) {
	start := s.now()

	films, err := s.corpus.FetchAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch corpus: %w", err)
	}
	if len(films) == 0 {
		return Result{}, domain.ErrCorpusEmpty
	}
	docs := film.Documents(films)

	snap, err := s.sparse.Build(ctx, docs)
	if err != nil {
		return Result{}, fmt.Errorf("build sparse index: %w", err)
	}
	metrics.SparseDocuments.Set(float64(snap.Len()))
	metrics.IndexLastBuildTimestamp.Set(float64(snap.BuiltAt().Unix()))

	res := Result{Documents: snap.Len(), Version: snap.Version()}

	res.Dense, err = s.syncDense(ctx, docs)

	// Payloads cached before or during the dense upsert were derived from a
	// mixed state. Clear them once both stores have settled, even on failure.
	if s.cache != nil {
		removed := s.cache.ClearAll(context.WithoutCancel(ctx))
		s.logger.Debug("Caches cleared after rebuild", zap.Int("removed", removed))
	}

	res.Took = s.now().Sub(start)
	if err != nil {
		return res, fmt.Errorf("sync dense store: %w", err)
	}
	return res, nil
}

// syncDense embeds and upserts docs in batches, returning how many were stored.
func (s *Service) syncDense(ctx context.Context, docs []film.Document) (int, error) {
	if s.embedder == nil || s.dense == nil {
		return 0, nil
	}

	stored := 0
	for start := 0; start < len(docs); start += s.cfg.BatchSize {
		batch := docs[start:min(start+s.cfg.BatchSize, len(docs))]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text()
		}

		res, err := domain.EmbedAll(ctx, s.embedder, texts)
		if err != nil {
			return stored, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(res.Embeddings) != len(batch) {
			return stored, fmt.Errorf("embed batch at %d: got %d vectors for %d documents",
				start, len(res.Embeddings), len(batch))
		}
		if err := s.dense.Upsert(ctx, batch, res.Embeddings); err != nil {
			return stored, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		stored += len(batch)
	}
	return stored, nil
}

// RefreshIfStale starts a background rebuild when the sparse snapshot is
// missing or older than the refresh interval and no rebuild is running.
// It never blocks the caller.
func (s *Service) RefreshIfStale(ctx context.Context) {
	if s.cfg.RefreshInterval <= 0 || s.inFlight.Load() {
		return
	}
	if !s.sparse.NeedsRefresh(s.now(), s.cfg.RefreshInterval) {
		return
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		bctx := context.WithoutCancel(ctx)
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(bctx, s.cfg.Timeout)
			defer cancel()
		}

		s.logger.Info("Sparse index stale, rebuilding in background")
		// Rebuild logs its own outcome.
		_, _ = s.Rebuild(bctx)
	}()
}

// Wait blocks until background rebuilds started by RefreshIfStale finish.
func (s *Service) Wait() {
	s.bg.Wait()
}
