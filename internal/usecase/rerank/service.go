// Package rerank re-scores fused candidates with a cross-encoder.
package rerank

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
	"github.com/kailas-cloud/filmrag/internal/metrics"
)

// State of the scorer.
type State int32

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Defaults.
const (
	DefaultBatchSize   = 16
	DefaultConcurrency = 2
)

// Config tunes batching.
type Config struct {
	BatchSize   int
	Concurrency int
	Timeout     time.Duration // per batch; 0 means unbounded
}

// Service is safe for concurrent use.
type Service struct {
	scorer Scorer
	cfg    Config
	state  atomic.Int32
	logger *zap.Logger
}

// New creates a reranker. A nil scorer leaves the service permanently unloaded.
func New(scorer Scorer, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Service{scorer: scorer, cfg: cfg, logger: logger}
}

// Load checks the scorer and marks the service ready.
func (s *Service) Load(ctx context.Context) error {
	if s.scorer == nil {
		return fmt.Errorf("no scorer configured: %w", domain.ErrScorerUnavailable)
	}
	if hc, ok := s.scorer.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("check scorer: %w", err)
		}
	}
	s.state.Store(int32(Loaded))
	s.logger.Info("Relevance scorer loaded")
	return nil
}

// State returns the current scorer state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Ready reports whether scoring will be attempted.
func (s *Service) Ready() bool {
	return s.scorer != nil && s.State() == Loaded
}

// HealthCheck pings the scorer without changing state.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.scorer == nil {
		return domain.ErrScorerUnavailable
	}
	if hc, ok := s.scorer.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Rerank scores candidates against query and returns at most topK of them
// (all when topK <= 0). When scoring is impossible every candidate receives
// the neutral score and the input order is kept.
func (s *Service) Rerank(ctx context.Context, query string, cands []candidate.Candidate, topK int) []candidate.Candidate {
	if len(cands) == 0 {
		return nil
	}
	start := time.Now()
	if !s.Ready() {
		metrics.ObserveRerank("skipped", len(cands), time.Since(start))
		return neutral(cands, topK)
	}

	scores, err := s.score(ctx, query, cands)
	if err != nil {
		metrics.ObserveRerank("failed", len(cands), time.Since(start))
		metrics.DependencyFailure("scorer")
		s.logger.Warn("Rerank failed, keeping fused order",
			zap.Int("candidates", len(cands)),
			zap.Error(err),
		)
		return neutral(cands, topK)
	}
	metrics.ObserveRerank("scored", len(cands), time.Since(start))

	out := make([]candidate.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c.WithRerankScore(scores[i]).WithSource(candidate.Reranked)
	}
	slices.SortStableFunc(out, func(a, b candidate.Candidate) int {
		sa, _ := a.RerankScore()
		sb, _ := b.RerankScore()
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})
	return truncate(out, topK)
}

func (s *Service) score(ctx context.Context, query string, cands []candidate.Candidate) ([]float64, error) {
	scores := make([]float64, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for start := 0; start < len(cands); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(cands))
		texts := make([]string, 0, end-start)
		for _, c := range cands[start:end] {
			texts = append(texts, c.Text())
		}

		g.Go(func() error {
			bctx := gctx
			if s.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				bctx, cancel = context.WithTimeout(gctx, s.cfg.Timeout)
				defer cancel()
			}

			got, err := s.scorer.ScoreBatch(bctx, query, texts)
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			if len(got) != len(texts) {
				return fmt.Errorf("batch [%d:%d]: got %d scores for %d texts", start, end, len(got), len(texts))
			}
			for i, v := range got {
				scores[start+i] = normalize(v)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func normalize(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func neutral(cands []candidate.Candidate, topK int) []candidate.Candidate {
	out := make([]candidate.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c.WithRerankScore(candidate.NeutralRerankScore)
	}
	return truncate(out, topK)
}

func truncate(cs []candidate.Candidate, topK int) []candidate.Candidate {
	if topK > 0 && len(cs) > topK {
		return cs[:topK]
	}
	return cs
}
