package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
	"github.com/kailas-cloud/filmrag/internal/metrics"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// Pipeline stages reported to the StageObserver.
const (
	StageCacheLookup = "cache_lookup"
	StageCacheHit    = "cache_hit"
	StageEnhancing   = "enhancing"
	StageRetrieving  = "retrieving"
	StageFusing      = "fusing"
	StageReranking   = "reranking"
	StageResponding  = "responding"
)

// Defaults.
const (
	DefaultRecallMultiplier = 2
	DefaultSparseTopK       = 20
)

var errDenseUnavailable = errors.New("dense retrieval not configured")

// Config tunes recall and fusion.
type Config struct {
	RRFK             int
	RecallMultiplier int
	SparseTopK       int
	DenseTimeout     time.Duration // embed + ANN search; 0 means unbounded
}

// Deps are the pipeline collaborators. Every field except Logger may be nil;
// a missing capability is handled like a failing one.
type Deps struct {
	Enhancer  Enhancer
	Embedder  Embedder
	Dense     DenseSearcher
	Sparse    SparseSearcher
	Reranker  Reranker
	Cache     ResultCache
	Refresher Refresher
	Observer  StageObserver
	Logger    *zap.Logger
}

// Service orchestrates cache lookup, enhancement, dual-path retrieval, fusion and reranking.
type Service struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

// New creates a search service.
func New(deps Deps, cfg Config) *Service {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.RecallMultiplier <= 0 {
		cfg.RecallMultiplier = DefaultRecallMultiplier
	}
	if cfg.SparseTopK <= 0 {
		cfg.SparseTopK = DefaultSparseTopK
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{deps: deps, cfg: cfg, now: time.Now}
}

// Search answers req. Degraded collaborators shrink the result set but never fail the request.
func (s *Service) Search(ctx context.Context, req *request.Request) (response.Response, error) {
	start := s.now()

	if req.IsEmpty() {
		return response.Empty(req.Query()), nil
	}

	s.enter(StageCacheLookup)
	key := s.cacheKey(req)
	if payload, ok := s.lookup(ctx, key); ok {
		s.enter(StageCacheHit)
		s.enter(StageResponding)
		return s.respond(req, payload, start, true), nil
	}

	s.enter(StageEnhancing)
	enhanced := req.Query()
	if s.deps.Enhancer != nil {
		enhanced = s.deps.Enhancer.Enhance(ctx, req.Query())
	}

	if s.deps.Refresher != nil {
		s.deps.Refresher.RefreshIfStale(ctx)
	}

	s.enter(StageRetrieving)
	ranked := s.retrieve(ctx, req, enhanced)

	if len(ranked) > 0 {
		if req.Rerank() && s.deps.Reranker != nil {
			s.enter(StageReranking)
			ranked = s.deps.Reranker.Rerank(ctx, req.Query(), ranked, req.TopK())
		} else if len(ranked) > req.TopK() {
			ranked = ranked[:req.TopK()]
		}
	}

	s.enter(StageResponding)
	payload := response.NewPayload(req.Query(), enhanced, ranked)
	if len(payload.Results) > 0 && ctx.Err() == nil {
		s.store(ctx, key, payload)
	}
	return s.respond(req, payload, start, false), nil
}

// recallK is how many candidates each path fetches ahead of reranking.
func (s *Service) recallK(req *request.Request) int {
	if req.Rerank() {
		return req.TopK() * s.cfg.RecallMultiplier
	}
	return req.TopK()
}

// retrieve runs both paths and applies the fallback table.
func (s *Service) retrieve(ctx context.Context, req *request.Request, query string) []candidate.Candidate {
	recall := s.recallK(req)

	if !req.Hybrid() {
		dense, err := s.densePath(ctx, query, recall)
		if err == nil {
			return dense
		}
		return s.sparsePath(query, max(recall, s.cfg.SparseTopK))
	}

	var dense, sparse []candidate.Candidate
	var g errgroup.Group
	g.Go(func() error {
		// Failure is absorbed inside densePath.
		dense, _ = s.densePath(ctx, query, recall)
		return nil
	})
	g.Go(func() error {
		sparse = s.sparsePath(query, max(recall, s.cfg.SparseTopK))
		return nil
	})
	_ = g.Wait()

	switch {
	case len(dense) == 0:
		return sparse
	case len(sparse) == 0:
		return dense
	}

	s.enter(StageFusing)
	return FuseRRF([][]candidate.Candidate{dense, sparse}, s.cfg.RRFK, 0)
}

func (s *Service) densePath(ctx context.Context, query string, topK int) ([]candidate.Candidate, error) {
	if s.deps.Embedder == nil || s.deps.Dense == nil {
		return nil, errDenseUnavailable
	}

	if s.cfg.DenseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DenseTimeout)
		defer cancel()
	}

	emb, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		s.denseFailed("embedding", err)
		return nil, err
	}
	res, err := s.deps.Dense.Search(ctx, emb.Embedding, topK)
	if err != nil {
		s.denseFailed("dense", err)
		return nil, err
	}
	return res, nil
}

func (s *Service) denseFailed(dep string, err error) {
	metrics.DependencyFailure(dep)
	s.deps.Logger.Warn("Dense retrieval failed, continuing without it",
		zap.String("dependency", dep),
		zap.Error(err),
	)
}

func (s *Service) sparsePath(query string, topK int) []candidate.Candidate {
	if s.deps.Sparse == nil {
		return nil
	}
	return s.deps.Sparse.Query(query, topK)
}

func (s *Service) cacheKey(req *request.Request) string {
	if s.deps.Cache == nil {
		return ""
	}
	parts := req.CacheKeyParts()
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return s.deps.Cache.Key(cache.Search, args...)
}

func (s *Service) lookup(ctx context.Context, key string) (response.Payload, bool) {
	if s.deps.Cache == nil {
		return response.Payload{}, false
	}
	return cache.GetJSON[response.Payload](ctx, s.deps.Cache, key)
}

func (s *Service) store(ctx context.Context, key string, p response.Payload) {
	if s.deps.Cache == nil {
		return
	}
	if !cache.SetJSON(ctx, s.deps.Cache, key, p, 0) {
		s.deps.Logger.Debug("Search payload not cached", zap.String("key", key))
	}
}

func (s *Service) respond(req *request.Request, p response.Payload, start time.Time, cached bool) response.Response {
	if p.Results == nil {
		p.Results = []response.Item{}
	}
	return response.Response{
		Payload: p,
		Query:   req.Query(),
		TookMs:  s.now().Sub(start).Milliseconds(),
		Cached:  cached,
	}
}

func (s *Service) enter(stage string) {
	if s.deps.Observer != nil {
		s.deps.Observer.Enter(stage)
	}
}

var _ StageObserver = metrics.StageCounter{}
