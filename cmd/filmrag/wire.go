package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/config"
	dbRedis "github.com/kailas-cloud/filmrag/internal/db/redis"
	"github.com/kailas-cloud/filmrag/internal/dictionary"
	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
	"github.com/kailas-cloud/filmrag/internal/index/sparse"
	"github.com/kailas-cloud/filmrag/internal/index/vector"
	"github.com/kailas-cloud/filmrag/internal/lockfile"
	"github.com/kailas-cloud/filmrag/internal/metrics"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
	"github.com/kailas-cloud/filmrag/internal/repository/corpus"
	denserepo "github.com/kailas-cloud/filmrag/internal/repository/dense"
	"github.com/kailas-cloud/filmrag/internal/repository/embcache"
	"github.com/kailas-cloud/filmrag/internal/tokenize"
	openaiTransport "github.com/kailas-cloud/filmrag/internal/transport/openai"
	"github.com/kailas-cloud/filmrag/internal/transport/rerankapi"
	embeddinguc "github.com/kailas-cloud/filmrag/internal/usecase/embedding"
	"github.com/kailas-cloud/filmrag/internal/usecase/enhance"
	filmuc "github.com/kailas-cloud/filmrag/internal/usecase/film"
	healthuc "github.com/kailas-cloud/filmrag/internal/usecase/health"
	"github.com/kailas-cloud/filmrag/internal/usecase/indexsync"
	"github.com/kailas-cloud/filmrag/internal/usecase/rerank"
	searchuc "github.com/kailas-cloud/filmrag/internal/usecase/search"
	"github.com/kailas-cloud/filmrag/internal/version"
)

// denseIndex is what the composition root needs from either dense driver.
type denseIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]candidate.Candidate, error)
	Upsert(ctx context.Context, docs []film.Document, vectors [][]float32) error
	HealthCheck(ctx context.Context) error
}

// app holds the wired components. Optional ones are nil when disabled.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	corpus   *corpus.Repo
	redis    *dbRedis.Store
	cache    *cache.Cache
	index    *sparse.Index
	dense    denseIndex
	enhancer *enhance.Service
	reranker *rerank.Service

	sync   *indexsync.Service
	films  *filmuc.Service
	search searchuc.Searcher
	health *healthuc.Service
}

// buildApp is the composition root. Collaborators that cannot be reached at
// startup are left out and the pipeline runs degraded.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	a := &app{cfg: cfg, logger: logger}

	repo, err := corpus.Open(cfg.Corpus.DSN)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	a.corpus = repo
	if err := repo.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("prepare corpus schema: %w", err)
	}

	if cfg.NeedsRedis() {
		a.redis = connectRedis(ctx, cfg.Redis, logger)
	}

	if cfg.Cache.Enabled {
		a.cache = buildCache(cfg.Cache, a.redis, logger)
	}

	tok, err := tokenize.NewCJK()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}
	a.index = sparse.New(tok, logger.Named("sparse"))

	a.dense = buildDense(ctx, cfg, a.redis, logger)

	// Pass nil interfaces (not typed nil pointers) for disabled components.
	var queryEmbedder, docEmbedder domain.Embedder
	if a.dense != nil {
		queryEmbedder = buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, a.cache, logger)
		docEmbedder = buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, a.cache, logger)
	}

	if cfg.Enhance.Enabled {
		if a.enhancer, err = buildEnhancer(cfg.Enhance, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Rerank.Enabled {
		a.reranker = buildReranker(ctx, cfg.Rerank, logger)
	}

	var (
		denseWriter  indexsync.DenseWriter
		cacheClearer indexsync.CacheClearer
		filmCache    filmuc.Cache
	)
	if a.dense != nil {
		denseWriter = a.dense
	}
	if a.cache != nil {
		cacheClearer = a.cache
		filmCache = a.cache
	}

	a.sync = indexsync.New(a.corpus, a.index, docEmbedder, denseWriter, cacheClearer, indexsync.Config{
		BatchSize:       cfg.Embedding.BatchSize,
		RefreshInterval: time.Duration(cfg.Sparse.RefreshIntervalMin) * time.Minute,
		Timeout:         time.Duration(cfg.Sync.TimeoutSec) * time.Second,
	}, logger.Named("sync")).WithLocker(lockfile.New(cfg.Sync.LockFile))

	a.films = filmuc.New(a.corpus, filmCache, logger)

	deps := searchuc.Deps{
		Sparse:    a.index,
		Refresher: a.sync,
		Observer:  metrics.StageCounter{},
		Logger:    logger.Named("search"),
	}
	if a.enhancer != nil {
		deps.Enhancer = a.enhancer
	}
	if a.dense != nil {
		deps.Embedder = queryEmbedder
		deps.Dense = a.dense
	}
	if a.reranker != nil {
		deps.Reranker = a.reranker
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	svc := searchuc.New(deps, searchuc.Config{
		RRFK:             cfg.Search.RRFK,
		RecallMultiplier: cfg.Search.RecallMultiplier,
		SparseTopK:       cfg.Sparse.TopK,
		DenseTimeout:     config.Millis(cfg.Dense.TimeoutMs),
	})
	a.search = searchuc.NewBounded(searchuc.NewInstrumented(svc, logger), config.Millis(cfg.Search.TimeoutMs))

	a.health = healthuc.New(a.index, version.Version).Register(healthuc.ComponentCorpus, a.corpus)
	if a.cache != nil {
		a.health.Register(healthuc.ComponentCache, a.cache)
	}
	if a.dense != nil {
		a.health.Register(healthuc.ComponentDense, a.dense)
		a.health.Register(healthuc.ComponentEmbedding, newEmbeddingHealthChecker(queryEmbedder))
	}
	if a.reranker != nil {
		a.health.Register(healthuc.ComponentReranker, a.reranker)
	}

	return a, nil
}

// Close waits for background rebuilds and releases connections.
func (a *app) Close() {
	if a.sync != nil {
		a.sync.Wait()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.corpus != nil {
		if err := a.corpus.Close(); err != nil {
			a.logger.Warn("Failed to close corpus", zap.Error(err))
		}
	}
}

// warmSparse builds the keyword index from the corpus without touching the
// dense store. One-shot commands use it instead of a full sync.
func (a *app) warmSparse(ctx context.Context) error {
	films, err := a.corpus.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}
	if _, err := a.index.Build(ctx, film.Documents(films)); err != nil {
		return fmt.Errorf("build sparse index: %w", err)
	}
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *dbRedis.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, running without it", zap.Strings("addrs", cfg.Addrs), zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Redis not ready, cache reconnects in background", zap.Error(err))
	} else {
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Addrs))
	}
	return store
}

func buildCache(cfg config.CacheConfig, store *dbRedis.Store, logger *zap.Logger) *cache.Cache {
	searchTTL, embedTTL, filmTTL := cfg.TTLs()
	ccfg := cache.Config{
		Prefix: cfg.KeyPrefix,
		TTLs: map[cache.Namespace]time.Duration{
			cache.Search: searchTTL,
			cache.Embed:  embedTTL,
			cache.Film:   filmTTL,
		},
		L1Size:            cfg.L1Size,
		OpTimeout:         config.Millis(cfg.OpTimeoutMs),
		ReconnectInterval: time.Duration(cfg.ReconnectIntervalSec) * time.Second,
	}
	var c *cache.Cache
	if store == nil {
		c = cache.New(nil, ccfg, metrics.CacheResultsTotal, logger.Named("cache"))
	} else {
		c = cache.New(store, ccfg, metrics.CacheResultsTotal, logger.Named("cache"))
	}
	return c.WithConnectedGauge(metrics.CacheConnected)
}

func buildDense(ctx context.Context, cfg config.Config, store *dbRedis.Store, logger *zap.Logger) denseIndex {
	switch cfg.Dense.Driver {
	case "redis":
		if store == nil {
			logger.Warn("Dense retrieval disabled: redis unavailable")
			return nil
		}
		repo := denserepo.New(store, denserepo.Config{
			IndexName:       cfg.Dense.IndexName,
			KeyPrefix:       cfg.Cache.KeyPrefix + "doc:",
			Dimensions:      cfg.Embedding.Dimensions,
			HNSWM:           cfg.Dense.HNSWM,
			HNSWEFConstruct: cfg.Dense.HNSWEFConstruct,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			logger.Warn("Dense index not ensured, searches may fail until sync", zap.Error(err))
		}
		return repo
	case "memory":
		return vector.New(cfg.Embedding.Dimensions, cfg.Dense.HNSWM, cfg.Dense.HNSWEFSearch)
	default:
		return nil
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	c *cache.Cache,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Timeout:    config.Millis(cfg.TimeoutMs),
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if c != nil {
		embedder = embcache.New(base, c, cfg.Model, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.BatchSize, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func buildEnhancer(cfg config.EnhanceConfig, logger *zap.Logger) (*enhance.Service, error) {
	dict := dictionary.Default()
	if cfg.DictionaryFile != "" {
		d, err := dictionary.Load(cfg.DictionaryFile)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		dict = d
	}

	var augmenter enhance.Augmenter
	if cfg.HyDE.Enabled {
		augmenter = openaiTransport.NewAugmenter(&openaiTransport.AugmenterConfig{
			APIKey:      cfg.HyDE.APIKey,
			BaseURL:     cfg.HyDE.BaseURL,
			Model:       cfg.HyDE.Model,
			MaxTokens:   cfg.HyDE.MaxTokens,
			Temperature: cfg.HyDE.Temperature,
			TopP:        cfg.HyDE.TopP,
			Timeout:     config.Millis(cfg.HyDE.TimeoutMs),
			Logger:      logger,
		})
	}
	return enhance.New(dict, augmenter, config.Millis(cfg.HyDE.TimeoutMs), logger.Named("enhance")), nil
}

func buildReranker(ctx context.Context, cfg config.RerankConfig, logger *zap.Logger) *rerank.Service {
	client := rerankapi.New(rerankapi.Config{
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Timeout:   config.Millis(cfg.TimeoutMs),
		RawScores: cfg.RawScores,
		Logger:    logger,
	})
	svc := rerank.New(client, rerank.Config{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Timeout:     config.Millis(cfg.TimeoutMs),
	}, logger.Named("rerank"))
	if err := svc.Load(ctx); err != nil {
		logger.Warn("Relevance scorer not loaded, neutral scores until it is", zap.Error(err))
	}
	return svc
}

// embeddingHealthChecker adapts domain.Embedder to health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
