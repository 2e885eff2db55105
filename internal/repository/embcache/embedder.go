package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// resultCache is the consumer interface for the embedding cache (ISP).
type resultCache interface {
	Key(ns cache.Namespace, args ...any) string
	Get(ctx context.Context, key string) ([]byte, bool)
	GetBatch(ctx context.Context, keys []string) [][]byte
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
}

// CachedEmbedder caches embeddings in the "embed" namespace of the result cache.
type CachedEmbedder struct {
	inner  domain.Embedder
	cache  resultCache
	model  string
	logger *zap.Logger
}

// New creates a caching decorator. model is part of the key so that switching
// models never serves stale vectors.
func New(inner domain.Embedder, c resultCache, model string, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  c,
		model:  model,
		logger: logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if data, ok := c.cache.Get(ctx, key); ok {
		if vec, err := bytesToVector(data); err == nil && len(vec) > 0 {
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key))
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.cache.Set(ctx, key, vectorToCacheBytes(result.Embedding), 0)
	return result, nil
}

// BatchEmbed serves cached vectors and sends only the misses to the inner embedder.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	var missIdx []int
	var missTexts []string
	for i, data := range c.cache.GetBatch(ctx, keys) {
		if data != nil {
			if vec, err := bytesToVector(data); err == nil && len(vec) > 0 {
				out.Embeddings[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	res, err := domain.EmbedAll(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed %d texts: %w", len(missTexts), err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: got %d vectors for %d texts",
			len(res.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		out.Embeddings[i] = res.Embeddings[j]
		c.cache.Set(ctx, keys[i], vectorToCacheBytes(res.Embeddings[j]), 0)
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens

	c.logger.Debug("Batch embedding cache",
		zap.Int("hits", len(texts)-len(missTexts)),
		zap.Int("misses", len(missTexts)),
	)
	return out, nil
}

// HealthCheck forwards to the wrapped embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// cacheKey hashes the raw text first so that the cache's key normalization
// cannot merge texts differing only in case or surrounding space.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.cache.Key(cache.Embed, c.model, hex.EncodeToString(h[:]))
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
