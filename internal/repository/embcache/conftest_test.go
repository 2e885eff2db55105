package embcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	calls       int
	batchCalls  int
	batchTexts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = append(m.batchTexts, texts...)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// mockCache implements the consumer interface for tests.
type mockCache struct {
	data     map[string][]byte
	setCount int
	lastTTL  time.Duration
}

func (m *mockCache) Key(ns cache.Namespace, args ...any) string {
	return fmt.Sprint(string(ns), args)
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) GetBatch(_ context.Context, keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	m.data[key] = value
	m.setCount++
	m.lastTTL = ttl
	return true
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockCache) {
	t.Helper()
	mc := &mockCache{data: map[string][]byte{}}
	ce := New(inner, mc, "bge-small-zh", zap.NewNop())
	return ce, mc
}
