package rerank

import "context"

// Scorer assigns a relevance score to each (query, text) pair, positionally.
type Scorer interface {
	ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error)
}

// healthChecker is implemented by scorers that can be health-checked before use.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}
