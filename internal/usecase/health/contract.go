package health

import (
	"context"
	"time"
)

// Checker verifies that a collaborator is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// IndexState exposes the sparse snapshot state.
type IndexState interface {
	Len() int
	LastBuildAt() time.Time
}
