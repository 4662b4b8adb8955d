package health

import "context"

// IndexChecker checks vector index service availability.
type IndexChecker interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
