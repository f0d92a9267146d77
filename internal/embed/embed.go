// # internal/embed/embed.go

// Package embed provides the vector side of semantic ranking: turning text
// into embeddings and searching the vector index for nodes similar to a
// query. Both halves are optional at runtime; callers degrade to graph-only
// ranking when no backend is configured.
package embed

import (
	"context"
	"math/rand"
	"time"

	"aura/internal/shared/observability"

	"log/slog"
)

// Embedder turns text batches into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one semantic search hit: the graph node id and a similarity in
// [0, 1], higher is closer.
type Match struct {
	NodeID string  `json:"node_id"`
	Score  float64 `json:"score"`
}

// Searcher finds graph nodes semantically similar to a query string.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Match, error)
}

// withRetry runs fn with exponential backoff and jitter. The last error is
// returned once attempts are exhausted or the context ends.
func withRetry(ctx context.Context, op string, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := base << (attempt - 1)
			jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
			observability.EmbeddingRetries.Inc()
			slog.Debug("retrying", "operation", op, "attempt", attempt, "backoff", backoff+jitter)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	observability.EmbeddingFailures.Inc()
	return err
}
