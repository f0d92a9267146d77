// # internal/embed/openai.go
package embed

import (
	"context"
	"os"
	"time"

	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/shared/util"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Requests
// are rate limited per minute and bounded in flight; transient failures
// retry with backoff before surfacing.
type OpenAIEmbedder struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	limiter  *util.Limiter
	inFlight chan struct{}
	attempts int
	backoff  time.Duration
}

func NewOpenAIEmbedder(cfg config.Embedding) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, errors.Newf(errors.CodeValidationError, "embedding API key env %s is empty", cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxInFlight := cfg.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	return &OpenAIEmbedder{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.EmbeddingModel(cfg.Model),
		limiter:  util.NewPerMinuteLimiter(cfg.RequestsPerMin),
		inFlight: make(chan struct{}, maxInFlight),
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	select {
	case e.inFlight <- struct{}{}:
		defer func() { <-e.inFlight }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var resp openai.EmbeddingResponse
	err := withRetry(ctx, "embed", e.attempts, e.backoff, func() error {
		if err := e.limiter.Wait(ctx, 1); err != nil {
			return err
		}
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: e.model,
		})
		return callErr
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "embedding request failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Newf(errors.CodeInternal,
			"embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
