// Package vector provides optional embedding-based segment search backed
// by Ollama embeddings and a pgvector table. When disabled, the relevance
// filter falls back to keyword matching alone.
package vector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	defaultEmbedModel   = "nomic-embed-text"
	embedTimeout        = 30 * time.Second
	embedMaxRetries     = 3
	indexingConcurrency = 3
)

// OllamaEmbedder generates embeddings via a local Ollama instance
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	if model == "" {
		model = defaultEmbedModel
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &OllamaEmbedder{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

// Embed returns the embedding vector for text, retrying transient failures
// with linear backoff.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= embedMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		embedding, err := e.embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed after %d retries: %w", embedMaxRetries, lastErr)
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model %s returned an empty embedding", e.model)
	}
	return resp.Embedding, nil
}
