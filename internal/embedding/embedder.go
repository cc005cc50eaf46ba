// Package embedding converts text to fixed-length vectors via OpenAI.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// Model is the OpenAI model used for generating embeddings.
	Model = "text-embedding-3-small"

	// Dimension is the vector dimension for text-embedding-3-small.
	// This matches storage.VectorDimension.
	Dimension = 1536
)

// ErrProvider marks embedding backend failures (unreachable or rate-limited
// past the retry budget). Retryable for bulk indexing, fatal for a single
// query: no retrieval is possible without the query vector.
var ErrProvider = errors.New("embedding provider unavailable")

// Embedder generates embeddings using OpenAI's text-embedding-3-small model.
// Rate limit errors are retried with exponential backoff; everything else
// fails immediately. For a fixed model version the output is deterministic.
type Embedder struct {
	client *Client
}

// NewEmbedder creates an Embedder backed by the given client.
func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed generates the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: Model,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err) // Don't retry
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("empty embedding response"))
		}

		embedding = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return embedding, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// The OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
