// Package recommend orchestrates retrieval, generation and reconciliation
// into the recommendation pipeline.
package recommend

import (
	"context"
	"fmt"

	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// DefaultLimit is the default and documented hard cap on retrieved
// grounding documents per query.
const DefaultLimit = 10

// Embedder turns a query string into its embedding vector.
// Satisfied by embedding.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever embeds a query and fetches its nearest corpus records. The
// store's result order is preserved: it becomes the grounding-context order
// presented to generation.
type Retriever struct {
	embedder Embedder
	store    storage.Store
}

// NewRetriever creates a retriever over the given embedder and store.
func NewRetriever(embedder Embedder, store storage.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to limit records nearest to the query. A limit that is
// unset or above DefaultLimit is clamped to DefaultLimit. An embedding
// failure is fatal for the query: nothing can be retrieved without the
// query vector.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]*storage.ScoredBook, error) {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := r.store.Query(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return docs, nil
}
