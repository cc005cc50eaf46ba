// Package storage persists indexed books and performs vector similarity search.
package storage

import (
	"context"
	"fmt"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
)

// Distance selects the similarity measure used to rank query results.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceEuclidean Distance = "euclidean"
	DistanceDot       Distance = "dot"
)

// ParseDistance maps a configuration string to a Distance. Empty input
// selects the cosine default.
func ParseDistance(s string) (Distance, error) {
	switch Distance(s) {
	case "":
		return DistanceCosine, nil
	case DistanceCosine, DistanceEuclidean, DistanceDot:
		return Distance(s), nil
	default:
		return "", fmt.Errorf("unknown distance measure %q", s)
	}
}

// Store is the vector store contract. Upsert is idempotent on record id and
// durable; Query is read-only and returns an empty slice (never an error)
// when the store is empty. There is no transactional guarantee across
// concurrent upserts and queries: a query may observe a partially indexed
// corpus.
type Store interface {
	// Upsert inserts or overwrites the given books, keyed by record id.
	Upsert(ctx context.Context, books []*IndexedBook) error

	// Query returns up to limit nearest neighbors of vector under the
	// configured distance measure, best match first. Ties keep insertion
	// order.
	Query(ctx context.Context, vector []float32, limit int) ([]*ScoredBook, error)

	// Get retrieves a single indexed book by record id.
	// Returns ErrBookNotFound if absent.
	Get(ctx context.Context, id string) (*IndexedBook, error)

	// List returns every indexed record, ordered by title.
	List(ctx context.Context) ([]corpus.Book, error)

	// Count reports how many records are indexed.
	Count(ctx context.Context) (uint64, error)

	// Clear removes all indexed records.
	Clear(ctx context.Context) error

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
