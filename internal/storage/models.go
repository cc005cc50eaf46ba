package storage

import "github.com/bull/bookshelf-mcp-server/internal/corpus"

// IndexedBook is a corpus record together with the canonical text it was
// embedded from and the embedding vector. Owned by the store; re-indexing
// replaces it wholesale rather than mutating in place.
type IndexedBook struct {
	Book          corpus.Book
	CanonicalText string
	Embedding     []float32 // 1536-dim vector (text-embedding-3-small)
}

// ScoredBook is a similarity-query result: the indexed record annotated with
// the store's native similarity score. Lives only for the duration of one
// query.
type ScoredBook struct {
	Book          corpus.Book
	CanonicalText string
	Score         float32
}

// CollectionName is the single Qdrant collection holding all books.
const CollectionName = "books"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
