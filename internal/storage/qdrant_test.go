//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
)

// setupTestStore creates a Qdrant-backed store and ensures the collection
// exists. Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *QdrantStore {
	store, err := NewQdrantStore("localhost", 6334, DistanceCosine)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

func testEmbedding(fill float32) []float32 {
	embedding := make([]float32, VectorDimension)
	for i := range embedding {
		embedding[i] = fill
	}
	return embedding
}

func TestQdrantBookRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	book := &IndexedBook{
		Book: corpus.Book{
			ID:              "roundtrip-1",
			Title:           "Dune",
			Authors:         []string{"Frank Herbert"},
			Description:     "Desert planet classic.",
			LongDescription: "A sweeping saga of politics and ecology on Arrakis.",
			Categories:      []string{"Science Fiction"},
			ISBN:            "9780441013593",
			PublishedDate:   "1965-08-01",
			PageCount:       412,
			ThumbnailURL:    "https://example.com/dune.jpg",
		},
		Embedding: testEmbedding(0.1),
	}
	book.CanonicalText = book.Book.CanonicalText()

	err := store.Upsert(ctx, []*IndexedBook{book})
	require.NoError(t, err, "Failed to upsert book")

	retrieved, err := store.Get(ctx, "roundtrip-1")
	require.NoError(t, err, "Failed to get book")

	assert.Equal(t, book.Book.ID, retrieved.Book.ID)
	assert.Equal(t, book.Book.Title, retrieved.Book.Title)
	assert.Equal(t, book.Book.Authors, retrieved.Book.Authors)
	assert.Equal(t, book.Book.ISBN, retrieved.Book.ISBN)
	assert.Equal(t, book.Book.PublishedDate, retrieved.Book.PublishedDate)
	assert.Equal(t, book.Book.PageCount, retrieved.Book.PageCount)
	assert.Equal(t, book.Book.ThumbnailURL, retrieved.Book.ThumbnailURL)
	assert.ElementsMatch(t, book.Book.Categories, retrieved.Book.Categories)
	assert.Equal(t, book.CanonicalText, retrieved.CanonicalText)
}

func TestQdrantQueryReturnsUpserted(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	embedding := testEmbedding(0.2)
	book := &IndexedBook{
		Book: corpus.Book{
			ID:      "query-1",
			Title:   "Query Target",
			Authors: []string{"Test Author"},
		},
		Embedding: embedding,
	}
	book.CanonicalText = book.Book.CanonicalText()

	err := store.Upsert(ctx, []*IndexedBook{book})
	require.NoError(t, err)

	results, err := store.Query(ctx, embedding, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results, "Expected at least one search result")

	found := false
	for _, result := range results {
		if result.Book.ID == "query-1" {
			found = true
			assert.Equal(t, "Query Target", result.Book.Title)
		}
	}
	assert.True(t, found, "Upserted book should appear in its own query results")
}

func TestQdrantUpsertIdempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	first := &IndexedBook{
		Book:      corpus.Book{ID: "idempotent-1", Title: "Old"},
		Embedding: testEmbedding(0.3),
	}
	second := &IndexedBook{
		Book:      corpus.Book{ID: "idempotent-1", Title: "New"},
		Embedding: testEmbedding(0.4),
	}

	require.NoError(t, store.Upsert(ctx, []*IndexedBook{first}))
	require.NoError(t, store.Upsert(ctx, []*IndexedBook{second}))

	retrieved, err := store.Get(ctx, "idempotent-1")
	require.NoError(t, err)
	assert.Equal(t, "New", retrieved.Book.Title)
}

func TestQdrantDimensionValidation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	bad := &IndexedBook{
		Book:      corpus.Book{ID: "bad-dim"},
		Embedding: []float32{0.1, 0.2},
	}
	err := store.Upsert(ctx, []*IndexedBook{bad})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Query(ctx, []float32{0.1}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
