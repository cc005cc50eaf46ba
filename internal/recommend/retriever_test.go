package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// hashEmbedder produces small deterministic vectors so retrieval order is
// fully controlled by the test corpus.
type hashEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if h.err != nil {
		return nil, h.err
	}
	if v, ok := h.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func seededStore(t *testing.T, n int) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore(storage.DistanceCosine)
	for i := range n {
		book := corpus.Book{ID: fmt.Sprintf("%d", i), Title: fmt.Sprintf("Book %d", i)}
		err := store.Upsert(context.Background(), []*storage.IndexedBook{{
			Book:          book,
			CanonicalText: book.CanonicalText(),
			Embedding:     []float32{1, float32(i) * 0.01, 0},
		}})
		require.NoError(t, err)
	}
	return store
}

func TestRetriever_LimitDefaultsAndCapsAtTen(t *testing.T) {
	store := seededStore(t, 15)
	r := NewRetriever(&hashEmbedder{}, store)

	for _, limit := range []int{0, -3, 10, 25} {
		docs, err := r.Retrieve(context.Background(), "query", limit)
		require.NoError(t, err)
		assert.Len(t, docs, 10, "limit %d must clamp to 10", limit)
	}
}

func TestRetriever_SmallLimitHonored(t *testing.T) {
	store := seededStore(t, 15)
	r := NewRetriever(&hashEmbedder{}, store)

	docs, err := r.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestRetriever_PreservesStoreOrder(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(storage.DistanceCosine)

	for id, vec := range map[string][]float32{
		"best":  {1, 0, 0},
		"mid":   {0.9, 0.4, 0},
		"worst": {0, 1, 0},
	} {
		book := corpus.Book{ID: id, Title: id}
		require.NoError(t, store.Upsert(ctx, []*storage.IndexedBook{{
			Book: book, CanonicalText: book.CanonicalText(), Embedding: vec,
		}}))
	}

	r := NewRetriever(&hashEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}, store)
	docs, err := r.Retrieve(ctx, "q", 10)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "best", docs[0].Book.ID)
	assert.Equal(t, "mid", docs[1].Book.ID)
	assert.Equal(t, "worst", docs[2].Book.ID)
}

func TestRetriever_EmptyStoreReturnsEmpty(t *testing.T) {
	store := storage.NewMemoryStore(storage.DistanceCosine)
	r := NewRetriever(&hashEmbedder{}, store)

	docs, err := r.Retrieve(context.Background(), "query", 10)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetriever_EmbedFailureIsFatal(t *testing.T) {
	cause := errors.New("rate limited")
	r := NewRetriever(&hashEmbedder{err: cause}, seededStore(t, 2))

	_, err := r.Retrieve(context.Background(), "query", 10)
	assert.ErrorIs(t, err, cause)
}
