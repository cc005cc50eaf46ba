package storage

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
)

// MemoryStore is a brute-force in-memory Store. It backs the memory dev mode
// and tests; the corpus is small enough that exact search over every vector
// is fine. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	distance Distance
	dim      int
	books    []*IndexedBook // insertion order, which decides score ties
	byID     map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store ranking with the given
// distance measure. The vector dimension is fixed by the first upsert.
func NewMemoryStore(distance Distance) *MemoryStore {
	return &MemoryStore{
		distance: distance,
		byID:     make(map[string]int),
	}
}

// Upsert inserts or replaces books keyed by record id. A replaced record
// keeps its original insertion position.
func (s *MemoryStore) Upsert(ctx context.Context, books []*IndexedBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range books {
		if s.dim == 0 {
			s.dim = len(book.Embedding)
		}
		if len(book.Embedding) != s.dim {
			return ErrDimensionMismatch
		}

		clone := *book
		if i, ok := s.byID[book.Book.ID]; ok {
			s.books[i] = &clone
			continue
		}
		s.byID[book.Book.ID] = len(s.books)
		s.books = append(s.books, &clone)
	}
	return nil
}

// Query returns up to limit nearest neighbors, best match first. Empty store
// yields an empty slice. Ties keep insertion order (stable sort).
func (s *MemoryStore) Query(ctx context.Context, vector []float32, limit int) ([]*ScoredBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.books) == 0 || limit <= 0 {
		return []*ScoredBook{}, nil
	}
	if len(vector) != s.dim {
		return nil, ErrDimensionMismatch
	}

	scored := make([]*ScoredBook, len(s.books))
	for i, book := range s.books {
		scored[i] = &ScoredBook{
			Book:          book.Book,
			CanonicalText: book.CanonicalText,
			Score:         score(s.distance, vector, book.Embedding),
		}
	}

	ascending := s.distance == DistanceEuclidean
	sort.SliceStable(scored, func(i, j int) bool {
		if ascending {
			return scored[i].Score < scored[j].Score
		}
		return scored[i].Score > scored[j].Score
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// Get retrieves an indexed book by record id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*IndexedBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	clone := *s.books[i]
	return &clone, nil
}

// List returns all indexed books ordered by title.
func (s *MemoryStore) List(ctx context.Context) ([]corpus.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]corpus.Book, len(s.books))
	for i, b := range s.books {
		books[i] = b.Book
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// Count reports the number of indexed books.
func (s *MemoryStore) Count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.books)), nil
}

// Clear removes all indexed books.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = nil
	s.byID = make(map[string]int)
	s.dim = 0
	return nil
}

// Health always succeeds: the store lives in process memory.
func (s *MemoryStore) Health(ctx context.Context) error { return nil }

// Close releases nothing but satisfies Store.
func (s *MemoryStore) Close() error { return nil }

// score computes the ranking score of candidate b for query a under the
// given measure. Cosine and dot product rank descending, euclidean ranks
// ascending (it is a distance, not a similarity).
func score(d Distance, a, b []float32) float32 {
	switch d {
	case DistanceEuclidean:
		var sum float64
		for i := range a {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return float32(math.Sqrt(sum))
	case DistanceDot:
		return dot(a, b)
	default: // cosine
		na := norm(a)
		nb := norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

func norm(a []float32) float32 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum))
}
