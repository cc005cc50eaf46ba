package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
)

// QdrantStore implements Store on top of a Qdrant collection, with
// connection management and health checks.
type QdrantStore struct {
	client   *qdrant.Client
	distance Distance
	host     string
	port     int
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore creates a new Qdrant-backed store with health validation.
// It performs a health check with retry on startup and fails fast if Qdrant
// is unreachable.
func NewQdrantStore(host string, port int, distance Distance) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:   client,
		distance: distance,
		host:     host,
		port:     port,
	}

	// Health check with exponential backoff before accepting any traffic
	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection ensures the books collection exists with the configured
// distance measure. Idempotent - safe to call multiple times.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrantDistance(s.distance),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// qdrantDistance maps the configured measure onto Qdrant's enum.
func qdrantDistance(d Distance) qdrant.Distance {
	switch d {
	case DistanceEuclidean:
		return qdrant.Distance_Euclid
	case DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// Clear deletes all points by dropping and recreating the collection.
// Used before a wholesale re-index.
func (s *QdrantStore) Clear(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// pointID derives the Qdrant point id for a record id. Qdrant point ids must
// be UUIDs, corpus ids are arbitrary strings; a name-based UUID keeps the
// mapping deterministic so upserts stay idempotent per record.
func pointID(recordID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

// upsertWithRetry performs the upsert operation with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Upsert stores books with their embeddings, overwriting any existing point
// with the same record id. Durable once the call returns.
func (s *QdrantStore) Upsert(ctx context.Context, books []*IndexedBook) error {
	if len(books) == 0 {
		return nil
	}

	for i, book := range books {
		if len(book.Embedding) != VectorDimension {
			return fmt.Errorf("%w: book %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(book.Embedding), VectorDimension)
		}
	}

	points := make([]*qdrant.PointStruct, len(books))
	for i, book := range books {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(book.Book.ID),
			Vectors: qdrant.NewVectors(book.Embedding...),
			Payload: qdrant.NewValueMap(bookPayload(book)),
		}
	}

	return s.upsertWithRetry(ctx, points)
}

// Query performs vector similarity search, returning up to limit books
// ordered by the collection's distance measure, best match first.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, limit int) ([]*ScoredBook, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false), // Not needed in results
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}

	books := make([]*ScoredBook, 0, len(results))
	for _, result := range results {
		book, content := bookFromPayload(result.Payload)
		books = append(books, &ScoredBook{
			Book:          book,
			CanonicalText: content,
			Score:         result.Score,
		})
	}

	return books, nil
}

// Get retrieves an indexed book by record id.
// Returns ErrBookNotFound if no such record is indexed.
func (s *QdrantStore) Get(ctx context.Context, id string) (*IndexedBook, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrBookNotFound
	}

	book, content := bookFromPayload(result[0].Payload)
	return &IndexedBook{Book: book, CanonicalText: content}, nil
}

// List returns every indexed book using the Scroll API, ordered by title.
func (s *QdrantStore) List(ctx context.Context) ([]corpus.Book, error) {
	var books []corpus.Book
	var offset *qdrant.PointId

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll books: %w", err)
		}

		for _, result := range results {
			book, _ := bookFromPayload(result.Payload)
			books = append(books, book)
		}

		// Fewer results than batch size means no more pages
		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// Count reports the number of indexed books.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}

	return collection.GetPointsCount(), nil
}

// bookPayload flattens an indexed book into the Qdrant payload map.
func bookPayload(book *IndexedBook) map[string]any {
	b := book.Book
	payload := map[string]any{
		"id":               b.ID,
		"title":            b.Title,
		"description":      b.Description,
		"long_description": b.LongDescription,
		"isbn":             b.ISBN,
		"published_date":   b.PublishedDate,
		"page_count":       b.PageCount,
		"thumbnail_url":    b.ThumbnailURL,
		"content":          book.CanonicalText,
	}

	payload["authors"] = toAnySlice(b.Authors)
	payload["categories"] = toAnySlice(b.Categories)

	return payload
}

// toAnySlice converts a string slice for qdrant.NewValueMap, which needs
// []interface{} to build list values.
func toAnySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// bookFromPayload rebuilds the book record and canonical text from a point
// payload. Fields are validated at this boundary: absent payload keys come
// back as zero values, never panics.
func bookFromPayload(payload map[string]*qdrant.Value) (corpus.Book, string) {
	book := corpus.Book{
		ID:              payload["id"].GetStringValue(),
		Title:           payload["title"].GetStringValue(),
		Description:     payload["description"].GetStringValue(),
		LongDescription: payload["long_description"].GetStringValue(),
		ISBN:            payload["isbn"].GetStringValue(),
		PublishedDate:   payload["published_date"].GetStringValue(),
		PageCount:       int(payload["page_count"].GetIntegerValue()),
		ThumbnailURL:    payload["thumbnail_url"].GetStringValue(),
	}

	book.Authors = fromListValue(payload["authors"])
	book.Categories = fromListValue(payload["categories"])

	return book, payload["content"].GetStringValue()
}

func fromListValue(v *qdrant.Value) []string {
	if v == nil || v.GetListValue() == nil {
		return nil
	}
	var out []string
	for _, item := range v.GetListValue().Values {
		out = append(out, item.GetStringValue())
	}
	return out
}
