// Package indexer bulk-loads the book corpus into the vector store.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// Embedder is the single-text embedding dependency.
// Satisfied by embedding.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FailedRecord is one corpus record that failed to index.
type FailedRecord struct {
	ID     string
	Reason string
}

// BatchOutcome collects the all-settled result of one indexing run. Callers
// decide accept-partial vs reject-all; upserts committed before a sibling
// failure are never rolled back.
type BatchOutcome struct {
	Succeeded []string
	Failed    []FailedRecord
	Duration  time.Duration
}

// Ok reports whether every record in the batch was indexed.
func (o *BatchOutcome) Ok() bool { return len(o.Failed) == 0 }

// Pipeline converts a corpus into indexed documents: canonical text,
// embedding, upsert keyed by record id.
type Pipeline struct {
	source   corpus.Source
	embedder Embedder
	store    storage.Store
	logger   *slog.Logger
}

// NewPipeline creates an indexing pipeline with the given components.
func NewPipeline(source corpus.Source, embedder Embedder, store storage.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// IndexAll loads the corpus and indexes every record. Records are processed
// concurrently and independently, all-settled: every record's outcome is
// collected, no failure cancels its siblings. The returned error covers only
// setup (corpus loading); per-record failures live in the outcome.
func (p *Pipeline) IndexAll(ctx context.Context) (*BatchOutcome, error) {
	start := time.Now()

	books, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	p.logger.Info("Starting indexing", "records", len(books))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		outcome BatchOutcome
	)

	for _, book := range books {
		wg.Add(1)
		go func(book corpus.Book) {
			defer wg.Done()

			if err := p.indexRecord(ctx, book); err != nil {
				p.logger.Warn("Failed to index record", "id", book.ID, "title", book.Title, "error", err)
				mu.Lock()
				outcome.Failed = append(outcome.Failed, FailedRecord{ID: book.ID, Reason: err.Error()})
				mu.Unlock()
				return
			}

			mu.Lock()
			outcome.Succeeded = append(outcome.Succeeded, book.ID)
			mu.Unlock()
		}(book)
	}
	wg.Wait()

	// Deterministic reporting regardless of goroutine completion order
	sort.Strings(outcome.Succeeded)
	sort.Slice(outcome.Failed, func(i, j int) bool { return outcome.Failed[i].ID < outcome.Failed[j].ID })

	outcome.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", len(outcome.Succeeded),
		"failed", len(outcome.Failed),
		"duration", outcome.Duration,
	)

	return &outcome, nil
}

// indexRecord handles one record: derive canonical text, embed it, upsert.
func (p *Pipeline) indexRecord(ctx context.Context, book corpus.Book) error {
	text := book.CanonicalText()

	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	doc := &storage.IndexedBook{
		Book:          book,
		CanonicalText: text,
		Embedding:     embedding,
	}
	if err := p.store.Upsert(ctx, []*storage.IndexedBook{doc}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	return nil
}
