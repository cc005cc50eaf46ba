package recommend

import (
	"context"
	"log/slog"

	"github.com/bull/bookshelf-mcp-server/internal/generation"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// DocumentRetriever fetches grounding documents for a query.
// Satisfied by *Retriever.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]*storage.ScoredBook, error)
}

// Generator produces recommendations from a subject and grounding documents.
// Satisfied by *generation.Engine.
type Generator interface {
	Recommend(ctx context.Context, subject string, docs []*storage.ScoredBook) ([]generation.Recommendation, error)
	RecommendStream(ctx context.Context, subject string, docs []*storage.ScoredBook) <-chan generation.StreamEvent
}

// Pipeline runs one recommendation request: retrieve, generate, reconcile.
// Requests are independent; a Pipeline is shared by reference across
// concurrent requests with no per-request state.
type Pipeline struct {
	retriever DocumentRetriever
	generator Generator
	logger    *slog.Logger
}

// NewPipeline wires the pipeline from its components.
func NewPipeline(retriever DocumentRetriever, generator Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Recommend answers a subject query with a reconciled recommendation list.
// Empty retrieval short-circuits to an empty list without invoking the
// model: no grounding means any output would be fabricated.
func (p *Pipeline) Recommend(ctx context.Context, subject string, limit int) ([]generation.Recommendation, error) {
	docs, err := p.retriever.Retrieve(ctx, subject, limit)
	if err != nil {
		return nil, &PipelineError{Stage: StageRetrieve, Err: err}
	}
	if len(docs) == 0 {
		p.logger.Info("Empty retrieval, skipping generation", "subject", subject)
		return []generation.Recommendation{}, nil
	}
	p.logger.Debug("Retrieved grounding documents", "subject", subject, "count", len(docs))

	recs, err := p.generator.Recommend(ctx, subject, docs)
	if err != nil {
		return nil, &PipelineError{Stage: StageGenerate, Err: err}
	}

	return p.reconcile(recs, docs), nil
}

// RecommendStream answers a subject query with streamed generation output.
// The returned channel delivers text increments and a terminal event with
// the full text; no reconciliation is applied to streamed text. Empty
// retrieval yields a single terminal event carrying an empty JSON array.
func (p *Pipeline) RecommendStream(ctx context.Context, subject string, limit int) (<-chan generation.StreamEvent, error) {
	docs, err := p.retriever.Retrieve(ctx, subject, limit)
	if err != nil {
		return nil, &PipelineError{Stage: StageRetrieve, Err: err}
	}
	if len(docs) == 0 {
		p.logger.Info("Empty retrieval, skipping generation", "subject", subject)
		events := make(chan generation.StreamEvent, 1)
		events <- generation.StreamEvent{Done: true, Text: "[]"}
		close(events)
		return events, nil
	}

	return p.generator.RecommendStream(ctx, subject, docs), nil
}

// reconcile overwrites model-asserted metadata with the authoritative values
// from the retrieved record matching each recommendation's id. A
// recommendation whose id is absent from the retrieved set (the model broke
// the grounding contract) is passed through with those fields cleared rather
// than dropped.
func (p *Pipeline) reconcile(recs []generation.Recommendation, docs []*storage.ScoredBook) []generation.Recommendation {
	byID := make(map[string]*storage.ScoredBook, len(docs))
	for _, doc := range docs {
		byID[doc.Book.ID] = doc
	}

	out := make([]generation.Recommendation, 0, len(recs))
	for _, rec := range recs {
		doc, ok := byID[rec.ID]
		if !ok {
			p.logger.Warn("Recommendation id not in retrieved set, clearing source metadata", "id", rec.ID)
			rec.Author = ""
			rec.ISBN = ""
			rec.ThumbnailURL = ""
			rec.PublishedDate = ""
			out = append(out, rec)
			continue
		}

		rec.Author = doc.Book.Author()
		rec.ISBN = doc.Book.ISBN
		rec.ThumbnailURL = doc.Book.ThumbnailURL
		rec.PublishedDate = doc.Book.PublishedDate
		out = append(out, rec)
	}
	return out
}
