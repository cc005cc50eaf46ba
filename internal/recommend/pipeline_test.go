package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
	"github.com/bull/bookshelf-mcp-server/internal/generation"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

type fakeRetriever struct {
	docs []*storage.ScoredBook
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, limit int) ([]*storage.ScoredBook, error) {
	return f.docs, f.err
}

type fakeGenerator struct {
	recs    []generation.Recommendation
	err     error
	stream  []generation.StreamEvent
	invoked bool
}

func (f *fakeGenerator) Recommend(ctx context.Context, subject string, docs []*storage.ScoredBook) ([]generation.Recommendation, error) {
	f.invoked = true
	return f.recs, f.err
}

func (f *fakeGenerator) RecommendStream(ctx context.Context, subject string, docs []*storage.ScoredBook) <-chan generation.StreamEvent {
	f.invoked = true
	events := make(chan generation.StreamEvent, len(f.stream))
	for _, ev := range f.stream {
		events <- ev
	}
	close(events)
	return events
}

func duneDoc() *storage.ScoredBook {
	return &storage.ScoredBook{
		Book: corpus.Book{
			ID:            "1",
			Title:         "Dune",
			Authors:       []string{"Frank Herbert"},
			ISBN:          "123",
			ThumbnailURL:  "https://example.com/dune.jpg",
			PublishedDate: "1965-08-01",
		},
		Score: 0.92,
	}
}

func TestPipeline_EmptyRetrievalSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(&fakeRetriever{docs: nil}, gen, nil)

	recs, err := p.Recommend(context.Background(), "any subject", 10)
	require.NoError(t, err)

	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.False(t, gen.invoked, "generation must not run on empty grounding")
}

func TestPipeline_ReconciliationOverwritesModelMetadata(t *testing.T) {
	// Model asserts wrong author/isbn/thumbnail/date; the retrieved record
	// is the source of truth for all four.
	gen := &fakeGenerator{recs: []generation.Recommendation{{
		ID:            "1",
		Title:         "Dune",
		Author:        "Francis Herbert",
		Description:   "A desert epic.",
		ISBN:          "999",
		ThumbnailURL:  "https://wrong.example.com/x.jpg",
		PublishedDate: "2001-01-01",
	}}}
	p := NewPipeline(&fakeRetriever{docs: []*storage.ScoredBook{duneDoc()}}, gen, nil)

	recs, err := p.Recommend(context.Background(), "science fiction desert planet", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "Frank Herbert", recs[0].Author)
	assert.Equal(t, "123", recs[0].ISBN)
	assert.Equal(t, "https://example.com/dune.jpg", recs[0].ThumbnailURL)
	assert.Equal(t, "1965-08-01", recs[0].PublishedDate)
	// Model-owned fields survive untouched
	assert.Equal(t, "Dune", recs[0].Title)
	assert.Equal(t, "A desert epic.", recs[0].Description)
}

func TestPipeline_ReconciliationJoinsAuthors(t *testing.T) {
	doc := duneDoc()
	doc.Book.Authors = []string{"Frank Herbert", "Brian Herbert"}

	gen := &fakeGenerator{recs: []generation.Recommendation{{
		ID: "1", Title: "Dune", Author: "someone", Description: "d", ISBN: "x",
	}}}
	p := NewPipeline(&fakeRetriever{docs: []*storage.ScoredBook{doc}}, gen, nil)

	recs, err := p.Recommend(context.Background(), "dune", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Frank Herbert, Brian Herbert", recs[0].Author)
}

func TestPipeline_UngroundedIDPassesThroughWithGaps(t *testing.T) {
	gen := &fakeGenerator{recs: []generation.Recommendation{{
		ID:            "not-retrieved",
		Title:         "Fabricated",
		Author:        "Model Made-Up",
		Description:   "Not from context.",
		ISBN:          "000",
		ThumbnailURL:  "https://wrong.example.com/y.jpg",
		PublishedDate: "1999-01-01",
	}}}
	p := NewPipeline(&fakeRetriever{docs: []*storage.ScoredBook{duneDoc()}}, gen, nil)

	recs, err := p.Recommend(context.Background(), "anything", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1, "ungrounded recommendations are kept, not dropped")

	assert.Equal(t, "not-retrieved", recs[0].ID)
	assert.Equal(t, "Fabricated", recs[0].Title)
	assert.Empty(t, recs[0].Author)
	assert.Empty(t, recs[0].ISBN)
	assert.Empty(t, recs[0].ThumbnailURL)
	assert.Empty(t, recs[0].PublishedDate)
}

func TestPipeline_RetrievalFailureTagsStage(t *testing.T) {
	cause := errors.New("qdrant down")
	p := NewPipeline(&fakeRetriever{err: cause}, &fakeGenerator{}, nil)

	_, err := p.Recommend(context.Background(), "subject", 10)
	require.Error(t, err)

	var pipeErr *PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, StageRetrieve, pipeErr.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestPipeline_GenerationFailureTagsStage(t *testing.T) {
	p := NewPipeline(
		&fakeRetriever{docs: []*storage.ScoredBook{duneDoc()}},
		&fakeGenerator{err: generation.ErrInvalidFormat},
		nil,
	)

	_, err := p.Recommend(context.Background(), "subject", 10)
	require.Error(t, err)

	var pipeErr *PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, StageGenerate, pipeErr.Stage)
	assert.ErrorIs(t, err, generation.ErrInvalidFormat)
}

func TestPipeline_StreamForwardsChunksAndFinalText(t *testing.T) {
	gen := &fakeGenerator{stream: []generation.StreamEvent{
		{Delta: `{"recommendations": `},
		{Delta: `[]}`},
		{Done: true, Text: `{"recommendations": []}`},
	}}
	p := NewPipeline(&fakeRetriever{docs: []*storage.ScoredBook{duneDoc()}}, gen, nil)

	events, err := p.RecommendStream(context.Background(), "subject", 10)
	require.NoError(t, err)

	var deltas []string
	var final generation.StreamEvent
	for ev := range events {
		if ev.Done {
			final = ev
			continue
		}
		deltas = append(deltas, ev.Delta)
	}

	assert.Equal(t, []string{`{"recommendations": `, `[]}`}, deltas)
	assert.Equal(t, `{"recommendations": []}`, final.Text)
	assert.NoError(t, final.Err)
}

func TestPipeline_StreamEmptyRetrievalEmitsEmptyList(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(&fakeRetriever{}, gen, nil)

	events, err := p.RecommendStream(context.Background(), "subject", 10)
	require.NoError(t, err)

	var got []generation.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 1)
	assert.True(t, got[0].Done)
	assert.Equal(t, "[]", got[0].Text)
	assert.False(t, gen.invoked)
}

func TestPipeline_StreamRetrievalFailureTagsStage(t *testing.T) {
	cause := errors.New("embedder offline")
	p := NewPipeline(&fakeRetriever{err: cause}, &fakeGenerator{}, nil)

	_, err := p.RecommendStream(context.Background(), "subject", 10)
	require.Error(t, err)

	var pipeErr *PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, StageRetrieve, pipeErr.Stage)
}
