package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bookshelf-mcp-server/internal/recommend"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// makeRecommendHandler creates the recommend_books tool handler. One request
// runs the full pipeline: retrieve grounding docs, generate, reconcile
// against authoritative metadata.
func makeRecommendHandler(pipeline *recommend.Pipeline) func(
	context.Context, *mcp.CallToolRequest, RecommendBooksInput,
) (*mcp.CallToolResult, RecommendBooksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecommendBooksInput) (
		*mcp.CallToolResult, RecommendBooksOutput, error,
	) {
		if input.Subject == "" {
			return nil, RecommendBooksOutput{}, fmt.Errorf("subject must not be empty")
		}

		recs, err := pipeline.Recommend(ctx, input.Subject, input.MaxResults)
		if err != nil {
			return nil, RecommendBooksOutput{}, fmt.Errorf("recommendation failed: %w", err)
		}

		if len(recs) == 0 {
			return nil, RecommendBooksOutput{
				Recommendations: recs,
				Message:         "No matching books found. Try a broader subject.",
			}, nil
		}

		return nil, RecommendBooksOutput{Recommendations: recs}, nil
	}
}

// makeGetBookHandler creates the get_book tool handler.
func makeGetBookHandler(store storage.Store) func(
	context.Context, *mcp.CallToolRequest, GetBookInput,
) (*mcp.CallToolResult, GetBookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetBookInput) (
		*mcp.CallToolResult, GetBookOutput, error,
	) {
		indexed, err := store.Get(ctx, input.ID)
		if err != nil {
			if errors.Is(err, storage.ErrBookNotFound) {
				return nil, GetBookOutput{Found: false}, nil
			}
			return nil, GetBookOutput{}, fmt.Errorf("failed to fetch book: %w", err)
		}

		b := indexed.Book
		return nil, GetBookOutput{
			ID:            b.ID,
			Title:         b.Title,
			Authors:       b.Authors,
			Description:   b.Description,
			Categories:    b.Categories,
			ISBN:          b.ISBN,
			PublishedDate: b.PublishedDate,
			PageCount:     b.PageCount,
			ThumbnailURL:  b.ThumbnailURL,
			Found:         true,
		}, nil
	}
}

// makeListHandler creates the list_books tool handler.
func makeListHandler(store storage.Store) func(
	context.Context, *mcp.CallToolRequest, ListBooksInput,
) (*mcp.CallToolResult, ListBooksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListBooksInput) (
		*mcp.CallToolResult, ListBooksOutput, error,
	) {
		books, err := store.List(ctx)
		if err != nil {
			return nil, ListBooksOutput{}, fmt.Errorf("failed to list books: %w", err)
		}

		summaries := make([]BookSummary, 0, len(books))
		for _, b := range books {
			summaries = append(summaries, BookSummary{
				ID:     b.ID,
				Title:  b.Title,
				Author: b.Author(),
			})
		}

		return nil, ListBooksOutput{Books: summaries, Count: len(summaries)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(store storage.Store, distance storage.Distance) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		count, err := store.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to count books: %w", err)
		}

		return nil, StatusOutput{
			TotalBooks:   count,
			Distance:     string(distance),
			StoreHealthy: store.Health(ctx) == nil,
		}, nil
	}
}
