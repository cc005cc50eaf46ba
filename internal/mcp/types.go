// Package mcp exposes the recommendation pipeline as MCP tools.
package mcp

import "github.com/bull/bookshelf-mcp-server/internal/generation"

// RecommendBooksInput defines the input parameters for the recommend_books tool.
type RecommendBooksInput struct {
	// Subject is the topic to recommend books about.
	Subject string `json:"subject" jsonschema:"required,description=The subject or theme to recommend books about"`
	// MaxResults caps the retrieved grounding documents (and thereby the
	// candidate pool). Hard cap 10.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=10,default=10,description=Maximum number of grounding documents to retrieve (capped at 10)"`
}

// RecommendBooksOutput contains the reconciled recommendations.
type RecommendBooksOutput struct {
	// Recommendations is the reconciled recommendation list. Empty when no
	// relevant book exists in the corpus.
	Recommendations []generation.Recommendation `json:"recommendations"`
	// Message provides informational context (e.g. "No matching books found").
	Message string `json:"message,omitempty"`
}

// GetBookInput defines the input parameters for the get_book tool.
type GetBookInput struct {
	// ID is the stable record identifier of the book.
	ID string `json:"id" jsonschema:"required,description=The stable identifier of the book to retrieve"`
}

// GetBookOutput contains the retrieved book record.
type GetBookOutput struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Description   string   `json:"description,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
	// Found indicates whether the book exists in the index.
	Found bool `json:"found"`
}

// ListBooksInput defines the input parameters for the list_books tool.
// The tool takes no parameters and lists the whole indexed corpus.
type ListBooksInput struct{}

// BookSummary is one entry of the list_books output.
type BookSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// ListBooksOutput contains the indexed corpus listing.
type ListBooksOutput struct {
	Books []BookSummary `json:"books"`
	Count int           `json:"count"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput reports the current state of the book index.
type StatusOutput struct {
	// TotalBooks is the number of indexed records.
	TotalBooks uint64 `json:"total_books"`
	// Distance is the configured similarity measure.
	Distance string `json:"distance"`
	// StoreHealthy reports whether the vector store is reachable.
	StoreHealthy bool `json:"store_healthy"`
}
