package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bookshelf-mcp-server/internal/recommend"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server   *mcp.Server
	store    storage.Store
	pipeline *recommend.Pipeline
}

// Config holds server dependencies.
type Config struct {
	Store    storage.Store
	Pipeline *recommend.Pipeline
	Distance storage.Distance
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "bookshelf-recommendation-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_books",
		Description: "Recommend books on a subject using semantic retrieval over the indexed corpus. Recommendations are grounded in indexed books only and carry authoritative metadata.",
	}, makeRecommendHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_book",
		Description: "Retrieve a specific book record by its stable identifier.",
	}, makeGetBookHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_books",
		Description: "List all books in the index with id, title and author.",
	}, makeListHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the book index: record count, distance measure and store health.",
	}, makeStatusHandler(cfg.Store, cfg.Distance))

	return &Server{
		server:   server,
		store:    cfg.Store,
		pipeline: cfg.Pipeline,
	}
}

// Run starts the server with stdio transport (blocks until the client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
