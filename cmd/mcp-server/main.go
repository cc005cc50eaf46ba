// Package main provides the MCP server entry point for book recommendations.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
	"github.com/bull/bookshelf-mcp-server/internal/embedding"
	"github.com/bull/bookshelf-mcp-server/internal/generation"
	"github.com/bull/bookshelf-mcp-server/internal/indexer"
	mcpserver "github.com/bull/bookshelf-mcp-server/internal/mcp"
	"github.com/bull/bookshelf-mcp-server/internal/recommend"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Configuration from environment
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	port := getEnv("PORT", "8080")
	storeKind := getEnv("VECTOR_STORE", "qdrant")

	distance, err := storage.ParseDistance(os.Getenv("DISTANCE_MEASURE"))
	if err != nil {
		log.Fatalf("invalid DISTANCE_MEASURE: %v", err)
	}

	// Initialize embedding client; the generation engine shares it
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient)

	// Initialize storage
	var store storage.Store
	switch storeKind {
	case "memory":
		// Dev mode: brute-force in-memory store seeded from a local corpus
		// file at startup, no external infrastructure needed.
		memStore := storage.NewMemoryStore(distance)
		source := corpus.NewFileSource(getEnv("CORPUS_PATH", "data/books.json"))
		outcome, err := indexer.NewPipeline(source, embedder, memStore, nil).IndexAll(ctx)
		if err != nil {
			log.Fatalf("failed to seed in-memory store: %v", err)
		}
		if !outcome.Ok() {
			log.Printf("in-memory seed finished with %d failed records", len(outcome.Failed))
		}
		store = memStore
	case "qdrant":
		qdrantStore, err := storage.NewQdrantStore(qdrantHost, qdrantPort, distance)
		if err != nil {
			log.Fatalf("failed to connect to Qdrant: %v", err)
		}
		if err := qdrantStore.EnsureCollection(ctx); err != nil {
			log.Fatalf("failed to ensure collection: %v", err)
		}
		store = qdrantStore
	default:
		log.Fatalf("unknown VECTOR_STORE %q (want qdrant or memory)", storeKind)
	}
	defer store.Close()

	// Assemble the recommendation pipeline
	engine := generation.NewEngine(embeddingClient.Client(), os.Getenv("CHAT_MODEL"))
	retriever := recommend.NewRetriever(embedder, store)
	pipeline := recommend.NewPipeline(retriever, engine, nil)

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Store:    store,
		Pipeline: pipeline,
		Distance: distance,
	})

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()

	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start HTTP health endpoint in background for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting Bookshelf Recommendation MCP Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
