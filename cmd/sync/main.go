// Package main provides the bookshelf CLI for corpus indexing and ad-hoc queries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/bookshelf-mcp-server/internal/corpus"
	"github.com/bull/bookshelf-mcp-server/internal/embedding"
	"github.com/bull/bookshelf-mcp-server/internal/generation"
	"github.com/bull/bookshelf-mcp-server/internal/indexer"
	"github.com/bull/bookshelf-mcp-server/internal/recommend"
	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// syncTimeout bounds a full corpus re-index. Bulk embedding of the whole
// corpus is slow, hence the generous deadline.
const syncTimeout = 900 * time.Second

var rootCmd = &cobra.Command{
	Use:   "bookshelf",
	Short: "Book recommendation corpus tool",
	Long:  "CLI tool for managing the book corpus index in Qdrant and querying recommendations",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index the whole book corpus",
	Long: `Clears the existing index and rebuilds it from the corpus source.

This command:
1. Connects to Qdrant and verifies health
2. Clears the existing books collection
3. Loads the corpus from a local JSON file or a GitHub repository
4. Generates an embedding for every record's canonical text, in parallel
5. Upserts records into Qdrant keyed by their stable id

The run is all-settled: every record's outcome is collected, and the command
fails if any record failed, but records indexed before a failure remain.

Environment variables:
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY   OpenAI API key for embeddings (required)
  DISTANCE_MEASURE cosine, euclidean or dot (default: cosine)
  CORPUS_PATH      local corpus JSON file (default: data/books.json)
  CORPUS_REPO      owner/repo to fetch the corpus from instead of a local file
  CORPUS_FILE      file path inside CORPUS_REPO (default: books.json)
  CORPUS_REF       git ref to fetch (default: repository default branch)
  GITHUB_TOKEN     GitHub token for higher rate limits (optional)`,
	RunE: runSync,
}

var (
	recommendLimit  int
	recommendStream bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <subject>",
	Short: "Recommend books on a subject from the indexed corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current index size",
	RunE:  runStatus,
}

func init() {
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", recommend.DefaultLimit, "max grounding documents to retrieve (capped at 10)")
	recommendCmd.Flags().BoolVar(&recommendStream, "stream", false, "stream generation output instead of waiting for the full result")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()

	start := time.Now()

	fmt.Println("Starting sync...")
	fmt.Println()

	store, err := connectStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := corpusSource()
	if err != nil {
		return err
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("Failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient)

	fmt.Println("Clearing existing collection...")
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("Failed to clear collection: %w", err)
	}
	fmt.Println("Collection cleared")

	fmt.Println()
	fmt.Println("Indexing corpus...")
	pipeline := indexer.NewPipeline(source, embedder, store, nil)

	outcome, err := pipeline.IndexAll(ctx)
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Records: %d/%d\n", len(outcome.Succeeded), len(outcome.Succeeded)+len(outcome.Failed))
	fmt.Printf("  Duration: %s\n", outcome.Duration.Round(time.Second))

	if !outcome.Ok() {
		fmt.Println()
		fmt.Println("Failed records:")
		for _, failed := range outcome.Failed {
			fmt.Printf("  - %s: %s\n", failed.ID, failed.Reason)
		}
		return fmt.Errorf("%d of %d records failed to index", len(outcome.Failed), len(outcome.Succeeded)+len(outcome.Failed))
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	subject := args[0]

	store, err := connectStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("Failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient)

	engine := generation.NewEngine(embeddingClient.Client(), os.Getenv("CHAT_MODEL"))
	pipeline := recommend.NewPipeline(recommend.NewRetriever(embedder, store), engine, nil)

	if recommendStream {
		events, err := pipeline.RecommendStream(ctx, subject, recommendLimit)
		if err != nil {
			return err
		}
		for ev := range events {
			if ev.Done {
				if ev.Err != nil {
					fmt.Println()
					return ev.Err
				}
				fmt.Println()
				break
			}
			fmt.Print(ev.Delta)
		}
		return nil
	}

	recs, err := pipeline.Recommend(ctx, subject, recommendLimit)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := connectStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("Failed to count records: %w", err)
	}

	fmt.Printf("Indexed books: %d\n", count)
	return nil
}

// connectStore dials Qdrant with the configured distance measure and ensures
// the collection exists.
func connectStore(ctx context.Context) (*storage.QdrantStore, error) {
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)

	distance, err := storage.ParseDistance(os.Getenv("DISTANCE_MEASURE"))
	if err != nil {
		return nil, err
	}

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", qdrantHost, qdrantPort)
	store, err := storage.NewQdrantStore(qdrantHost, qdrantPort, distance)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to Qdrant: %w", err)
	}

	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("Failed to ensure collection: %w", err)
	}

	return store, nil
}

// corpusSource picks the corpus source from the environment: a GitHub-hosted
// JSON file when CORPUS_REPO is set, a local file otherwise.
func corpusSource() (corpus.Source, error) {
	if repo := os.Getenv("CORPUS_REPO"); repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok {
			return nil, fmt.Errorf("CORPUS_REPO must be owner/repo, got %q", repo)
		}
		return corpus.NewGitHubSource(owner, name, getEnv("CORPUS_FILE", "books.json"), os.Getenv("CORPUS_REF"))
	}
	return corpus.NewFileSource(getEnv("CORPUS_PATH", "data/books.json")), nil
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
