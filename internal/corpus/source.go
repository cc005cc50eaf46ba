package corpus

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
	"github.com/google/uuid"
)

// Source loads the raw book corpus from wherever it lives.
type Source interface {
	Load(ctx context.Context) ([]Book, error)
}

// FileSource reads the corpus from a local JSON file containing an array of
// book records.
type FileSource struct {
	Path string
}

// NewFileSource creates a corpus source backed by a local JSON file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and cleans the corpus file.
func (s *FileSource) Load(ctx context.Context) ([]Book, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return decodeBooks(data)
}

// GitHubSource fetches the corpus JSON file from a GitHub repository at a
// pinned ref. Uses an authenticated client when GITHUB_TOKEN is set, with
// automatic rate limit handling.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
	path   string
	ref    string
}

// NewGitHubSource creates a corpus source backed by a file in a GitHub
// repository. ref may be empty to use the repository's default branch.
func NewGitHubSource(owner, repo, path, ref string) (*GitHubSource, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, fmt.Errorf("create rate limit client: %w", err)
	}

	client := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHubSource{
		client: client,
		owner:  owner,
		repo:   repo,
		path:   path,
		ref:    ref,
	}, nil
}

// Load fetches and cleans the corpus file from GitHub.
func (s *GitHubSource) Load(ctx context.Context) ([]Book, error) {
	var opts *github.RepositoryContentGetOptions
	if s.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.ref}
	}

	fileContent, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, s.path, opts)
	if err != nil {
		return nil, fmt.Errorf("get contents of %s/%s/%s: %w", s.owner, s.repo, s.path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", s.path)
	}

	data, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", s.path, err)
	}

	return decodeBooks(data)
}

// decodeBooks unmarshals the raw corpus and applies cleanup: records without
// a usable long description are dropped (nothing to embed), records without
// an id get a generated UUID.
func decodeBooks(data []byte) ([]Book, error) {
	var raw []Book
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}

	books := make([]Book, 0, len(raw))
	for _, b := range raw {
		if len(b.LongDescription) == 0 {
			continue
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		books = append(books, b)
	}
	return books, nil
}
