// Package search loads a persisted dataset bundle and answers top-k
// similarity queries against it.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"knowledge-search/internal/domain"
	"knowledge-search/internal/embedding"
	"knowledge-search/internal/vecindex"
)

var (
	// ErrIndexNotFound is returned when the index path does not exist or
	// names a directory with no index files.
	ErrIndexNotFound = errors.New("index not found")
	// ErrMetadataNotFound is returned when the metadata path does not exist.
	ErrMetadataNotFound = errors.New("metadata file not found")
	// ErrInvalidMetadata is returned when the metadata document is neither
	// an object with a documents array nor a bare array of documents.
	ErrInvalidMetadata = errors.New("metadata file must contain an object with a documents array or a bare array")
	// ErrEmptyIndex is returned when the loaded index holds no vectors.
	ErrEmptyIndex = errors.New("index contains no vectors")
)

// EmbedderOpener resolves a model identifier to an embedding provider.
type EmbedderOpener func(modelID string) (embedding.Embedder, error)

// Options are the parameters of one query.
type Options struct {
	IndexPath    string
	MetadataPath string
	Query        string
	TopK         int
	DefaultModel string
}

// Response is the ranked answer to one query.
type Response struct {
	Results     []domain.SearchResult `json:"results"`
	DurationMs  int64                 `json:"duration_ms"`
	DatasetSize int                   `json:"dataset_size"`
}

// Run embeds the query with the model recorded in the bundle's metadata and
// returns the top-k matches in the index engine's own ranking order.
//
// A result position outside the document list is skipped rather than failing
// the query: a caller pairing a stale index with newer metadata gets
// best-effort results instead of a hard error.
func Run(ctx context.Context, open EmbedderOpener, opts Options) (*Response, error) {
	start := time.Now()

	if _, err := os.Stat(opts.IndexPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, opts.IndexPath)
	}
	if _, err := os.Stat(opts.MetadataPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, opts.MetadataPath)
	}

	documents, model, err := loadMetadata(opts.MetadataPath, opts.DefaultModel)
	if err != nil {
		return nil, err
	}

	indexFile, err := resolveIndexFile(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	index, err := vecindex.ReadFile(indexFile)
	if err != nil {
		return nil, err
	}
	if index.Ntotal() == 0 {
		return nil, ErrEmptyIndex
	}

	emb, err := open(model)
	if err != nil {
		return nil, err
	}
	vectors, err := emb.Encode(ctx, []string{opts.Query}, 1)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	query := vectors[0]
	embedding.Normalize(query)
	if len(query) != index.Dimension() {
		return nil, fmt.Errorf("%w: query model %q produced dimension %d, index has %d",
			vecindex.ErrDimension, model, len(query), index.Dimension())
	}

	k := opts.TopK
	if k < 1 {
		k = 1
	}
	if k > index.Ntotal() {
		k = index.Ntotal()
	}
	scores, ids, err := index.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, k)
	for i, id := range ids {
		if id < 0 || id >= len(documents) {
			continue
		}
		doc := documents[id]
		title := doc.Title
		if title == "" {
			title = doc.Path
		}
		if title == "" {
			title = fmt.Sprintf("Document %d", id)
		}
		snippet := doc.Snippet
		if snippet == "" {
			snippet = firstChars(doc.Content, 200)
		}
		resultID := doc.ID
		if resultID == "" {
			resultID = strconv.Itoa(id)
		}
		results = append(results, domain.SearchResult{
			ID:      resultID,
			Score:   scores[i],
			Title:   title,
			Path:    doc.Path,
			Snippet: snippet,
		})
	}

	return &Response{
		Results:     results,
		DurationMs:  time.Since(start).Milliseconds(),
		DatasetSize: index.Ntotal(),
	}, nil
}

// resolveIndexFile maps the index path to a concrete file: a file path is
// used as-is, a directory yields its lexicographically first index file.
func resolveIndexFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIndexNotFound, path)
	}
	if !info.IsDir() {
		return path, nil
	}
	var candidates []string
	for _, ext := range vecindex.Extensions {
		matches, err := filepath.Glob(filepath.Join(path, "*"+ext))
		if err != nil {
			return "", err
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no index files in %s", ErrIndexNotFound, path)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// loadMetadata accepts either the full bundle object or a bare array of
// documents; the bare form implies the default model.
func loadMetadata(path, defaultModel string) ([]domain.Document, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrMetadataNotFound, path)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var documents []domain.Document
		if err := json.Unmarshal(data, &documents); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		return documents, defaultModel, nil
	}
	var payload struct {
		Model     string          `json:"model"`
		Documents json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	// a JSON null survives into the RawMessage as the literal "null"
	if payload.Documents == nil || string(payload.Documents) == "null" {
		return nil, "", fmt.Errorf("%w: missing documents array", ErrInvalidMetadata)
	}
	var documents []domain.Document
	if err := json.Unmarshal(payload.Documents, &documents); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	model := payload.Model
	if model == "" {
		model = defaultModel
	}
	return documents, model, nil
}

func firstChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
