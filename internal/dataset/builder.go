// Package dataset builds persisted semantic-search bundles: it discovers
// source files, chunks them, embeds every chunk, and writes the index,
// metadata, and manifest files that the query engine reads back.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"knowledge-search/internal/chunker"
	"knowledge-search/internal/domain"
	"knowledge-search/internal/embedding"
	"knowledge-search/internal/vecindex"
)

const (
	indexDirName     = "index"
	indexFileName    = "docs.index"
	metadataFileName = "metadata.json"
	manifestFileName = "manifest.json"
	defaultTopK      = 5
	defaultBatchSize = 32
)

var datasetIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// BuildOptions are the per-invocation parameters of a dataset build.
type BuildOptions struct {
	Source       string
	DatasetID    string
	OutputDir    string
	Name         string
	Description  string
	Model        string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	DatasetID           string `json:"datasetId"`
	Documents           int    `json:"documents"`
	Chunks              int    `json:"chunks"`
	Model               string `json:"model"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	IndexPath           string `json:"indexPath"`
	MetadataPath        string `json:"metadataPath"`
	DurationMs          int64  `json:"durationMs"`
}

// corpus keeps document records and their embedding texts in lockstep, so
// vector position i always belongs to document i.
type corpus struct {
	documents []domain.Document
	texts     []string
}

func (c *corpus) add(doc domain.Document, text string) {
	c.documents = append(c.documents, doc)
	c.texts = append(c.texts, text)
}

// Build creates a dataset bundle under opts.OutputDir/opts.DatasetID. The
// bundle is create-only: an existing directory for the id fails the build,
// and a failed build removes the directory it created so a retry does not
// find a half-written bundle.
func Build(ctx context.Context, emb embedding.Embedder, opts BuildOptions) (*BuildResult, error) {
	start := time.Now()

	if !datasetIDPattern.MatchString(opts.DatasetID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatasetID, opts.DatasetID)
	}

	files, err := Discover(opts.Source)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFilesFound
	}

	datasetDir := filepath.Join(opts.OutputDir, opts.DatasetID)
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}
	// Mkdir is the create-only gate: of two racing builds, exactly one
	// sees the directory already there.
	if err := os.Mkdir(datasetDir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrDatasetExists, opts.DatasetID)
		}
		return nil, err
	}
	built := false
	defer func() {
		if !built {
			_ = os.RemoveAll(datasetDir)
		}
	}()

	words, err := chunker.NewWordChunker(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var corp corpus
	indexedFiles := 0
	for _, file := range files {
		text, err := readText(file)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks := words.Chunk(text)
		if len(chunks) == 0 {
			continue
		}
		indexedFiles++
		title := chunker.Title(file, text)
		relPath := safeRelative(file, opts.Source)
		for i, chunk := range chunks {
			corp.add(domain.Document{
				ID:         fmt.Sprintf("%s-%d", opts.DatasetID, len(corp.documents)+1),
				Title:      title,
				Path:       relPath,
				Content:    chunk,
				Snippet:    chunker.Snippet(chunk),
				Chunk:      i + 1,
				ChunkTotal: len(chunks),
			}, chunk)
		}
	}
	if len(corp.texts) == 0 {
		return nil, ErrNoContent
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	vectors, err := emb.Encode(ctx, corp.texts, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(corp.documents) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(corp.documents))
	}
	embedding.NormalizeAll(vectors)

	dimension := len(vectors[0])
	index, err := vecindex.New(dimension)
	if err != nil {
		return nil, err
	}
	if err := index.Add(vectors); err != nil {
		return nil, err
	}
	if index.Ntotal() != len(corp.documents) {
		return nil, fmt.Errorf("index holds %d vectors for %d documents", index.Ntotal(), len(corp.documents))
	}

	indexDir := filepath.Join(datasetDir, indexDirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, err
	}
	indexPath := filepath.Join(indexDir, indexFileName)
	if err := index.WriteFile(indexPath); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	metadata := domain.Metadata{
		DatasetID:   opts.DatasetID,
		Name:        opts.Name,
		Description: opts.Description,
		Model:       opts.Model,
		CreatedAt:   now,
		Stats: domain.Stats{
			TotalFiles:          indexedFiles,
			TotalChunks:         len(corp.documents),
			EmbeddingDimensions: dimension,
			IndexedAt:           now,
		},
		Documents: corp.documents,
	}
	metadataPath := filepath.Join(datasetDir, metadataFileName)
	if err := writeJSON(metadataPath, metadata); err != nil {
		return nil, err
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Dataset created from %s", opts.Source)
	}
	manifest := domain.Manifest{
		ID:          opts.DatasetID,
		Name:        opts.Name,
		Description: description,
		Index:       indexDirName,
		Metadata:    metadataFileName,
		DefaultTopK: defaultTopK,
	}
	if err := writeJSON(filepath.Join(datasetDir, manifestFileName), manifest); err != nil {
		return nil, err
	}

	absIndexDir, err := filepath.Abs(indexDir)
	if err != nil {
		absIndexDir = indexDir
	}
	absMetadata, err := filepath.Abs(metadataPath)
	if err != nil {
		absMetadata = metadataPath
	}

	built = true
	return &BuildResult{
		DatasetID:           opts.DatasetID,
		Documents:           indexedFiles,
		Chunks:              len(corp.documents),
		Model:               opts.Model,
		EmbeddingDimensions: dimension,
		IndexPath:           absIndexDir,
		MetadataPath:        absMetadata,
		DurationMs:          time.Since(start).Milliseconds(),
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
