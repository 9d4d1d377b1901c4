package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knowledge-search/internal/dataset"
	"knowledge-search/internal/domain"
	"knowledge-search/internal/embedding"
	"knowledge-search/internal/vecindex"
)

func openLocal(modelID string) (embedding.Embedder, error) {
	return embedding.NewHashProvider(modelID, 64), nil
}

// seqWords builds text of n distinct words so every chunk gets a unique
// token multiset.
func seqWords(prefix string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return strings.Join(words, " ")
}

// buildFixture creates a real two-file bundle and returns its index dir and
// metadata path.
func buildFixture(t *testing.T) (string, string, *domain.Metadata) {
	t.Helper()
	source := t.TempDir()
	files := map[string]string{
		"cooking.txt": seqWords("broth", 150),
		"sailing.txt": seqWords("mainsail", 150),
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(source, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	output := t.TempDir()
	result, err := dataset.Build(context.Background(), embedding.NewHashProvider("local-hash-v1", 64), dataset.BuildOptions{
		Source:       source,
		DatasetID:    "fixture",
		OutputDir:    output,
		Name:         "Fixture",
		Model:        "local-hash-v1",
		ChunkSize:    64,
		ChunkOverlap: 8,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	var metadata domain.Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		t.Fatal(err)
	}
	return result.IndexPath, result.MetadataPath, &metadata
}

func TestRunRoundTrip(t *testing.T) {
	indexDir, metadataPath, metadata := buildFixture(t)

	// query with a chunk's exact text: that chunk must rank first
	target := metadata.Documents[len(metadata.Documents)-1]
	resp, err := Run(context.Background(), openLocal, Options{
		IndexPath:    indexDir,
		MetadataPath: metadataPath,
		Query:        target.Content,
		TopK:         5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("no results")
	}
	top := resp.Results[0]
	if top.ID != target.ID {
		t.Fatalf("expected %s on top, got %s (score %f)", target.ID, top.ID, top.Score)
	}
	for _, r := range resp.Results[1:] {
		if r.Score > top.Score {
			t.Fatal("results not in descending score order")
		}
	}
	if resp.DatasetSize != len(metadata.Documents) {
		t.Errorf("dataset_size %d, expected %d", resp.DatasetSize, len(metadata.Documents))
	}
}

func TestRunClampsTopK(t *testing.T) {
	indexDir, metadataPath, metadata := buildFixture(t)
	resp, err := Run(context.Background(), openLocal, Options{
		IndexPath:    indexDir,
		MetadataPath: metadataPath,
		Query:        "broth",
		TopK:         10000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) > len(metadata.Documents) {
		t.Fatalf("got %d results for %d documents", len(resp.Results), len(metadata.Documents))
	}

	resp, err = Run(context.Background(), openLocal, Options{
		IndexPath:    indexDir,
		MetadataPath: metadataPath,
		Query:        "broth",
		TopK:         0,
	})
	if err != nil {
		t.Fatalf("Run with k=0: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("k=0 should clamp to 1, got %d results", len(resp.Results))
	}
}

func TestRunBareArrayMetadata(t *testing.T) {
	indexDir, metadataPath, metadata := buildFixture(t)
	barePath := filepath.Join(t.TempDir(), "bare.json")
	data, err := json.Marshal(metadata.Documents)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(barePath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_ = metadataPath

	resp, err := Run(context.Background(), openLocal, Options{
		IndexPath:    indexDir,
		MetadataPath: barePath,
		Query:        "mainsail",
		TopK:         3,
		DefaultModel: "local-hash-v1",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("no results from bare-array metadata")
	}
}

func TestRunSkipsOutOfRangePositions(t *testing.T) {
	indexDir, metadataPath, metadata := buildFixture(t)
	// truncate the document list so the index has more vectors than
	// metadata entries
	short := metadata.Documents[:1]
	shortPath := filepath.Join(t.TempDir(), "short.json")
	payload := map[string]any{"model": "local-hash-v1", "documents": short}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shortPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_ = metadataPath

	resp, err := Run(context.Background(), openLocal, Options{
		IndexPath:    indexDir,
		MetadataPath: shortPath,
		Query:        "anything at all",
		TopK:         50,
	})
	if err != nil {
		t.Fatalf("mismatched bundle should not fail: %v", err)
	}
	if len(resp.Results) > 1 {
		t.Fatalf("expected at most 1 mappable result, got %d", len(resp.Results))
	}
}

func TestRunEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	empty, err := vecindex.New(8)
	if err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "docs.index")
	if err := empty.WriteFile(indexPath); err != nil {
		t.Fatal(err)
	}
	metadataPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metadataPath, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Run(context.Background(), openLocal, Options{
		IndexPath:    indexPath,
		MetadataPath: metadataPath,
		Query:        "q",
		TopK:         5,
		DefaultModel: "local-hash-v1",
	})
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestRunMissingPaths(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(real, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), openLocal, Options{
		IndexPath:    filepath.Join(dir, "missing"),
		MetadataPath: real,
		Query:        "q",
	})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}

	_, err = Run(context.Background(), openLocal, Options{
		IndexPath:    dir,
		MetadataPath: filepath.Join(dir, "missing.json"),
		Query:        "q",
	})
	if !errors.Is(err, ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}
}

func TestRunDirectoryWithoutIndexFiles(t *testing.T) {
	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metadataPath, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), openLocal, Options{
		IndexPath:    dir,
		MetadataPath: metadataPath,
		Query:        "q",
	})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadMetadataShapes(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`"just a string"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadMetadata(bad, "m"); !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("string payload: expected ErrInvalidMetadata, got %v", err)
	}

	noDocs := filepath.Join(dir, "nodocs.json")
	if err := os.WriteFile(noDocs, []byte(`{"model":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadMetadata(noDocs, "m"); !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("missing documents: expected ErrInvalidMetadata, got %v", err)
	}

	nullDocs := filepath.Join(dir, "nulldocs.json")
	if err := os.WriteFile(nullDocs, []byte(`{"model":"x","documents":null}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadMetadata(nullDocs, "m"); !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("null documents: expected ErrInvalidMetadata, got %v", err)
	}

	bare := filepath.Join(dir, "bare.json")
	if err := os.WriteFile(bare, []byte(`[{"id":"a-1","content":"hi"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, model, err := loadMetadata(bare, "fallback-model")
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if model != "fallback-model" || len(docs) != 1 {
		t.Fatalf("bare array parsed wrong: model=%q docs=%d", model, len(docs))
	}

	full := filepath.Join(dir, "full.json")
	if err := os.WriteFile(full, []byte(`{"model":"recorded","documents":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, model, err = loadMetadata(full, "fallback-model")
	if err != nil {
		t.Fatalf("full object: %v", err)
	}
	if model != "recorded" {
		t.Fatalf("expected recorded model, got %q", model)
	}
}

func TestResultFallbacks(t *testing.T) {
	dir := t.TempDir()
	idx, err := vecindex.New(64)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHashProvider("local-hash-v1", 64)
	vecs, err := emb.Encode(context.Background(), []string{"bare content with no title"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	embedding.NormalizeAll(vecs)
	if err := idx.Add(vecs); err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "docs.index")
	if err := idx.WriteFile(indexPath); err != nil {
		t.Fatal(err)
	}
	metadataPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metadataPath, []byte(`[{"content":"bare content with no title"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := Run(context.Background(), openLocal, Options{
		IndexPath:    indexPath,
		MetadataPath: metadataPath,
		Query:        "bare content",
		TopK:         1,
		DefaultModel: "local-hash-v1",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Title != "Document 0" {
		t.Errorf("expected generated title, got %q", r.Title)
	}
	if r.ID != "0" {
		t.Errorf("expected positional id, got %q", r.ID)
	}
	if r.Snippet != "bare content with no title" {
		t.Errorf("expected content-derived snippet, got %q", r.Snippet)
	}
}
