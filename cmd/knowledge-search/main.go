// knowledge-search builds and queries local semantic-search datasets.
//
// Subcommands:
//
//	index           build a dataset bundle from text/markdown files
//	search          run a top-k similarity query against a bundle
//	validate-index  inspect a persisted index without querying it
//	health-check    report collaborator availability
//
// All output is JSON: results on stdout, errors on stderr with exit code 1.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"knowledge-search/internal/chunker"
	"knowledge-search/internal/config"
	"knowledge-search/internal/dataset"
	"knowledge-search/internal/embedding"
	"knowledge-search/internal/search"
	"knowledge-search/internal/validate"
	"knowledge-search/internal/vecindex"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "index":
		runIndex(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	case "validate-index":
		runValidate(os.Args[2:])
	case "health-check":
		runHealthCheck(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: knowledge-search <index|search|validate-index|health-check> [flags]")
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func embedderOptions(cfg *config.AppConfig) embedding.Options {
	return embedding.Options{
		BaseURL:        cfg.Embedder.BaseURL,
		APIKeyEnv:      cfg.Embedder.APIKeyEnv,
		Timeout:        time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		LocalDimension: cfg.Embedder.LocalDimensions,
	}
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	source := fs.String("source", "", "Source file or directory")
	datasetID := fs.String("dataset-id", "", "Dataset identifier (lowercase, hyphenated)")
	output := fs.String("output", "./datasets", "Output datasets directory")
	name := fs.String("name", "", "Dataset display name")
	description := fs.String("description", "", "Dataset description")
	model := fs.String("model", "", "Embedding model name (default from config)")
	chunkSize := fs.Int("chunk-size", 512, "Number of words per chunk (64-4096)")
	chunkOverlap := fs.Int("chunk-overlap", 64, "Number of overlapping words between chunks (0-1024)")
	cfgPath := fs.String("config", "", "Path to config YAML")
	_ = fs.Parse(args)

	if *source == "" || *datasetID == "" || *name == "" {
		failBuild(errors.New("flags -source, -dataset-id and -name are required"))
	}
	if *chunkSize < 64 || *chunkSize > 4096 {
		failBuild(fmt.Errorf("chunk size must be between 64 and 4096, got %d", *chunkSize))
	}
	if *chunkOverlap < 0 || *chunkOverlap > 1024 {
		failBuild(fmt.Errorf("chunk overlap must be between 0 and 1024, got %d", *chunkOverlap))
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		failBuild(err)
	}
	if *model == "" {
		*model = cfg.Embedder.DefaultModel
	}
	emb, err := embedding.Open(*model, embedderOptions(cfg))
	if err != nil {
		failBuild(err)
	}

	result, err := dataset.Build(context.Background(), emb, dataset.BuildOptions{
		Source:       *source,
		DatasetID:    *datasetID,
		OutputDir:    *output,
		Name:         *name,
		Description:  *description,
		Model:        *model,
		ChunkSize:    *chunkSize,
		ChunkOverlap: *chunkOverlap,
		BatchSize:    cfg.Embedder.BatchSize,
	})
	if err != nil {
		failBuild(err)
	}
	printJSON(os.Stdout, result)
}

func failBuild(err error) {
	printJSON(os.Stderr, map[string]string{"error": err.Error()})
	os.Exit(1)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	indexPath := fs.String("index", "", "Path to index file or directory")
	metadataPath := fs.String("metadata", "", "Path to metadata JSON file")
	query := fs.String("query", "", "Search query text")
	k := fs.Int("k", 5, "Number of results to return")
	cfgPath := fs.String("config", "", "Path to config YAML")
	_ = fs.Parse(args)

	if *indexPath == "" || *metadataPath == "" || *query == "" {
		failSearch(errors.New("flags -index, -metadata and -query are required"))
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		failSearch(err)
	}
	opener := func(modelID string) (embedding.Embedder, error) {
		return embedding.Open(modelID, embedderOptions(cfg))
	}

	resp, err := search.Run(context.Background(), opener, search.Options{
		IndexPath:    *indexPath,
		MetadataPath: *metadataPath,
		Query:        *query,
		TopK:         *k,
		DefaultModel: cfg.Embedder.DefaultModel,
	})
	if err != nil {
		failSearch(err)
	}
	printJSON(os.Stdout, resp)
}

func failSearch(err error) {
	printJSON(os.Stderr, map[string]string{
		"error":      err.Error(),
		"error_type": errorType(err),
	})
	os.Exit(1)
}

// errorType names the failure category for machine consumers.
func errorType(err error) string {
	switch {
	case errors.Is(err, search.ErrIndexNotFound):
		return "IndexNotFound"
	case errors.Is(err, search.ErrMetadataNotFound):
		return "MetadataNotFound"
	case errors.Is(err, search.ErrInvalidMetadata):
		return "InvalidMetadata"
	case errors.Is(err, search.ErrEmptyIndex):
		return "EmptyIndex"
	case errors.Is(err, embedding.ErrProviderUnavailable):
		return "EmbeddingProviderUnavailable"
	case errors.Is(err, vecindex.ErrBadFile):
		return "BadIndexFile"
	case errors.Is(err, vecindex.ErrDimension):
		return "DimensionMismatch"
	case errors.Is(err, chunker.ErrChunkSize):
		return "ConfigError"
	default:
		return "Error"
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate-index", flag.ExitOnError)
	indexPath := fs.String("index", "", "Path to index directory")
	_ = fs.Parse(args)

	if *indexPath == "" {
		printJSON(os.Stdout, validate.Report{Status: "error", Error: "flag -index is required"})
		os.Exit(1)
	}
	report, err := validate.Inspect(*indexPath, vecindex.ReadFile)
	if err != nil {
		if report == nil {
			report = &validate.Report{Status: "error", Error: err.Error()}
		}
		printJSON(os.Stdout, report)
		os.Exit(1)
	}
	printJSON(os.Stdout, report)
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health-check", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config YAML")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		printJSON(os.Stderr, map[string]string{"status": "unhealthy", "error": err.Error()})
		os.Exit(1)
	}

	deps := map[string]string{
		"index_engine":   "available",
		"local_embedder": "available",
	}
	if _, err := embedding.NewOpenAIProvider(cfg.Embedder.DefaultModel, embedderOptions(cfg)); err != nil {
		deps["remote_embedder"] = "not_configured"
	} else {
		deps["remote_embedder"] = "available"
	}
	printJSON(os.Stdout, map[string]any{
		"status":       "healthy",
		"go_version":   runtime.Version(),
		"dependencies": deps,
	})
}

func printJSON(w *os.File, v any) {
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
