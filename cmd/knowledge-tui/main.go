// knowledge-tui opens one dataset bundle and serves interactive queries in
// the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"knowledge-search/internal/config"
	"knowledge-search/internal/embedding"
	"knowledge-search/internal/search"
	"knowledge-search/internal/tui"
)

// datasetPort adapts the query engine to the TUI's SearchPort.
type datasetPort struct {
	opener       search.EmbedderOpener
	indexPath    string
	metadataPath string
	defaultModel string
}

func (p *datasetPort) Search(query string, topK int) (*search.Response, error) {
	return search.Run(context.Background(), p.opener, search.Options{
		IndexPath:    p.indexPath,
		MetadataPath: p.metadataPath,
		Query:        query,
		TopK:         topK,
		DefaultModel: p.defaultModel,
	})
}

func main() {
	_ = godotenv.Load()

	datasetDir := flag.String("dataset", "", "Path to a dataset directory (uses its manifest)")
	indexPath := flag.String("index", "", "Path to index file or directory")
	metadataPath := flag.String("metadata", "", "Path to metadata JSON file")
	topK := flag.Int("k", 0, "Results per query (default from manifest, else 5)")
	cfgPath := flag.String("config", "", "Path to config YAML")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if *cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(*cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	label := "dataset"
	if *datasetDir != "" {
		manifest, err := search.ReadManifest(filepath.Join(*datasetDir, "manifest.json"))
		if err != nil {
			log.Fatalf("failed to read manifest: %v", err)
		}
		*indexPath = filepath.Join(*datasetDir, manifest.Index)
		*metadataPath = filepath.Join(*datasetDir, manifest.Metadata)
		if *topK == 0 {
			*topK = manifest.DefaultTopK
		}
		label = fmt.Sprintf("%s — %s", manifest.ID, manifest.Name)
	}
	if *indexPath == "" || *metadataPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: knowledge-tui --dataset=dir | --index=path --metadata=path")
		os.Exit(1)
	}

	port := &datasetPort{
		opener: func(modelID string) (embedding.Embedder, error) {
			return embedding.Open(modelID, embedding.Options{
				BaseURL:        cfg.Embedder.BaseURL,
				APIKeyEnv:      cfg.Embedder.APIKeyEnv,
				Timeout:        time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
				LocalDimension: cfg.Embedder.LocalDimensions,
			})
		},
		indexPath:    *indexPath,
		metadataPath: *metadataPath,
		defaultModel: cfg.Embedder.DefaultModel,
	}

	m := tui.New(port, label, *topK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
