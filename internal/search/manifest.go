package search

import (
	"encoding/json"
	"fmt"
	"os"

	"knowledge-search/internal/domain"
)

// ReadManifest loads a dataset manifest. The manifest's index and metadata
// fields are relative to its own directory.
func ReadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if manifest.Index == "" || manifest.Metadata == "" {
		return nil, fmt.Errorf("manifest %s is missing index or metadata path", path)
	}
	if manifest.DefaultTopK <= 0 {
		manifest.DefaultTopK = 5
	}
	return &manifest, nil
}
