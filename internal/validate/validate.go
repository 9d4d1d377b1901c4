// Package validate inspects persisted index files for structural soundness
// without running a query.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"knowledge-search/internal/vecindex"
)

var (
	// ErrNotFound is returned when the index directory does not exist.
	ErrNotFound = errors.New("index directory does not exist")
	// ErrNotADirectory is returned when the index path is a file.
	ErrNotADirectory = errors.New("index path is not a directory")
	// ErrNoIndexFiles is returned when the directory holds no index files.
	ErrNoIndexFiles = errors.New("no index files found")
)

// IndexReader loads an index file. A nil reader means the index engine is
// not available and only file-level checks run.
type IndexReader func(path string) (*vecindex.Flat, error)

// Properties are the structural attributes of a loaded index.
type Properties struct {
	IsTrained bool `json:"is_trained"`
	Ntotal    int  `json:"ntotal"`
	D         int  `json:"d"`
}

// Report is the validation outcome. Status is "ok" or "error"; warnings are
// non-fatal findings on an otherwise readable index.
type Report struct {
	Status     string      `json:"status"`
	IndexPath  string      `json:"index_path,omitempty"`
	IndexFile  string      `json:"index_file,omitempty"`
	IndexFiles []string    `json:"index_files,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	Warning    string      `json:"warning,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    string      `json:"details,omitempty"`
}

// Inspect checks the index directory and, when a reader is supplied, loads
// the first index file and reports its properties. Structural path problems
// return an error; a readable-but-suspect index returns status ok with a
// warning; a corrupt file returns a status error report alongside the error.
func Inspect(indexDir string, read IndexReader) (*Report, error) {
	info, err := os.Stat(indexDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, indexDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, indexDir)
	}

	var files []string
	for _, ext := range vecindex.Extensions {
		matches, err := filepath.Glob(filepath.Join(indexDir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return &Report{
			Status:  "error",
			Error:   fmt.Sprintf("no index files found in %s", indexDir),
			Details: "expected files with .index or .faiss extension",
		}, fmt.Errorf("%w: %s", ErrNoIndexFiles, indexDir)
	}
	sort.Strings(files)

	if read == nil {
		return &Report{
			Status:     "ok",
			IndexPath:  indexDir,
			IndexFiles: files,
			Warning:    "index engine not available - could not inspect index properties",
		}, nil
	}

	indexFile := files[0]
	index, err := read(indexFile)
	if err != nil {
		return &Report{
			Status:    "error",
			Error:     fmt.Sprintf("failed to read index file: %v", err),
			IndexFile: indexFile,
		}, err
	}

	report := &Report{
		Status:    "ok",
		IndexPath: indexDir,
		IndexFile: indexFile,
		Properties: &Properties{
			IsTrained: index.IsTrained(),
			Ntotal:    index.Ntotal(),
			D:         index.Dimension(),
		},
	}
	if !index.IsTrained() {
		report.Warning = "index is not trained"
	}
	if index.Ntotal() == 0 {
		report.Warning = "index contains no vectors"
	}
	return report, nil
}
