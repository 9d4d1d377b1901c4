package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Discover yields the source files to index. A single file is returned alone
// if its extension is supported; a directory is walked recursively and the
// matches returned in sorted order.
func Discover(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if supportedExtensions[strings.ToLower(filepath.Ext(source))] {
			return []string{source}, nil
		}
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// readText reads a file as UTF-8, dropping invalid byte sequences instead of
// failing the whole build on one badly encoded file.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// safeRelative returns path relative to base, or just the file name when the
// path is not a descendant of base.
func safeRelative(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return rel
}
