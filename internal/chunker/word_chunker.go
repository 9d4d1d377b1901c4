package chunker

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	titleMaxChars   = 120
	snippetMaxChars = 200
)

// ErrChunkSize is returned when the requested window size is not positive.
var ErrChunkSize = errors.New("chunk size must be greater than zero")

// WordChunker splits text into overlapping windows of whitespace-delimited
// words.
type WordChunker struct {
	size    int
	overlap int
}

// NewWordChunker validates the window parameters. An overlap at or above the
// window size is clamped to a quarter of the size rather than rejected.
func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if size <= 0 {
		return nil, ErrChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into word windows joined by single spaces. The window
// advances by size-overlap words (at least one) and stops once a window has
// reached the final word, so the tail is emitted exactly once. Text with no
// words yields nil.
func (c *WordChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.size - c.overlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if start+c.size >= len(words) {
			break
		}
	}
	return chunks
}

// Title extracts a display title from a document: the first non-blank line,
// with a leading heading marker stripped for markdown files, truncated to 120
// characters otherwise. Documents with no non-blank line fall back to a title
// derived from the file name.
func Title(path, text string) string {
	markdown := strings.EqualFold(filepath.Ext(path), ".md")
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if markdown && strings.HasPrefix(stripped, "#") {
			return strings.TrimSpace(strings.TrimLeft(stripped, "#"))
		}
		return truncate(stripped, titleMaxChars)
	}
	return titleFromFilename(path)
}

// Snippet returns the first 200 characters of a chunk, trimmed.
func Snippet(chunk string) string {
	return strings.TrimSpace(truncate(chunk, snippetMaxChars))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func titleFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.Fields(strings.ReplaceAll(stem, "-", " "))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		for j := 1; j < len(runes); j++ {
			runes[j] = unicode.ToLower(runes[j])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
