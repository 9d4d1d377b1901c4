package domain

// Document is one indexed chunk of a source file. Its position in the
// dataset's document list matches its vector's position in the index.
type Document struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Content    string `json:"content"`
	Snippet    string `json:"snippet"`
	Chunk      int    `json:"chunk"`
	ChunkTotal int    `json:"chunk_total"`
}

// Stats summarizes a built dataset.
type Stats struct {
	TotalFiles          int    `json:"totalFiles"`
	TotalChunks         int    `json:"totalChunks"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	IndexedAt           string `json:"indexedAt"`
}

// Metadata is the dataset bundle document persisted as metadata.json.
// Documents are ordered: document i corresponds to index vector i.
type Metadata struct {
	DatasetID   string     `json:"datasetId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Model       string     `json:"model"`
	CreatedAt   string     `json:"createdAt"`
	Stats       Stats      `json:"stats"`
	Documents   []Document `json:"documents"`
}

// Manifest links the metadata and index files of one dataset directory.
// The index and metadata fields are paths relative to the manifest.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Index       string `json:"index"`
	Metadata    string `json:"metadata"`
	DefaultTopK int    `json:"defaultTopK"`
}

// SearchResult is one ranked match returned by the query engine.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
}
