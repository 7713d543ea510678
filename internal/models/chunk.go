package models

// Chunk is a bounded word-count slice of a document. Index is 1-based.
// Chunks are consumed by the embedder within one indexing pass and never stored on their own.
type Chunk struct {
	SourceID    string `json:"source_id"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text"`
	WordCount   int    `json:"word_count"`
}
