// Package indexer provides document chunking and the batch indexing pipeline.
package indexer

import (
	"errors"
	"strings"

	"github.com/hyperjump/lens/internal/models"
)

// DefaultChunkSize is the word count of a chunk when ChunkParams.Size is unset.
const DefaultChunkSize = 50

// ErrEmptyDocument is returned for a document that yields no chunks.
var ErrEmptyDocument = errors.New("document has no words to chunk")

// ChunkParams controls chunk boundaries. HardCap, when positive, trims any chunk
// longer than HardCap words; the trimmed tail is not indexed.
type ChunkParams struct {
	Size    int `json:"chunkSize"`
	HardCap int `json:"hardCap"`
}

func (p ChunkParams) size() int {
	if p.Size <= 0 {
		return DefaultChunkSize
	}
	return p.Size
}

// Chunk splits text into consecutive chunks of at most p.Size words. Words are
// whitespace-separated; chunks do not overlap and cover the text in order.
// Empty text yields no chunks.
func Chunk(sourceID, text string, p ChunkParams) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	size := p.size()
	total := (len(words) + size - 1) / size
	chunks := make([]models.Chunk, 0, total)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[i:end]
		if p.HardCap > 0 && len(chunkWords) > p.HardCap {
			chunkWords = chunkWords[:p.HardCap]
		}
		chunks = append(chunks, models.Chunk{
			SourceID:    sourceID,
			Index:       len(chunks) + 1,
			TotalChunks: total,
			Text:        strings.Join(chunkWords, " "),
			WordCount:   len(chunkWords),
		})
	}
	return chunks
}

// ChunkAt re-runs Chunk and returns the chunk with the given 1-based index.
func ChunkAt(sourceID, text string, p ChunkParams, index int) (models.Chunk, bool) {
	chunks := Chunk(sourceID, text, p)
	if index < 1 || index > len(chunks) {
		return models.Chunk{}, false
	}
	return chunks[index-1], true
}
