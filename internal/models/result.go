package models

import (
	"fmt"
	"time"
)

// QueryRequest is a retrieval request.
type QueryRequest struct {
	Question   string `json:"question"`
	Collection string `json:"collection,omitempty"`
	K          int    `json:"k,omitempty"`
}

// Validate checks the question and clamps K into [1, maxK], using defaultK when unset.
func (q *QueryRequest) Validate(defaultK, maxK int) error {
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}

// RetrievalResult is one resolved nearest-neighbour chunk.
type RetrievalResult struct {
	Text        string  `json:"text"`
	SourceID    string  `json:"source_id"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Distance    float64 `json:"distance"`
}

// RetrievalResponse holds the ordered results of a query. Results is empty, never nil,
// when nothing could be resolved.
type RetrievalResponse struct {
	Query      string             `json:"query"`
	Collection string             `json:"collection"`
	Results    []*RetrievalResult `json:"results"`
	Skipped    int                `json:"skipped,omitempty"`
	QueryTime  int64              `json:"query_time_ms"`
}

// Empty reports whether no result survived resolution.
func (r *RetrievalResponse) Empty() bool { return len(r.Results) == 0 }

// IndexReport summarizes an indexing run.
type IndexReport struct {
	Collection    string        `json:"collection"`
	Processed     int           `json:"processed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	ChunksIndexed int           `json:"chunks_indexed"`
	ChunksDropped int           `json:"chunks_dropped"`
	TotalVectors  int           `json:"total_vectors"`
	Duration      time.Duration `json:"duration_ns"`
}
