// Package retrieval answers nearest-neighbour queries against a collection and resolves
// each hit back to the chunk text it was computed from.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/docmap"
	"github.com/hyperjump/lens/internal/embedding"
	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/internal/vector"
	"github.com/hyperjump/lens/pkg/utils"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query cannot be empty")

// QueryEmbedder embeds a question with the model the collection was built with.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// searchable is the part of a collection a query reads.
type searchable interface {
	Search(ctx context.Context, query []float32, k int) ([]vector.VectorResult, error)
	Entry(ordinal int) (docmap.Entry, error)
	Manifest() collection.Manifest
}

// Engine runs retrieval queries.
type Engine struct {
	lookup            func(name string) (searchable, error)
	storage           storage.Storage
	embedder          QueryEmbedder
	defaultCollection string
	defaultK          int
	maxK              int
	logger            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped results.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = utils.OrNop(l) }
}

// WithLimits sets the k used when a request has none and the largest k accepted.
func WithLimits(defaultK, maxK int) Option {
	return func(e *Engine) {
		if defaultK > 0 {
			e.defaultK = defaultK
		}
		if maxK > 0 {
			e.maxK = maxK
		}
	}
}

// WithDefaultCollection sets the collection queried when a request names none.
func WithDefaultCollection(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.defaultCollection = name
		}
	}
}

// NewEngine creates a retrieval engine over the collections of registry. The store is
// only read when a collection does not keep chunk text inline.
func NewEngine(registry *collection.Registry, store storage.Storage, embedder QueryEmbedder, opts ...Option) *Engine {
	e := &Engine{
		lookup: func(name string) (searchable, error) {
			return registry.Get(name)
		},
		storage:           store,
		embedder:          embedder,
		defaultCollection: "default",
		defaultK:          5,
		maxK:              100,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query validates req, applies defaults and runs Retrieve.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.RetrievalResponse, error) {
	if err := req.Validate(e.defaultK, e.maxK); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyQuery, err)
	}
	if req.Collection == "" {
		req.Collection = e.defaultCollection
	}
	return e.Retrieve(ctx, req.Question, req.Collection, req.K)
}

// Retrieve embeds query, searches the named collection for its k nearest chunks and
// resolves each to its text. Hits that cannot be resolved are logged and skipped; a
// response with no results is not an error.
func (e *Engine) Retrieve(ctx context.Context, query, collectionName string, k int) (*models.RetrievalResponse, error) {
	start := time.Now()
	if query == "" {
		return nil, ErrEmptyQuery
	}
	coll, err := e.lookup(collectionName)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collectionName, err)
	}
	resp := &models.RetrievalResponse{
		Query:      query,
		Collection: collectionName,
		Results:    make([]*models.RetrievalResult, 0),
	}
	if k <= 0 {
		resp.QueryTime = time.Since(start).Milliseconds()
		return resp, nil
	}

	vec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := coll.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collectionName, err)
	}

	m := coll.Manifest()
	params := indexer.ChunkParams{Size: m.ChunkSize, HardCap: m.HardCap}
	docs := make(map[string]*models.Document)
	for _, hit := range hits {
		entry, err := coll.Entry(hit.Ordinal)
		if err != nil {
			e.logger.Warn("Skipping result",
				zap.Int("ordinal", hit.Ordinal),
				zap.Error(err))
			resp.Skipped++
			continue
		}
		text := entry.Text
		if text == "" {
			text, err = e.chunkText(ctx, docs, entry, params)
			if err != nil {
				e.logger.Warn("Skipping result",
					zap.String("source", entry.Source),
					zap.Int("chunk", entry.ChunkIndex),
					zap.Error(err))
				resp.Skipped++
				continue
			}
		}
		resp.Results = append(resp.Results, &models.RetrievalResult{
			Text:        text,
			SourceID:    entry.Source,
			ChunkIndex:  entry.ChunkIndex,
			TotalChunks: entry.TotalChunks,
			Distance:    hit.Distance,
		})
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// chunkText re-chunks the source document with the parameters the collection was built
// with. Documents are fetched once per query.
func (e *Engine) chunkText(ctx context.Context, docs map[string]*models.Document, entry docmap.Entry, params indexer.ChunkParams) (string, error) {
	doc, ok := docs[entry.Source]
	if !ok {
		var err error
		doc, err = e.storage.GetDocument(ctx, entry.Source)
		if err != nil {
			return "", fmt.Errorf("load source document: %w", err)
		}
		docs[entry.Source] = doc
	}
	ch, ok := indexer.ChunkAt(doc.ID, indexer.Preprocess(doc.Content), params, entry.ChunkIndex)
	if !ok {
		return "", fmt.Errorf("chunk %d out of range for %s", entry.ChunkIndex, entry.Source)
	}
	// Return only the prefix the vector was computed from.
	if entry.EmbeddedWords > 0 {
		return embedding.FirstWords(ch.Text, entry.EmbeddedWords), nil
	}
	return ch.Text, nil
}
