package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/docmap"
	"github.com/hyperjump/lens/internal/embedding"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/internal/vector"
	"github.com/hyperjump/lens/pkg/utils"
)

// Embedder is the part of embedding.Resilient the indexer needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (*embedding.Embedding, error)
	Dimensions() int
	Model() string
}

// Progress receives document counts while a run advances.
type Progress interface {
	Start(total int)
	Add(n int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int) {}
func (nopProgress) Add(int)   {}
func (nopProgress) Finish()   {}

// Options control one indexing run.
type Options struct {
	Collection     string
	Chunk          ChunkParams
	BatchSize      int
	Concurrency    int
	StoreChunkText bool
	IndexType      string
	// Append adds documents not yet present to the existing collection instead of
	// rebuilding it. The collection's manifest must match this run's parameters.
	Append bool
}

func (o Options) withDefaults() Options {
	if o.Collection == "" {
		o.Collection = "default"
	}
	if o.Chunk.Size <= 0 {
		o.Chunk.Size = DefaultChunkSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Indexer embeds the documents of a store into a named collection.
type Indexer struct {
	storage  storage.Storage
	embedder Embedder
	registry *collection.Registry
	progress Progress
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for per-document and per-chunk events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.OrNop(l) }
}

// WithProgress sets a progress reporter.
func WithProgress(p Progress) IndexerOption {
	return func(idx *Indexer) {
		if p != nil {
			idx.progress = p
		}
	}
}

// NewIndexer creates an indexer that publishes finished collections into registry.
func NewIndexer(store storage.Storage, embedder Embedder, registry *collection.Registry, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:  store,
		embedder: embedder,
		registry: registry,
		progress: nopProgress{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

type docStatus int

const (
	docProcessed docStatus = iota
	docSkipped
	docFailed
	docAlreadyIndexed
)

type docResult struct {
	status  docStatus
	vectors [][]float32
	entries []docmap.Entry
	dropped int
}

// Run pages through the document store, chunks and embeds every document and writes
// the collection snapshot once at the end. Documents of a batch are embedded
// concurrently and appended in input order, so ordinals follow store order.
//
// A cancelled context stops the run after saving the batches already appended; the
// context error is returned with the partial report. A dimension mismatch aborts the
// run without saving anything.
func (idx *Indexer) Run(ctx context.Context, opts Options) (*models.IndexReport, error) {
	start := time.Now()
	opts = opts.withDefaults()
	report := &models.IndexReport{Collection: opts.Collection}

	coll, present, err := idx.prepare(opts)
	if err != nil {
		return report, err
	}

	total, err := idx.storage.CountDocuments(ctx)
	if err != nil {
		return report, fmt.Errorf("count documents: %w", err)
	}
	idx.progress.Start(int(total))
	defer idx.progress.Finish()

	var runErr error
	for offset := 0; ; offset += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		docs, err := idx.storage.ListDocuments(ctx, offset, opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			return report, fmt.Errorf("list documents at offset %d: %w", offset, err)
		}
		if len(docs) == 0 {
			break
		}

		results, err := idx.processBatch(ctx, docs, present, opts)
		if err != nil {
			if isFatal(err) {
				return report, err
			}
			runErr = err
			break
		}
		for i, res := range results {
			tally(report, res)
			if len(res.vectors) == 0 {
				continue
			}
			if _, err := coll.Append(ctx, res.vectors, res.entries); err != nil {
				return report, fmt.Errorf("append %s: %w", docs[i].ID, err)
			}
		}
		idx.progress.Add(len(docs))
		if len(docs) < opts.BatchSize {
			break
		}
	}

	if err := coll.Save(idx.registry.Dir()); err != nil {
		return report, fmt.Errorf("save collection %s: %w", opts.Collection, err)
	}
	idx.registry.Publish(coll)
	report.TotalVectors = coll.Size()
	report.Duration = time.Since(start)

	idx.logger.Info("Index run finished",
		zap.String("collection", opts.Collection),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("chunks_indexed", report.ChunksIndexed),
		zap.Int("chunks_dropped", report.ChunksDropped),
		zap.Int("total_vectors", report.TotalVectors),
		zap.Duration("duration", report.Duration))
	return report, runErr
}

// prepare returns the collection to append to and the sources it already holds.
func (idx *Indexer) prepare(opts Options) (*collection.Collection, map[string]bool, error) {
	m := collection.Manifest{
		Name:       opts.Collection,
		Dim:        idx.embedder.Dimensions(),
		Model:      idx.embedder.Model(),
		ChunkSize:  opts.Chunk.Size,
		HardCap:    opts.Chunk.HardCap,
		IndexType:  opts.IndexType,
		StoresText: opts.StoreChunkText,
	}
	if opts.Append {
		existing, err := idx.registry.Get(opts.Collection)
		switch {
		case err == nil:
			current := existing.Manifest()
			if err := current.CheckCompatible(&m); err != nil {
				return nil, nil, err
			}
			clone, err := existing.Clone()
			if err != nil {
				return nil, nil, err
			}
			return clone, existing.Sources(), nil
		case !errors.Is(err, collection.ErrNotFound):
			return nil, nil, err
		}
	}
	coll, err := collection.New(m)
	if err != nil {
		return nil, nil, err
	}
	return coll, nil, nil
}

func (idx *Indexer) processBatch(ctx context.Context, docs []*models.Document, present map[string]bool, opts Options) ([]docResult, error) {
	results := make([]docResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, doc := range docs {
		if present[doc.ID] {
			results[i] = docResult{status: docAlreadyIndexed}
			continue
		}
		g.Go(func() error {
			res, err := idx.processDocument(gctx, doc, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processDocument returns an error only when the whole run must stop.
func (idx *Indexer) processDocument(ctx context.Context, doc *models.Document, opts Options) (docResult, error) {
	chunks := Chunk(doc.ID, Preprocess(doc.Content), opts.Chunk)
	if len(chunks) == 0 {
		idx.logger.Warn("Skipping document",
			zap.String("source", doc.ID),
			zap.Error(ErrEmptyDocument))
		return docResult{status: docSkipped}, nil
	}

	res := docResult{status: docProcessed}
	for _, ch := range chunks {
		emb, err := idx.embedder.Embed(ctx, ch.Text)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return docResult{}, ctx.Err()
			case errors.Is(err, embedding.ErrDimensionMismatch):
				return docResult{}, fmt.Errorf("embed %s chunk %d: %w", doc.ID, ch.Index, err)
			case errors.Is(err, embedding.ErrExhausted):
				idx.logger.Warn("Dropping chunk",
					zap.String("source", doc.ID),
					zap.Int("chunk", ch.Index),
					zap.Error(err))
				res.dropped++
				continue
			default:
				idx.logger.Warn("Failed to embed document",
					zap.String("source", doc.ID),
					zap.Int("chunk", ch.Index),
					zap.Error(err))
				return docResult{status: docFailed, dropped: res.dropped}, nil
			}
		}
		entry := docmap.Entry{Source: doc.ID, ChunkIndex: ch.Index, TotalChunks: ch.TotalChunks}
		if opts.StoreChunkText {
			entry.Text = emb.Text
		}
		if emb.Truncated {
			entry.EmbeddedWords = len(embedding.SplitWords(emb.Text))
			idx.logger.Debug("Chunk truncated to fit model",
				zap.String("source", doc.ID),
				zap.Int("chunk", ch.Index),
				zap.Int("attempts", emb.Attempts))
		}
		res.vectors = append(res.vectors, emb.Vector)
		res.entries = append(res.entries, entry)
	}
	if len(res.vectors) == 0 {
		res.status = docFailed
	}
	return res, nil
}

func tally(r *models.IndexReport, res docResult) {
	switch res.status {
	case docProcessed:
		r.Processed++
	case docSkipped:
		r.Skipped++
	case docFailed:
		r.Failed++
	}
	r.ChunksIndexed += len(res.vectors)
	r.ChunksDropped += res.dropped
}

func isFatal(err error) bool {
	return errors.Is(err, embedding.ErrDimensionMismatch) || errors.Is(err, vector.ErrDimensionMismatch)
}
