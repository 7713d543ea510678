package pointstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/embedding"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/pkg/utils"
)

// ErrEmptyLabel is returned by Observe for a blank label.
var ErrEmptyLabel = errors.New("label cannot be empty")

// contributionWords bounds the document text recorded for a sighting.
const contributionWords = 60

// Embedder embeds the representative text of a new label.
type Embedder interface {
	Embed(ctx context.Context, text string) (*embedding.Embedding, error)
	Dimensions() int
}

// Merger records label sightings in a Store. Sightings of one label are serialized
// within the process; concurrent writers in other processes are not coordinated.
type Merger struct {
	store    Store
	embedder Embedder
	prefix   string
	locks    *keyedMutex
	ready    sync.Map
	logger   *zap.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) MergerOption {
	return func(m *Merger) { m.logger = utils.OrNop(l) }
}

// WithCollectionPrefix sets the prefix used by CollectionFor.
func WithCollectionPrefix(prefix string) MergerOption {
	return func(m *Merger) { m.prefix = prefix }
}

// NewMerger creates a merger writing to store.
func NewMerger(store Store, embedder Embedder, opts ...MergerOption) *Merger {
	m := &Merger{
		store:    store,
		embedder: embedder,
		prefix:   "labels_",
		locks:    newKeyedMutex(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CollectionFor returns the point collection holding the labels of field.
func (m *Merger) CollectionFor(field string) string {
	return m.prefix + field
}

// Observe records that sourceURL mentioned label with text. The first sighting embeds
// text (or the label when text is empty) and stores a new point; later sightings append
// the contribution without re-embedding, so the vector stays at the label's first-seen
// position. An identical contribution is not recorded twice. created reports whether a
// new point was written.
func (m *Merger) Observe(ctx context.Context, collection, label, text, sourceURL string) (created bool, err error) {
	label = strings.TrimSpace(label)
	if NormalizeLabel(label) == "" {
		return false, ErrEmptyLabel
	}
	if err := m.ensureCollection(ctx, collection); err != nil {
		return false, err
	}
	id := LabelID(label)
	unlock := m.locks.Lock(collection + "/" + id)
	defer unlock()

	contrib := Contribution{Text: text, SourceURL: sourceURL}
	existing, err := m.store.Retrieve(ctx, collection, id)
	if err != nil {
		return false, fmt.Errorf("retrieve label %q: %w", label, err)
	}
	if existing != nil {
		if existing.Payload.Has(contrib) {
			return false, nil
		}
		payload := existing.Payload
		payload.Contributions = append(payload.Contributions, contrib)
		if err := m.store.SetPayloadOnly(ctx, collection, id, payload); err != nil {
			return false, fmt.Errorf("update label %q: %w", label, err)
		}
		return false, nil
	}

	repr := text
	if strings.TrimSpace(repr) == "" {
		repr = label
	}
	point := &Point{
		ID: id,
		Payload: Payload{
			Label:         label,
			Field:         strings.TrimPrefix(collection, m.prefix),
			Contributions: []Contribution{contrib},
		},
	}
	emb, err := m.embedder.Embed(ctx, repr)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		m.logger.Warn("Storing label without vector",
			zap.String("label", label),
			zap.String("source", sourceURL),
			zap.Error(err))
	} else {
		point.Vector = emb.Vector
	}
	if err := m.store.Upsert(ctx, collection, point); err != nil {
		return false, fmt.Errorf("store label %q: %w", label, err)
	}
	return true, nil
}

func (m *Merger) ensureCollection(ctx context.Context, collection string) error {
	if _, ok := m.ready.Load(collection); ok {
		return nil
	}
	unlock := m.locks.Lock("collection/" + collection)
	defer unlock()
	if _, ok := m.ready.Load(collection); ok {
		return nil
	}
	exists, err := m.store.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		if err := m.store.CreateCollection(ctx, collection, m.embedder.Dimensions()); err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
	}
	m.ready.Store(collection, struct{}{})
	return nil
}

// SyncReport counts the outcome of a SyncDocuments call.
type SyncReport struct {
	Documents int `json:"documents"`
	Sightings int `json:"sightings"`
	Created   int `json:"created"`
	Failed    int `json:"failed"`
}

// SyncDocuments observes every label of every document. Fields listed in ignoreFields
// are skipped. A failed sighting is logged and counted; only cancellation stops the sync.
func (m *Merger) SyncDocuments(ctx context.Context, docs []*models.Document, ignoreFields []string) (*SyncReport, error) {
	ignored := make(map[string]bool, len(ignoreFields))
	for _, f := range ignoreFields {
		ignored[f] = true
	}
	report := &SyncReport{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Documents++
		text := contributionText(doc)
		for _, field := range doc.LabelFields() {
			if ignored[field] {
				continue
			}
			for _, label := range doc.Labels(field) {
				report.Sightings++
				created, err := m.Observe(ctx, m.CollectionFor(field), label, text, doc.SourceURL())
				if err != nil {
					if ctx.Err() != nil {
						return report, ctx.Err()
					}
					m.logger.Warn("Failed to merge label",
						zap.String("source", doc.ID),
						zap.String("field", field),
						zap.String("label", label),
						zap.Error(err))
					report.Failed++
					continue
				}
				if created {
					report.Created++
				}
			}
		}
	}
	return report, nil
}

// contributionText prefers the document summary, then its title, then its opening words.
func contributionText(doc *models.Document) string {
	if s, ok := doc.Metadata[models.MetaSummary].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	if doc.Title != "" {
		return doc.Title
	}
	return embedding.FirstWords(doc.Content, contributionWords)
}
