package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/pkg/utils"
)

// Options sizes the rankings of a report.
type Options struct {
	// TopN and BottomN bound SimilarPairs and GapPairs.
	TopN    int
	BottomN int
	// TopK bounds TopLabels and Underserved; gap pairs are drawn from the TopK labels.
	TopK         int
	IgnoreFields []string
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.BottomN <= 0 {
		o.BottomN = 5
	}
	if o.TopK <= 0 {
		o.TopK = 10
	}
	return o
}

// FieldReport is the analysis of one label field.
type FieldReport struct {
	Field        string       `json:"field"`
	Metric       string       `json:"metric"`
	Labels       int          `json:"labels"`
	WithVectors  int          `json:"labels_with_vectors"`
	TopLabels    []LabelCount `json:"top_labels"`
	Underserved  []LabelCount `json:"underserved"`
	SimilarPairs []LabelPair  `json:"similar_pairs"`
	GapPairs     []LabelPair  `json:"gap_pairs"`
}

// Report is the analysis of every label field of a document set.
type Report struct {
	Collection  string        `json:"collection,omitempty"`
	Documents   int           `json:"documents"`
	Fields      []FieldReport `json:"fields"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Field returns the report of the named field, or nil.
func (r *Report) Field(name string) *FieldReport {
	for i := range r.Fields {
		if r.Fields[i].Field == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// Build analyses docs. docVectors holds one vector per document id and may be empty,
// in which case label similarity falls back to document co-occurrence.
func Build(docs []*models.Document, docVectors map[string][]float32, opts Options) *Report {
	opts = opts.withDefaults()
	ignored := make(map[string]bool, len(opts.IgnoreFields))
	for _, f := range opts.IgnoreFields {
		ignored[f] = true
	}
	fieldSet := make(map[string]bool)
	for _, doc := range docs {
		for _, f := range doc.LabelFields() {
			if !ignored[f] {
				fieldSet[f] = true
			}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for f := range fieldSet {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	report := &Report{Documents: len(docs), Fields: make([]FieldReport, 0, len(fields)), GeneratedAt: time.Now()}
	for _, field := range fields {
		report.Fields = append(report.Fields, buildField(docs, docVectors, field, opts))
	}
	return report
}

func buildField(docs []*models.Document, docVectors map[string][]float32, field string, opts Options) FieldReport {
	members := Members(docs, field)
	freq := Frequencies(members)
	centroids := Centroids(members, docVectors)
	sim := SelectSimilarity(members, centroids)

	labels := make([]string, 0, len(members))
	for l := range members {
		labels = append(labels, l)
	}
	top := TopLabels(freq, opts.TopK)
	frequent := make([]string, 0, len(top))
	for _, lc := range top {
		frequent = append(frequent, lc.Label)
	}

	return FieldReport{
		Field:        field,
		Metric:       sim.Name(),
		Labels:       len(members),
		WithVectors:  len(centroids),
		TopLabels:    top,
		Underserved:  Underserved(freq, opts.TopK),
		SimilarPairs: nonNil(SimilarPairs(Pairs(labels, sim), opts.TopN)),
		GapPairs:     nonNil(GapPairs(Pairs(frequent, sim), opts.BottomN)),
	}
}

func nonNil(p []LabelPair) []LabelPair {
	if p == nil {
		return []LabelPair{}
	}
	return p
}

// Service builds reports from the document store and a collection's vectors.
type Service struct {
	storage  storage.Storage
	registry *collection.Registry
	opts     Options
	pageSize int
	logger   *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = utils.OrNop(l) }
}

// NewService creates a report service. opts supplies the default ranking sizes and
// ignored fields.
func NewService(store storage.Storage, registry *collection.Registry, opts Options, sopts ...ServiceOption) *Service {
	s := &Service{storage: store, registry: registry, opts: opts, pageSize: 200, logger: zap.NewNop()}
	for _, o := range sopts {
		o(s)
	}
	return s
}

// Report analyses every stored document. Per-document vectors come from the named
// collection; when it does not exist the report uses co-occurrence only. A non-nil
// ignoreFields replaces the configured list.
func (s *Service) Report(ctx context.Context, collectionName string, ignoreFields []string) (*Report, error) {
	docs, err := s.Documents(ctx)
	if err != nil {
		return nil, err
	}
	var vectors map[string][]float32
	if collectionName != "" {
		coll, err := s.registry.Get(collectionName)
		switch {
		case err == nil:
			vectors = coll.DocumentVectors()
		case errors.Is(err, collection.ErrNotFound):
			s.logger.Warn("Collection not found, using label co-occurrence",
				zap.String("collection", collectionName))
		default:
			return nil, fmt.Errorf("open collection %s: %w", collectionName, err)
		}
	}
	opts := s.opts
	if ignoreFields != nil {
		opts.IgnoreFields = ignoreFields
	}
	report := Build(docs, vectors, opts)
	report.Collection = collectionName
	return report, nil
}

// Documents pages through the whole document store.
func (s *Service) Documents(ctx context.Context) ([]*models.Document, error) {
	var all []*models.Document
	for offset := 0; ; offset += s.pageSize {
		page, err := s.storage.ListDocuments(ctx, offset, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			return all, nil
		}
	}
}
