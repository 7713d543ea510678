package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/pkg/utils"
)

// promptChars bounds the document text sent with a labeling prompt.
const promptChars = 6000

// scalarFields hold a single value rather than a list.
var scalarFields = map[string]bool{"tone": true, models.MetaSummary: true}

var fieldPrompts = map[string]string{
	"interests": "List the topics of interest a reader of this page has.",
	"segments":  "List the audience segments this page is written for.",
	"tone":      "Name the tone of this page in one or two words.",
	"narrative": "List the narrative themes of this page.",
	"summary":   "Summarize this page in one sentence.",
}

const systemPrompt = `You label web pages for content analysis.
For list questions answer with a JSON array of short lowercase strings and nothing else.
For single-value questions answer with the value only.`

// Labeler asks a Generator for label values and writes them into document metadata.
type Labeler struct {
	generator Generator
	storage   storage.Storage
	fields    []string
	logger    *zap.Logger
}

// LabelerOption configures a Labeler.
type LabelerOption func(*Labeler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LabelerOption {
	return func(lb *Labeler) { lb.logger = utils.OrNop(l) }
}

// NewLabeler creates a labeler that fills fields.
func NewLabeler(gen Generator, store storage.Storage, fields []string, opts ...LabelerOption) *Labeler {
	lb := &Labeler{generator: gen, storage: store, fields: fields, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(lb)
	}
	return lb
}

// Prompt returns the user prompt asking for field.
func Prompt(field string, doc *models.Document) string {
	question, ok := fieldPrompts[field]
	if !ok {
		question = fmt.Sprintf("List the %s of this page.", field)
	}
	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n\n")
	if doc.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(doc.Title)
		b.WriteString("\n")
	}
	b.WriteString(utils.Truncate(doc.Content, promptChars))
	return b.String()
}

// LabelDocument generates every missing field of doc (all fields when force is set) and
// stores the document when anything changed. It returns the fields written. A field whose
// answer cannot be parsed is logged and left unset.
func (lb *Labeler) LabelDocument(ctx context.Context, doc *models.Document, force bool) ([]string, error) {
	var written []string
	for _, field := range lb.fields {
		if !force && hasValue(doc, field) {
			continue
		}
		raw, err := lb.generator.Complete(ctx, systemPrompt, Prompt(field, doc))
		if err != nil {
			return written, fmt.Errorf("generate %s for %s: %w", field, doc.ID, err)
		}
		value, ok := fieldValue(field, ParseCompletion(raw))
		if !ok {
			lb.logger.Warn("Unparseable completion",
				zap.String("source", doc.ID),
				zap.String("field", field),
				zap.String("completion", utils.Truncate(raw, 200)))
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]interface{})
		}
		doc.Metadata[field] = value
		written = append(written, field)
	}
	if len(written) == 0 {
		return nil, nil
	}
	if err := lb.storage.UpdateDocument(ctx, doc); err != nil {
		return written, fmt.Errorf("update %s: %w", doc.ID, err)
	}
	return written, nil
}

// EnrichReport counts the outcome of an Enrich run.
type EnrichReport struct {
	Documents int `json:"documents"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Enrich labels every stored document. Per-document failures are logged and counted.
func (lb *Labeler) Enrich(ctx context.Context, force bool) (*EnrichReport, error) {
	const pageSize = 50
	report := &EnrichReport{}
	var docs []*models.Document
	for offset := 0; ; offset += pageSize {
		page, err := lb.storage.ListDocuments(ctx, offset, pageSize)
		if err != nil {
			return report, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, page...)
		if len(page) < pageSize {
			break
		}
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Documents++
		written, err := lb.LabelDocument(ctx, doc, force)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			lb.logger.Warn("Failed to label document", zap.String("source", doc.ID), zap.Error(err))
			report.Failed++
			continue
		}
		if len(written) > 0 {
			report.Updated++
		}
	}
	return report, nil
}

func hasValue(doc *models.Document, field string) bool {
	if field == models.MetaSummary {
		s, _ := doc.Metadata[field].(string)
		return strings.TrimSpace(s) != ""
	}
	return len(doc.Labels(field)) > 0
}

// fieldValue converts a completion into the metadata value of field: a string for
// scalar fields, a list of lower-cased labels otherwise.
func fieldValue(field string, c Completion) (interface{}, bool) {
	var items []string
	switch v := c.(type) {
	case ArrayResult:
		items = v.Items
	case ScalarText:
		if scalarFields[field] {
			return v.Text, true
		}
		items = strings.Split(v.Text, ",")
	case ParseFailure:
		return nil, false
	}
	if scalarFields[field] {
		if len(items) == 0 {
			return nil, false
		}
		return items[0], true
	}
	seen := make(map[string]bool)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		l := strings.ToLower(strings.TrimSpace(it))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	if len(labels) == 0 {
		return nil, false
	}
	return labels, true
}
