// Package models defines core data structures for documents, chunks, queries, and results.
package models

import (
	"sort"
	"strings"
	"time"
)

// Metadata keys with a fixed meaning. Any other key holding a string or a list of
// strings is treated as a label field by analytics.
const (
	MetaURL         = "url"
	MetaSummary     = "summary"
	MetaSource      = "source_path"
	MetaSourceMtime = "source_mtime"
	MetaSourceSize  = "source_size"
)

// IsReservedMeta reports whether key is a provenance field rather than a label field.
func IsReservedMeta(key string) bool {
	switch key {
	case MetaURL, MetaSummary, MetaSource, MetaSourceMtime, MetaSourceSize:
		return true
	}
	return false
}

// Document represents a stored document with metadata.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// DocumentInput is the input for creating or updating a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SourceURL returns the document's url metadata, falling back to its ID.
func (d *Document) SourceURL() string {
	if s, ok := d.Metadata[MetaURL].(string); ok && s != "" {
		return s
	}
	return d.ID
}

// Labels returns the label values stored under field. A string value is a single
// label; a list keeps its string elements. Blank labels are dropped.
func (d *Document) Labels(field string) []string {
	var out []string
	switch v := d.Metadata[field].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// LabelFields returns the sorted metadata keys that hold labels.
func (d *Document) LabelFields() []string {
	var fields []string
	for k := range d.Metadata {
		if IsReservedMeta(k) {
			continue
		}
		if len(d.Labels(k)) > 0 {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}
