// Package analytics aggregates document labels into frequency rankings and label
// similarity pairs.
package analytics

import (
	"sort"

	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/pointstore"
)

// LabelCount is the number of documents carrying a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Members maps each normalized label of field to the ids of the documents carrying it.
// A document counts once per label however often it repeats it.
func Members(docs []*models.Document, field string) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, doc := range docs {
		for _, raw := range doc.Labels(field) {
			label := pointstore.NormalizeLabel(raw)
			if label == "" {
				continue
			}
			if out[label] == nil {
				out[label] = make(map[string]bool)
			}
			out[label][doc.ID] = true
		}
	}
	return out
}

// Frequencies returns the document count of every label in members.
func Frequencies(members map[string]map[string]bool) map[string]int {
	out := make(map[string]int, len(members))
	for label, docs := range members {
		out[label] = len(docs)
	}
	return out
}

// TopLabels returns the k most frequent labels, highest count first, ties in lexical order.
func TopLabels(freq map[string]int, k int) []LabelCount {
	counts := sortedCounts(freq, func(a, b LabelCount) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	return head(counts, k)
}

// Underserved returns the k least frequent labels with a count above zero, lowest first,
// ties in lexical order.
func Underserved(freq map[string]int, k int) []LabelCount {
	counts := sortedCounts(freq, func(a, b LabelCount) bool {
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Label < b.Label
	})
	return head(counts, k)
}

func sortedCounts(freq map[string]int, less func(a, b LabelCount) bool) []LabelCount {
	counts := make([]LabelCount, 0, len(freq))
	for label, n := range freq {
		if n > 0 {
			counts = append(counts, LabelCount{Label: label, Count: n})
		}
	}
	sort.Slice(counts, func(i, j int) bool { return less(counts[i], counts[j]) })
	return counts
}

func head[T any](s []T, k int) []T {
	if k < 0 {
		k = 0
	}
	if len(s) > k {
		s = s[:k]
	}
	return s
}
