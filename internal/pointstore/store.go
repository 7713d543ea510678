// Package pointstore keeps one mutable point per label: a vector fixed at first sighting
// plus the list of contributions that mentioned the label.
package pointstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/lens/internal/vector"
)

var (
	// ErrCollectionNotFound is returned when a point collection has not been created.
	ErrCollectionNotFound = errors.New("point collection not found")
	// ErrPointNotFound is returned by SetPayloadOnly for an unknown id.
	ErrPointNotFound = errors.New("point not found")
	// ErrVectorRequired is returned by backends that cannot store a point without a vector.
	ErrVectorRequired = errors.New("point vector required")
)

// labelNamespace scopes the name-based UUIDs of label points.
var labelNamespace = uuid.MustParse("5b0e7f3c-2d6a-4c1e-9a57-3f1d8e4b6c20")

// Contribution is one sighting of a label.
type Contribution struct {
	Text      string `json:"text"`
	SourceURL string `json:"sourceUrl"`
}

// Payload is the mutable part of a point.
type Payload struct {
	Label         string         `json:"label"`
	Field         string         `json:"field,omitempty"`
	Contributions []Contribution `json:"contributions"`
}

// Has reports whether c is already recorded.
func (p *Payload) Has(c Contribution) bool {
	for _, existing := range p.Contributions {
		if existing == c {
			return true
		}
	}
	return false
}

// Point is a stored label. Vector is nil when the label could not be embedded.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector,omitempty"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a search hit. Score is cosine similarity, higher is closer.
type ScoredPoint struct {
	Point
	Score float64 `json:"score"`
}

// Store is a point-addressable vector store.
type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, collection string, p *Point) error
	// Retrieve returns nil and no error when the point does not exist.
	Retrieve(ctx context.Context, collection, id string) (*Point, error)
	SetPayloadOnly(ctx context.Context, collection, id string, payload Payload) error
	Search(ctx context.Context, collection string, query []float32, k int) ([]ScoredPoint, error)
	Close() error
}

// NormalizeLabel lower-cases label and collapses its whitespace.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// LabelID returns the point id of label. Labels that differ only in case or spacing
// share an id.
func LabelID(label string) string {
	return uuid.NewSHA1(labelNamespace, []byte(NormalizeLabel(label))).String()
}

func clonePoint(p *Point) *Point {
	out := &Point{ID: p.ID, Payload: clonePayload(p.Payload)}
	if p.Vector != nil {
		out.Vector = append([]float32(nil), p.Vector...)
	}
	return out
}

func clonePayload(p Payload) Payload {
	p.Contributions = append([]Contribution(nil), p.Contributions...)
	return p
}

// rankPoints scores every point with a vector against query and keeps the k best,
// ties broken by id.
func rankPoints(points []*Point, query []float32, k int) []ScoredPoint {
	out := make([]ScoredPoint, 0, len(points))
	if k <= 0 {
		return out
	}
	for _, p := range points {
		if len(p.Vector) == 0 {
			continue
		}
		out = append(out, ScoredPoint{Point: *clonePoint(p), Score: vector.Cosine(query, p.Vector)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
