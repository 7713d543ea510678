package analytics

import (
	"sort"

	"github.com/hyperjump/lens/internal/vector"
)

// Similarity scores pairs of labels. Covers reports whether a label can be scored at all.
type Similarity interface {
	Name() string
	Covers(label string) bool
	Score(a, b string) float64
}

// Centroids returns, per label, the mean of the vectors of its member documents.
// Labels none of whose documents have a vector are left out.
func Centroids(members map[string]map[string]bool, docVectors map[string][]float32) map[string][]float32 {
	out := make(map[string][]float32)
	for label, docs := range members {
		var vecs [][]float32
		for id := range docs {
			if v, ok := docVectors[id]; ok {
				vecs = append(vecs, v)
			}
		}
		if mean := vector.Mean(vecs); mean != nil {
			out[label] = mean
		}
	}
	return out
}

// CentroidCosine compares labels by the cosine similarity of their centroids.
type CentroidCosine struct {
	centroids map[string][]float32
}

// NewCentroidCosine returns a cosine strategy over centroids.
func NewCentroidCosine(centroids map[string][]float32) *CentroidCosine {
	return &CentroidCosine{centroids: centroids}
}

func (c *CentroidCosine) Name() string { return "cosine" }

func (c *CentroidCosine) Covers(label string) bool {
	_, ok := c.centroids[label]
	return ok
}

func (c *CentroidCosine) Score(a, b string) float64 {
	return vector.Cosine(c.centroids[a], c.centroids[b])
}

// Jaccard compares labels by the overlap of the documents carrying them.
type Jaccard struct {
	members map[string]map[string]bool
}

// NewJaccard returns a co-occurrence strategy over members.
func NewJaccard(members map[string]map[string]bool) *Jaccard {
	return &Jaccard{members: members}
}

func (j *Jaccard) Name() string { return "jaccard" }

func (j *Jaccard) Covers(label string) bool {
	return len(j.members[label]) > 0
}

func (j *Jaccard) Score(a, b string) float64 {
	sa, sb := j.members[a], j.members[b]
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for id := range sa {
		if sb[id] {
			inter++
		}
	}
	return float64(inter) / float64(len(sa)+len(sb)-inter)
}

// SelectSimilarity returns the cosine strategy when at least two labels have centroids
// and falls back to Jaccard otherwise.
func SelectSimilarity(members map[string]map[string]bool, centroids map[string][]float32) Similarity {
	if len(centroids) >= 2 {
		return NewCentroidCosine(centroids)
	}
	return NewJaccard(members)
}

// LabelPair is a scored pair of labels with A < B.
type LabelPair struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
}

// Pairs scores every pair of labels the strategy covers.
func Pairs(labels []string, sim Similarity) []LabelPair {
	covered := make([]string, 0, len(labels))
	for _, l := range labels {
		if sim.Covers(l) {
			covered = append(covered, l)
		}
	}
	sort.Strings(covered)
	var pairs []LabelPair
	for i := 0; i < len(covered); i++ {
		for j := i + 1; j < len(covered); j++ {
			pairs = append(pairs, LabelPair{A: covered[i], B: covered[j], Similarity: sim.Score(covered[i], covered[j])})
		}
	}
	return pairs
}

// SimilarPairs returns the n most similar pairs, ties by (A, B).
func SimilarPairs(pairs []LabelPair, n int) []LabelPair {
	out := append([]LabelPair(nil), pairs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return pairLess(out[i], out[j])
	})
	return head(out, n)
}

// GapPairs returns the n least similar pairs, ties by (A, B).
func GapPairs(pairs []LabelPair, n int) []LabelPair {
	out := append([]LabelPair(nil), pairs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity < out[j].Similarity
		}
		return pairLess(out[i], out[j])
	})
	return head(out, n)
}

func pairLess(a, b LabelPair) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}
