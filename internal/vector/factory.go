package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat is the pure Go exhaustive index.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS IndexFlatL2, also exhaustive.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewVectorIndex creates an empty vector index of the specified type.
// Supported types: "flat" (default; "memory" is accepted as an alias), "faiss".
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "memory", "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// FromSnapshot rebuilds an index of the given type from a snapshot.
func FromSnapshot(indexType string, s *Snapshot) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "memory", "":
		return NewFlatIndexFromSnapshot(s)
	case IndexTypeFAISS:
		idx, err := NewFAISSIndexFromSnapshot(s)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
