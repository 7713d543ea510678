package vector

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/hyperjump/lens/pkg/utils"
)

// Snapshot is the persisted form of an index: NbDocs vectors of Dim floats, row-major.
type Snapshot struct {
	Dim       int       `json:"dim"`
	NbDocs    int       `json:"nbDocs"`
	FlatArray []float32 `json:"flatArray"`
}

// Validate checks that the flat array holds exactly NbDocs vectors of Dim floats.
func (s *Snapshot) Validate() error {
	if s.Dim <= 0 {
		return fmt.Errorf("snapshot dimension must be positive, got %d", s.Dim)
	}
	if s.NbDocs < 0 {
		return fmt.Errorf("snapshot document count must not be negative, got %d", s.NbDocs)
	}
	if len(s.FlatArray) != s.Dim*s.NbDocs {
		return fmt.Errorf("snapshot holds %d floats, want dim %d * nbDocs %d", len(s.FlatArray), s.Dim, s.NbDocs)
	}
	return nil
}

// SaveSnapshot writes s to path as JSON, replacing any previous file atomically.
func SaveSnapshot(path string, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return utils.WriteFileAtomic(path, data, 0644)
}

// LoadSnapshot reads and validates a snapshot written by SaveSnapshot. A missing file
// returns an error satisfying errors.Is(err, os.ErrNotExist).
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return &s, nil
}
