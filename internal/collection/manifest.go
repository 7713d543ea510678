package collection

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hyperjump/lens/pkg/utils"
)

// ErrManifestMismatch is returned when vectors produced with one model, dimension or
// chunking would be appended to a collection built with another.
var ErrManifestMismatch = errors.New("collection manifest mismatch")

// Manifest versions the parameters a collection was built with. Retrieval re-chunks
// source documents with ChunkSize and HardCap when chunk text is not stored inline.
type Manifest struct {
	Name       string    `json:"name"`
	Dim        int       `json:"dim"`
	Model      string    `json:"model"`
	ChunkSize  int       `json:"chunkSize"`
	HardCap    int       `json:"hardCap"`
	IndexType  string    `json:"indexType,omitempty"`
	StoresText bool      `json:"storesText"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CheckCompatible returns ErrManifestMismatch if other was built differently from m.
func (m *Manifest) CheckCompatible(other *Manifest) error {
	switch {
	case m.Dim != other.Dim:
		return fmt.Errorf("%w: dimension %d, collection has %d", ErrManifestMismatch, other.Dim, m.Dim)
	case m.Model != other.Model:
		return fmt.Errorf("%w: model %q, collection has %q", ErrManifestMismatch, other.Model, m.Model)
	case m.ChunkSize != other.ChunkSize || m.HardCap != other.HardCap:
		return fmt.Errorf("%w: chunking %d/%d, collection has %d/%d",
			ErrManifestMismatch, other.ChunkSize, other.HardCap, m.ChunkSize, m.HardCap)
	}
	return nil
}

func saveManifest(path string, m *Manifest) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return utils.WriteFileAtomic(path, data, 0644)
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}
