package pointstore

import (
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/lens/internal/config"
)

// New opens the backend selected by cfg.
func New(cfg *config.PointStoreConfig) (Store, error) {
	switch cfg.Backend {
	case "bolt", "":
		s, err := OpenBolt(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "qdrant":
		apiKey := ""
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		return NewQdrantStore(cfg.URL, apiKey, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown point store backend: %s", cfg.Backend)
	}
}
