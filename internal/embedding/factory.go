package embedding

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/config"
)

// NewProvider builds the raw provider named by cfg.Provider.
func NewProvider(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockEmbedder(cfg.Dimensions, 0), nil
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     os.Getenv(cfg.APIKeyEnv),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			HTTPClient: &http.Client{Timeout: requestTimeout},
		})
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, onnx)", cfg.Provider)
	}
}

// New builds the configured provider wrapped in the retry policy from cfg.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (*Resilient, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewResilient(p, Policy{
		Timeout:      cfg.Timeout(),
		MaxAttempts:  cfg.MaxAttempts,
		ShrinkFactor: cfg.ShrinkFactor,
		CacheSize:    cfg.CacheSize,
	}, WithLogger(logger)), nil
}
