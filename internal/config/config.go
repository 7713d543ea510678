// Package config provides configuration loading and structs for lens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	PointStore PointStoreConfig `yaml:"point_store"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database and vector collections.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
}

// EmbeddingConfig selects the embedding provider and its retry policy.
type EmbeddingConfig struct {
	// Provider is one of "mock", "openai" or "onnx".
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Model          string  `yaml:"model"`
	ModelPath      string  `yaml:"model_path"`
	Dimensions     int     `yaml:"dimensions"`
	MaxTokens      int     `yaml:"max_tokens"`
	CacheSize      int     `yaml:"cache_size"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxAttempts    int     `yaml:"max_attempts"`
	ShrinkFactor   float64 `yaml:"shrink_factor"`
}

// Timeout returns the per-call embedding timeout.
func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// IndexingConfig holds chunking and batching settings.
type IndexingConfig struct {
	Collection  string `yaml:"collection"`
	ChunkSize   int    `yaml:"chunk_size"`
	HardCap     int    `yaml:"hard_cap"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	// StoreChunkText persists chunk text inline in the document map. When false,
	// retrieval recomputes the text from the source document.
	StoreChunkText *bool  `yaml:"store_chunk_text"`
	IndexType      string `yaml:"index_type"`
}

// StoreChunkTextOrDefault returns whether chunk text is persisted; defaults to true when unset.
func (i *IndexingConfig) StoreChunkTextOrDefault() bool {
	if i.StoreChunkText != nil {
		return *i.StoreChunkText
	}
	return true
}

// RetrievalConfig holds query settings.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// PointStoreConfig selects the per-label point store backend.
type PointStoreConfig struct {
	// Backend is one of "bolt", "qdrant" or "memory".
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	URL            string `yaml:"url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// CollectionPrefix is prepended to a label field name to form its point collection.
	CollectionPrefix string `yaml:"collection_prefix"`
}

// AnalyticsConfig holds report sizes.
type AnalyticsConfig struct {
	TopN         int      `yaml:"top_n"`
	BottomN      int      `yaml:"bottom_n"`
	TopK         int      `yaml:"top_k"`
	IgnoreFields []string `yaml:"ignore_fields"`
}

// GenerationConfig configures the chat-completion client used for labeling.
type GenerationConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Fields         []string `yaml:"fields"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.PointStore.Path = expandPath(cfg.PointStore.Path, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that would abort a run.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "mock":
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding.base_url is required for provider openai")
		}
	case "onnx":
		if c.Embedding.ModelPath == "" {
			return fmt.Errorf("embedding.model_path is required for provider onnx")
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, onnx)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Embedding.ShrinkFactor <= 0 || c.Embedding.ShrinkFactor >= 1 {
		return fmt.Errorf("embedding.shrink_factor must be in (0, 1)")
	}
	if c.Indexing.HardCap < 0 {
		return fmt.Errorf("indexing.hard_cap must not be negative")
	}
	switch c.PointStore.Backend {
	case "bolt", "memory":
	case "qdrant":
		if c.PointStore.URL == "" {
			return fmt.Errorf("point_store.url is required for backend qdrant")
		}
	default:
		return fmt.Errorf("unknown point store backend: %s (supported: bolt, qdrant, memory)", c.PointStore.Backend)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
