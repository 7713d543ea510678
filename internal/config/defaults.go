package config

// Defaults for chunking and the embedding retry policy.
const (
	DefaultChunkSize    = 50
	DefaultMaxAttempts  = 5
	DefaultShrinkFactor = 0.8
	DefaultCollection   = "default"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/lens/data/db/documents.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/lens/data/indices"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = cfg.Embedding.Provider
		}
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Embedding.ShrinkFactor == 0 {
		cfg.Embedding.ShrinkFactor = DefaultShrinkFactor
	}
	if cfg.Indexing.Collection == "" {
		cfg.Indexing.Collection = DefaultCollection
	}
	if cfg.Indexing.ChunkSize == 0 {
		cfg.Indexing.ChunkSize = DefaultChunkSize
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 16
	}
	if cfg.Indexing.Concurrency == 0 {
		cfg.Indexing.Concurrency = 4
	}
	if cfg.Indexing.IndexType == "" {
		cfg.Indexing.IndexType = "flat"
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 5
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 100
	}
	if cfg.PointStore.Backend == "" {
		cfg.PointStore.Backend = "bolt"
	}
	if cfg.PointStore.Path == "" {
		cfg.PointStore.Path = "/usr/local/var/lens/data/points.bolt"
	}
	if cfg.PointStore.APIKeyEnv == "" {
		cfg.PointStore.APIKeyEnv = "QDRANT_API_KEY"
	}
	if cfg.PointStore.TimeoutSeconds == 0 {
		cfg.PointStore.TimeoutSeconds = 20
	}
	if cfg.PointStore.CollectionPrefix == "" {
		cfg.PointStore.CollectionPrefix = "labels_"
	}
	if cfg.Analytics.TopN == 0 {
		cfg.Analytics.TopN = 5
	}
	if cfg.Analytics.BottomN == 0 {
		cfg.Analytics.BottomN = 5
	}
	if cfg.Analytics.TopK == 0 {
		cfg.Analytics.TopK = 10
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 60
	}
	if cfg.Generation.Fields == nil {
		cfg.Generation.Fields = []string{"interests", "segments", "tone"}
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".html"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
