package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/lens/internal/config"
	"github.com/hyperjump/lens/internal/models"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"how do retries work", "-k", "3"},
			expected: []string{"-k", "3", "how do retries work"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "3", "how do retries work"},
			expected: []string{"-k", "3", "how do retries work"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"how do retries work"},
			expected: []string{"how do retries work"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-collection", "notes"},
			expected: []string{"-collection", "notes", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"vector", "search"}, "vector search"},
		{[]string{"vector search"}, "vector search"},
		{[]string{"  padded  "}, "padded"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := buildQuestion(tt.args); got != tt.want {
			t.Errorf("buildQuestion(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList("", false); got != nil {
		t.Errorf("unset flag: got %v, want nil", got)
	}
	if got := splitList("", true); got == nil || len(got) != 0 {
		t.Errorf("empty flag: got %#v, want empty non-nil", got)
	}
	if got := splitList(" tone, ,segments ", true); !reflect.DeepEqual(got, []string{"tone", "segments"}) {
		t.Errorf("got %v", got)
	}
}

func TestFlagWasSet(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.String("ignore", "", "")
	fs.String("other", "", "")
	if err := fs.Parse([]string{"-ignore", ""}); err != nil {
		t.Fatal(err)
	}
	if !flagWasSet(fs, "ignore") || flagWasSet(fs, "other") {
		t.Error("flagWasSet mismatch")
	}
}

func TestIndexOptions(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Indexing.HardCap = 40

	opts := indexOptions(cfg, "")
	if opts.Collection != config.DefaultCollection || opts.Chunk.Size != config.DefaultChunkSize || opts.Chunk.HardCap != 40 {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.StoreChunkText || opts.Append {
		t.Errorf("opts = %+v", opts)
	}
	if got := indexOptions(cfg, "notes").Collection; got != "notes" {
		t.Errorf("collection = %q, want notes", got)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "documents.db")
	cfg.Storage.IndexDir = filepath.Join(dir, "indices")
	cfg.PointStore.Path = filepath.Join(dir, "points.bolt")
	cfg.Embedding.Dimensions = 8
	cfg.Indexing.ChunkSize = 4
	return cfg
}

func TestComponents_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	for _, in := range []*models.DocumentInput{
		{Content: "go channels and goroutines make concurrency simple", Metadata: map[string]interface{}{"url": "https://example.com/go", "interests": []interface{}{"Go", "concurrency"}}},
		{Content: "rust ownership prevents data races", Metadata: map[string]interface{}{"interests": []interface{}{"rust", "concurrency"}}},
	} {
		if _, err := c.Ingester.IngestDocument(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	report, err := c.Indexer.Run(ctx, indexOptions(cfg, ""))
	if err != nil {
		t.Fatal(err)
	}
	if report.Processed != 2 || report.TotalVectors != 4 {
		t.Errorf("index report = %+v, want 2 processed, 4 vectors", report)
	}

	resp, err := c.Retrieval.Query(ctx, &models.QueryRequest{Question: "goroutines", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Collection != config.DefaultCollection {
		t.Errorf("query = %+v", resp)
	}

	st, err := directStatus(ctx, cfg, c)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 2 || len(st.Collections) != 1 || st.Collections[0].Vectors != 4 {
		t.Errorf("status = %+v", st)
	}

	if err := c.OpenLabels(zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	docs, err := c.Analytics.Documents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sync, err := c.Merger.SyncDocuments(ctx, docs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sync.Sightings != 4 || sync.Created != 3 || sync.Failed != 0 {
		t.Errorf("sync = %+v, want 4 sightings, 3 created", sync)
	}
}
