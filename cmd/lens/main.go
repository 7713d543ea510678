// Package main is the lens CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/analytics"
	"github.com/hyperjump/lens/internal/cli"
	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/config"
	"github.com/hyperjump/lens/internal/embedding"
	"github.com/hyperjump/lens/internal/generation"
	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/pointstore"
	"github.com/hyperjump/lens/internal/retrieval"
	"github.com/hyperjump/lens/internal/server"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/internal/vector"
	"github.com/hyperjump/lens/internal/watcher"
	"github.com/hyperjump/lens/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/lens/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "query":
		runQuery()
	case "report":
		runReport()
	case "ingest":
		runIngest()
	case "enrich":
		runEnrich()
	case "labels":
		runLabels()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("lens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, builds the logger and initializes components. It exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, components
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, file ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	if err := components.OpenLabels(logger); err != nil {
		logger.Fatal("Failed to open point store", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	jobs := server.NewJobs(components.Indexer, 8, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	watchSvc := watcher.New(components.Ingester, cfg.Watch,
		watcher.WithLogger(logger),
		watcher.WithOnChange(10*time.Second, func() {
			opts := indexOptions(cfg, "")
			opts.Append = true
			if _, err := jobs.Submit(opts); err != nil {
				logger.Warn("Failed to schedule index job after file changes", zap.Error(err))
			}
		}),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(server.Deps{
		Storage:   components.Storage,
		Ingester:  components.Ingester,
		Jobs:      jobs,
		Retriever: components.Retrieval,
		Reporter:  components.Analytics,
		Labels:    components.Merger,
		Registry:  components.Registry,
		Watch:     watchSvc,
		Cache:     components.Embedder,
	}, cfg, resolvedConfigPath, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	watchSvc.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// indexOptions builds run options from the indexing config. A non-empty name
// overrides the configured collection.
func indexOptions(cfg *config.Config, name string) indexer.Options {
	opts := indexer.Options{
		Collection:     cfg.Indexing.Collection,
		Chunk:          indexer.ChunkParams{Size: cfg.Indexing.ChunkSize, HardCap: cfg.Indexing.HardCap},
		BatchSize:      cfg.Indexing.BatchSize,
		Concurrency:    cfg.Indexing.Concurrency,
		StoreChunkText: cfg.Indexing.StoreChunkTextOrDefault(),
		IndexType:      cfg.Indexing.IndexType,
	}
	if name != "" {
		opts.Collection = name
	}
	return opts
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	name := fs.String("collection", "", "collection name (default from config)")
	chunkSize := fs.Int("chunk-size", 0, "words per chunk (default from config)")
	appendMode := fs.Bool("append", false, "add documents not yet in the collection instead of rebuilding it")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseFormat(*outputFormat)

	cfg, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	opts := indexOptions(cfg, *name)
	if *chunkSize > 0 {
		opts.Chunk.Size = *chunkSize
	}
	opts.Append = *appendMode

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx := indexer.NewIndexer(components.Storage, components.Embedder, components.Registry,
		indexer.WithLogger(logger), indexer.WithProgress(cli.NewProgress()))
	report, err := idx.Run(ctx, opts)
	if report != nil {
		_ = cli.WriteIndexReport(os.Stdout, report, format)
	}
	if errors.Is(err, context.Canceled) {
		fail("Indexing interrupted; the documents indexed so far were saved")
	}
	if err != nil {
		fail("Indexing failed: %v", err)
	}
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the collection directly)")
	name := fs.String("collection", "", "collection to query (default from config)")
	k := fs.Int("k", 0, "number of results (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lens query [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseFormat(*outputFormat)

	question := buildQuestion(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}
	req := &models.QueryRequest{Question: question, Collection: *name, K: *k}

	var response *models.RetrievalResponse
	if *serverURL != "" {
		response = &models.RetrievalResponse{}
		if err := postJSON(*serverURL+"/api/v1/query", req, response); err != nil {
			fail("Query failed: %v", err)
		}
	} else {
		cfg, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		if req.Collection == "" {
			req.Collection = cfg.Indexing.Collection
		}
		var err error
		response, err = components.Retrieval.Query(context.Background(), req)
		if err != nil {
			fail("Query failed: %v", err)
		}
	}
	if err := cli.WriteRetrieval(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// splitList parses a comma-separated flag value. An unset flag yields nil so that
// configured defaults apply.
func splitList(s string, set bool) []string {
	if !set {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the stores directly)")
	name := fs.String("collection", "", "collection supplying document vectors (default from config)")
	ignore := fs.String("ignore", "", "comma-separated label fields to skip (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)
	ignoreFields := splitList(*ignore, flagWasSet(fs, "ignore"))

	var report *analytics.Report
	if *serverURL != "" {
		report = &analytics.Report{}
		body := map[string]interface{}{"collection": *name}
		if ignoreFields != nil {
			body["ignore_fields"] = ignoreFields
		}
		if err := postJSON(*serverURL+"/api/v1/report", body, report); err != nil {
			fail("Report failed: %v", err)
		}
	} else {
		cfg, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		coll := *name
		if coll == "" {
			coll = cfg.Indexing.Collection
		}
		var err error
		report, err = components.Analytics.Report(context.Background(), coll, ignoreFields)
		if err != nil {
			fail("Report failed: %v", err)
		}
	}
	if err := cli.WriteReport(os.Stdout, report, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	title := fs.String("title", "", "document title (stdin only)")
	pageURL := fs.String("url", "", "source url (stdin only); also derives the document id")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: lens ingest [flags] <file-or-directory | ->")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	ctx := context.Background()

	if path == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			fail("Read stdin: %v", err)
		}
		input := &models.DocumentInput{Title: *title, Content: string(content)}
		if *pageURL != "" {
			input.Metadata = map[string]interface{}{models.MetaURL: *pageURL}
		}
		doc, err := components.Ingester.IngestDocument(ctx, input)
		if err != nil {
			fail("Ingest failed: %v", err)
		}
		fmt.Printf("Document stored: %s\n", doc.ID)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}
	if info.IsDir() {
		n, err := components.Ingester.IngestDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fail("Ingesting directory failed: %v", err)
		}
		fmt.Printf("Stored %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter
	written, err := components.Ingester.IngestFile(ctx, path, nil)
	if err != nil {
		fail("Ingest failed: %v", err)
	}
	if !written {
		fmt.Printf("Unchanged: %s\n", path)
		return
	}
	fmt.Printf("Document stored: %s\n", path)
}

func runEnrich() {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "regenerate fields that already have values")
	_ = fs.Parse(os.Args[2:])

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	report, err := components.Labeler.Enrich(ctx, *force)
	if report != nil {
		fmt.Printf("Enriched %d of %d documents (%d failed)\n", report.Updated, report.Documents, report.Failed)
	}
	if err != nil {
		fail("Enrich failed: %v", err)
	}
}

func runLabels() {
	if len(os.Args) < 3 || os.Args[2] != "sync" {
		fmt.Println("Usage: lens labels sync [--ignore fields] [--server url]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("labels", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the point store directly)")
	ignore := fs.String("ignore", "", "comma-separated label fields to skip (default from config)")
	_ = fs.Parse(os.Args[3:])
	ignoreFields := splitList(*ignore, flagWasSet(fs, "ignore"))

	var report pointstore.SyncReport
	if *serverURL != "" {
		body := map[string]interface{}{}
		if ignoreFields != nil {
			body["ignore_fields"] = ignoreFields
		}
		if err := postJSON(*serverURL+"/api/v1/labels/sync", body, &report); err != nil {
			fail("Label sync failed: %v", err)
		}
	} else {
		cfg, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		if err := components.OpenLabels(logger); err != nil {
			fail("Open point store: %v", err)
		}
		if ignoreFields == nil {
			ignoreFields = cfg.Analytics.IgnoreFields
		}
		ctx := context.Background()
		docs, err := components.Analytics.Documents(ctx)
		if err != nil {
			fail("List documents: %v", err)
		}
		r, err := components.Merger.SyncDocuments(ctx, docs, ignoreFields)
		if err != nil {
			fail("Label sync failed: %v", err)
		}
		report = *r
	}
	fmt.Printf("%d documents, %d label sightings: %d new labels, %d failed\n",
		report.Documents, report.Sightings, report.Created, report.Failed)
}

// collectionStatus is one collection in the status response.
type collectionStatus struct {
	Name       string `json:"name"`
	Vectors    int    `json:"vectors"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	ChunkSize  int    `json:"chunk_size"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      int64                  `json:"documents"`
	Collections    []collectionStatus     `json:"collections"`
	DiskUsage      *storage.Usage         `json:"disk_usage,omitempty"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		st, err := directStatus(context.Background(), cfg, components)
		if err != nil {
			fail("Status failed: %v", err)
		}
		status = *st
	}

	if format == cli.OutputJSON {
		if err := cli.WriteJSON(os.Stdout, status); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	fmt.Printf("documents:          %d   # count of stored documents\n", status.Documents)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # documents + indices + point store on disk\n", *status.DiskUsageBytes)
	}
	fmt.Println()
	fmt.Println("# collections")
	if len(status.Collections) == 0 {
		fmt.Println("(none; run lens index)")
	}
	for _, c := range status.Collections {
		fmt.Printf("%-20s %d vectors, %s (%d dims), chunk size %d\n", c.Name, c.Vectors, c.Model, c.Dimensions, c.ChunkSize)
	}
}

func directStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	docCount, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	status := &statusResponse{Documents: docCount, Collections: []collectionStatus{}}
	names, err := c.Registry.Names()
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		coll, err := c.Registry.Get(name)
		if err != nil {
			continue
		}
		m := coll.Manifest()
		status.Collections = append(status.Collections, collectionStatus{
			Name: name, Vectors: coll.Size(), Model: m.Model, Dimensions: m.Dim, ChunkSize: m.ChunkSize,
		})
	}
	pointPath := ""
	if cfg.PointStore.Backend == "bolt" {
		pointPath = cfg.PointStore.Path
	}
	if usage, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.IndexDir, pointPath); err == nil {
		total := usage.Total()
		status.DiskUsage = &usage
		status.DiskUsageBytes = &total
	}
	return status, nil
}

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Storage   storage.Storage
	Embedder  *embedding.Resilient
	Registry  *collection.Registry
	Indexer   *indexer.Indexer
	Ingester  *indexer.Ingester
	Retrieval *retrieval.Engine
	Analytics *analytics.Service
	Labeler   *generation.Labeler

	// Points and Merger are set by OpenLabels. The bolt backend locks its file, so
	// only commands that merge labels open it.
	Points pointstore.Store
	Merger *pointstore.Merger
}

// OpenLabels opens the point store and the label merger.
func (c *Components) OpenLabels(logger *zap.Logger) error {
	points, err := pointstore.New(&c.Config.PointStore)
	if err != nil {
		return err
	}
	c.Points = points
	c.Merger = pointstore.NewMerger(points, c.Embedder,
		pointstore.WithLogger(logger),
		pointstore.WithCollectionPrefix(c.Config.PointStore.CollectionPrefix))
	return nil
}

func (c *Components) Close() {
	if c.Points != nil {
		_ = c.Points.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Config: cfg, Storage: store}

	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder
	logger.Debug("embedder initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", embedder.Model()),
		zap.Int("dimensions", embedder.Dimensions()))

	logger.Debug("vector index",
		zap.String("type", cfg.Indexing.IndexType),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	c.Registry = collection.NewRegistry(cfg.Storage.IndexDir)
	c.Indexer = indexer.NewIndexer(store, embedder, c.Registry, indexer.WithLogger(logger))
	c.Ingester = indexer.NewIngester(store, indexer.WithIngestLogger(logger))
	c.Retrieval = retrieval.NewEngine(c.Registry, store, embedder,
		retrieval.WithLogger(logger),
		retrieval.WithLimits(cfg.Retrieval.DefaultK, cfg.Retrieval.MaxK),
		retrieval.WithDefaultCollection(cfg.Indexing.Collection))
	c.Analytics = analytics.NewService(store, c.Registry, analytics.Options{
		TopN:         cfg.Analytics.TopN,
		BottomN:      cfg.Analytics.BottomN,
		TopK:         cfg.Analytics.TopK,
		IgnoreFields: cfg.Analytics.IgnoreFields,
	}, analytics.WithLogger(logger))

	client, err := generation.NewClient(generation.ClientConfig{
		BaseURL: cfg.Generation.BaseURL,
		APIKey:  os.Getenv(cfg.Generation.APIKeyEnv),
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generation client: %w", err)
	}
	c.Labeler = generation.NewLabeler(client, store, cfg.Generation.Fields, generation.WithLogger(logger))
	return c, nil
}

func printUsage() {
	fmt.Println(`lens - semantic indexing, retrieval and label analytics

Usage:
  lens server [flags]                  Start the HTTP server and directory watcher
  lens index [flags]                   Chunk and embed stored documents into a collection
  lens query [flags] <question>        Retrieve the chunks nearest to a question
  lens report [flags]                  Label frequency, similarity and gap report
  lens ingest [flags] <path | ->       Store files, a directory or stdin as documents
  lens enrich [flags]                  Generate label fields with the chat model
  lens labels sync [flags]             Merge document labels into the point store
  lens status [flags]                  Show document, collection and disk status
  lens version                         Show version
  lens help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/lens/config.yaml)
  --server string    Server URL for query, report, labels and status
                     (default: http://localhost:8080; --server "" works on the stores directly)
  --output string    text or json (index, query, report, status)

Index Flags:
  --collection string   Collection name (default from config)
  --chunk-size int      Words per chunk (default from config)
  --append              Add only documents the collection does not hold yet

Examples:
  lens ingest ~/notes
  lens index --collection notes
  lens query --k 3 "how do retries work"
  lens report --ignore tone --output json
  lens enrich --force
  lens labels sync`)
}
