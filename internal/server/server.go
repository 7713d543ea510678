// Package server provides the HTTP API for lens.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/analytics"
	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/config"
	"github.com/hyperjump/lens/internal/embedding"
	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/pointstore"
	"github.com/hyperjump/lens/internal/storage"
)

// CacheReporter exposes query-vector cache counters.
type CacheReporter interface {
	CacheStats() embedding.CacheStats
}

// WatchService is the directory watcher as seen by the API.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Retriever answers questions against a collection. retrieval.Engine implements it.
type Retriever interface {
	Query(ctx context.Context, req *models.QueryRequest) (*models.RetrievalResponse, error)
}

// Reporter builds label reports. analytics.Service implements it.
type Reporter interface {
	Report(ctx context.Context, collectionName string, ignoreFields []string) (*analytics.Report, error)
	Documents(ctx context.Context) ([]*models.Document, error)
}

// LabelSyncer merges document labels into the point store. pointstore.Merger implements it.
type LabelSyncer interface {
	SyncDocuments(ctx context.Context, docs []*models.Document, ignoreFields []string) (*pointstore.SyncReport, error)
}

// Deps are the components the API serves. Watch and Labels may be nil.
type Deps struct {
	Storage   storage.Storage
	Ingester  *indexer.Ingester
	Jobs      *Jobs
	Retriever Retriever
	Reporter  Reporter
	Labels    LabelSyncer
	Registry  *collection.Registry
	Watch     WatchService
	Cache     CacheReporter
}

// Server is the HTTP server for the lens API.
type Server struct {
	deps   Deps
	logger *zap.Logger
	server *http.Server

	// cfg is persisted to configPath when the watched directories change.
	cfg        *config.Config
	configPath string
	cfgMu      sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, configPath string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:       deps,
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/documents", s.handleIngestDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Post("/jobs/index", s.handleSubmitIndexJob)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Post("/query", s.handleQuery)
		r.Post("/report", s.handleReport)
		r.Post("/labels/sync", s.handleLabelSync)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
