package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/collection"
	"github.com/hyperjump/lens/internal/config"
	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/retrieval"
	"github.com/hyperjump/lens/internal/storage"
)

const maxBodyBytes = 8 << 20

var errEmptyBody = errors.New("empty body")

// decodeBody reads a JSON body into v. An empty body returns errEmptyBody.
func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errEmptyBody
	}
	return sonic.Unmarshal(data, v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.deps.Storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
	}

	if s.deps.Registry != nil {
		names, err := s.deps.Registry.Names()
		if err != nil {
			s.logger.Warn("status: list collections failed", zap.Error(err))
		}
		collections := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			c, err := s.deps.Registry.Get(name)
			if err != nil {
				s.logger.Warn("status: open collection failed", zap.String("collection", name), zap.Error(err))
				continue
			}
			m := c.Manifest()
			collections = append(collections, map[string]interface{}{
				"name":       name,
				"vectors":    c.Size(),
				"model":      m.Model,
				"dimensions": m.Dim,
				"chunk_size": m.ChunkSize,
			})
		}
		resp["collections"] = collections
	}

	if s.cfg != nil {
		resp["config"] = map[string]interface{}{
			"embedding_provider":   s.cfg.Embedding.Provider,
			"embedding_model":      s.cfg.Embedding.Model,
			"embedding_dimensions": s.cfg.Embedding.Dimensions,
			"chunk_size":           s.cfg.Indexing.ChunkSize,
			"store_chunk_text":     s.cfg.Indexing.StoreChunkTextOrDefault(),
			"point_store":          s.cfg.PointStore.Backend,
			"database_path":        s.cfg.Storage.DatabasePath,
			"index_dir":            s.cfg.Storage.IndexDir,
		}
		pointPath := ""
		if s.cfg.PointStore.Backend == "bolt" {
			pointPath = s.cfg.PointStore.Path
		}
		usage, err := storage.DiskUsage(s.cfg.Storage.DatabasePath, s.cfg.Storage.IndexDir, pointPath)
		if err == nil {
			resp["disk_usage"] = usage
			resp["disk_usage_bytes"] = usage.Total()
		}
	}
	if s.deps.Cache != nil {
		st := s.deps.Cache.CacheStats()
		resp["query_cache"] = map[string]interface{}{
			"size":    st.Size,
			"hits":    st.Hits,
			"misses":  st.Misses,
			"evicted": st.Evicted,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := decodeBody(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request", zap.String("id", input.ID), zap.String("title", input.Title))
	doc, err := s.deps.Ingester.IngestDocument(r.Context(), &input)
	if errors.Is(err, indexer.ErrEmptyDocument) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "stored"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.deps.Storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	err := s.deps.Storage.DeleteDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type indexJobRequest struct {
	Collection     string `json:"collection"`
	Append         bool   `json:"append"`
	ChunkSize      int    `json:"chunk_size"`
	StoreChunkText *bool  `json:"store_chunk_text,omitempty"`
}

// indexOptions builds run options from the indexing config, overridden by req.
func indexOptions(cfg *config.Config, req indexJobRequest) indexer.Options {
	var opts indexer.Options
	if cfg != nil {
		opts = indexer.Options{
			Collection:     cfg.Indexing.Collection,
			Chunk:          indexer.ChunkParams{Size: cfg.Indexing.ChunkSize, HardCap: cfg.Indexing.HardCap},
			BatchSize:      cfg.Indexing.BatchSize,
			Concurrency:    cfg.Indexing.Concurrency,
			StoreChunkText: cfg.Indexing.StoreChunkTextOrDefault(),
			IndexType:      cfg.Indexing.IndexType,
		}
	} else {
		opts.StoreChunkText = true
	}
	if req.Collection != "" {
		opts.Collection = req.Collection
	}
	if req.ChunkSize > 0 {
		opts.Chunk.Size = req.ChunkSize
	}
	if req.StoreChunkText != nil {
		opts.StoreChunkText = *req.StoreChunkText
	}
	opts.Append = req.Append
	return opts
}

func (s *Server) handleSubmitIndexJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.respondError(w, http.StatusNotImplemented, "indexing not enabled")
		return
	}
	var req indexJobRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	opts := indexOptions(s.cfg, req)
	if opts.Collection != "" {
		if err := collection.ValidateName(opts.Collection); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	job, err := s.deps.Jobs.Submit(opts)
	if errors.Is(err, ErrQueueFull) {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("index job submitted", zap.String("job_id", job.ID), zap.String("collection", job.Collection))
	s.respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.respondError(w, http.StatusNotImplemented, "indexing not enabled")
		return
	}
	job, ok := s.deps.Jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("k", req.K))
	resp, err := s.deps.Retriever.Query(r.Context(), &req)
	switch {
	case errors.Is(err, retrieval.ErrEmptyQuery), errors.Is(err, collection.ErrInvalidName):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, collection.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, resp)
	}
}

type reportRequest struct {
	Collection   string   `json:"collection"`
	IgnoreFields []string `json:"ignore_fields"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Collection == "" && s.cfg != nil {
		req.Collection = s.cfg.Indexing.Collection
	}
	report, err := s.deps.Reporter.Report(r.Context(), req.Collection, req.IgnoreFields)
	if errors.Is(err, collection.ErrInvalidName) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("report failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

type labelSyncRequest struct {
	IgnoreFields []string `json:"ignore_fields"`
}

func (s *Server) handleLabelSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Labels == nil {
		s.respondError(w, http.StatusNotImplemented, "point store not enabled")
		return
	}
	var req labelSyncRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IgnoreFields == nil && s.cfg != nil {
		req.IgnoreFields = s.cfg.Analytics.IgnoreFields
	}
	docs, err := s.deps.Reporter.Documents(r.Context())
	if err != nil {
		s.logger.Error("label sync: list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	report, err := s.deps.Labels.SyncDocuments(r.Context(), docs, req.IgnoreFields)
	if err != nil {
		s.logger.Error("label sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.deps.Watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.deps.Watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := decodeBody(r, &body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.deps.Watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch roots back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.cfg == nil {
		return
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Watch.Directories = s.deps.Watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := sonic.Marshal(data)
	if err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
