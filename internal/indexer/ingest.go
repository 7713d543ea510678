package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/fileid"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/storage"
	"github.com/hyperjump/lens/pkg/utils"
)

// Ingester writes documents into the document store. Files get an id derived from their
// absolute path, so re-ingesting a file updates the same document.
type Ingester struct {
	storage storage.Storage
	logger  *zap.Logger
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithIngestLogger sets a logger for debug output.
func WithIngestLogger(l *zap.Logger) IngesterOption {
	return func(in *Ingester) { in.logger = utils.OrNop(l) }
}

// NewIngester creates an ingester over store.
func NewIngester(store storage.Storage, opts ...IngesterOption) *Ingester {
	in := &Ingester{storage: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestDocument stores input. Without an id, a document carrying a url gets the
// page id for that url, anything else a random one. Content is whitespace-normalized.
func (in *Ingester) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrEmptyDocument
	}
	if input.ID == "" {
		if u, ok := input.Metadata[models.MetaURL].(string); ok && u != "" {
			input.ID = fileid.PageDocID(u)
		} else {
			input.ID = uuid.New().String()
		}
	}
	doc := &models.Document{
		ID:       input.ID,
		Title:    input.Title,
		Content:  Preprocess(input.Content),
		Metadata: input.Metadata,
	}
	if err := in.storage.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return doc, nil
}

// IngestFile reads a text file and stores it. If allowedExts is non-empty, the file's
// extension must be in the list (case-insensitive). Unchanged files (same mtime and
// size) are skipped; ingested reports whether the store was written.
func (in *Ingester) IngestFile(ctx context.Context, path string, allowedExts []string) (ingested bool, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return false, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}
	docID := fileid.FileDocID(absPath)
	if in.unchanged(ctx, absPath, docID, info) {
		in.logger.Debug("Skipping unchanged file", zap.String("path", absPath))
		return false, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}
	_, err = in.IngestDocument(ctx, &models.DocumentInput{
		ID:      docID,
		Title:   filepath.Base(absPath),
		Content: string(content),
		Metadata: map[string]interface{}{
			models.MetaSource: absPath,
			// Stored as strings: UnixNano exceeds float64 precision after a JSON round trip.
			models.MetaSourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			models.MetaSourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	})
	if err != nil {
		return false, err
	}
	in.logger.Debug("File ingested", zap.String("path", absPath), zap.String("doc_id", docID))
	return true, nil
}

// IngestDirectory walks dir recursively and ingests each regular file whose extension
// is in allowedExts (all files when empty). Empty files are skipped. Returns the number
// of files written.
func (in *Ingester) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		ok, ingestErr := in.IngestFile(ctx, path, allowedExts)
		if errors.Is(ingestErr, ErrEmptyDocument) {
			in.logger.Debug("Skipping empty file", zap.String("path", path))
			return nil
		}
		if ingestErr != nil {
			return ingestErr
		}
		if ok {
			n++
		}
		return nil
	})
	return n, err
}

// RemoveFile deletes the document stored for path.
func (in *Ingester) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return in.storage.DeleteDocument(ctx, fileid.FileDocID(absPath))
}

// unchanged reports whether the file is already stored with the same mtime and size.
func (in *Ingester) unchanged(ctx context.Context, absPath, docID string, info os.FileInfo) bool {
	doc, err := in.storage.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	if doc.Metadata[models.MetaSource] != absPath {
		return false
	}
	return metadataInt64(doc.Metadata, models.MetaSourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, models.MetaSourceSize) == info.Size()
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
