package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/lens/internal/models"
)

// migrations are applied in order; PRAGMA user_version records how many have run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at)`,
}

const documentColumns = `id, title, content, metadata, created_at, updated_at`

// SQLiteStorage is the document store backed by a single SQLite file. Documents
// keep the rowid of their first insert, which gives ListDocuments a stable order.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens dbPath in WAL mode, creating the file and its parent
// directory when missing, and brings the schema up to date.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate document store: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	for ; version < len(migrations); version++ {
		if _, err := db.Exec(migrations[version]); err != nil {
			return fmt.Errorf("step %d: %w", version+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, version+1)); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc      models.Document
		title    sql.NullString
		metadata sql.NullString
	)
	if err := row.Scan(&doc.ID, &title, &doc.Content, &metadata, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Title = title.String
	if metadata.String != "" {
		if err := sonic.UnmarshalString(metadata.String, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

// metadataColumn renders metadata as JSON text; nil metadata is stored as NULL.
func metadataColumn(m map[string]interface{}) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	text, err := sonic.MarshalString(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return text, nil
}

// CreateDocument inserts doc and stamps both timestamps. An existing id is an error.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	meta, err := metadataColumn(doc.Metadata)
	if err != nil {
		return err
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, meta, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// UpsertDocument inserts doc, or replaces title, content and metadata when the id
// exists. The stored creation time and list position are preserved.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	meta, err := metadataColumn(doc.Metadata)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   content = excluded.content,
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Content, meta, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// GetDocument returns the document with id, or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, err
}

// UpdateDocument overwrites an existing document; a missing id is ErrNotFound.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	meta, err := metadataColumn(doc.Metadata)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, content = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		doc.Title, doc.Content, meta, doc.UpdatedAt, doc.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.ID)
	}
	return nil
}

// DeleteDocument removes id. Deleting a missing id is not an error.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns up to limit documents starting at offset, in first-insert order.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns how many documents are stored.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
