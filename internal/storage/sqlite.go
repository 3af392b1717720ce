package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kiku/internal/models"
)

// Meta keys.
const (
	metaDimensions = "dimensions"
	metaMetric     = "metric"
	metaCount      = "count"
	metaBuildID    = "build_id"
	metaCreatedAt  = "created_at"
)

// SQLiteStore implements DocumentStore on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a writable SQLite store at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLiteStore opens an existing store read-only. It never creates the file.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('text', 'table')),
		content TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// WriteDocuments inserts docs with ids 0..len(docs)-1.
func (s *SQLiteStore) WriteDocuments(ctx context.Context, docs []models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (id, kind, content) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, doc := range docs {
		if !doc.Kind.Valid() {
			return fmt.Errorf("document %d: unknown kind %q", i, doc.Kind)
		}
		if _, err := stmt.ExecContext(ctx, i, string(doc.Kind), doc.Content); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ReadDocuments returns all documents ordered by id. Kinds outside the closed set are an error.
func (s *SQLiteStore) ReadDocuments(ctx context.Context) ([]models.VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, content FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.VectorRecord
	for rows.Next() {
		var (
			id            int
			kind, content string
		)
		if err := rows.Scan(&id, &kind, &content); err != nil {
			return nil, err
		}
		k, err := models.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", id, err)
		}
		records = append(records, models.VectorRecord{ID: id, Document: models.Document{Content: content, Kind: k}})
	}
	return records, rows.Err()
}

// WriteMeta replaces the build metadata.
func (s *SQLiteStore) WriteMeta(ctx context.Context, meta Meta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		metaDimensions: strconv.Itoa(meta.Dimensions),
		metaMetric:     meta.Metric,
		metaCount:      strconv.Itoa(meta.Count),
		metaBuildID:    meta.BuildID,
		metaCreatedAt:  meta.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// ReadMeta returns the build metadata. Missing or malformed numeric keys are an error.
func (s *SQLiteStore) ReadMeta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Meta{}, err
	}

	var meta Meta
	if meta.Dimensions, err = atoiMeta(values, metaDimensions); err != nil {
		return Meta{}, err
	}
	if meta.Count, err = atoiMeta(values, metaCount); err != nil {
		return Meta{}, err
	}
	meta.Metric = values[metaMetric]
	meta.BuildID = values[metaBuildID]
	if ts := values[metaCreatedAt]; ts != "" {
		if meta.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return Meta{}, fmt.Errorf("meta %s: %w", metaCreatedAt, err)
		}
	}
	return meta, nil
}

func atoiMeta(values map[string]string, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, errors.New("meta " + key + " missing")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("meta %s: invalid value %q", key, raw)
	}
	return n, nil
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
