package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using a private in-memory SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens a fresh in-memory database and initializes the schema.
// The data lives as long as the storage does.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every new connection to :memory: is a fresh, empty database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		segment_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_segments_document ON segments(document_id, segment_index);
	`
	_, err := db.Exec(schema)
	return err
}

// AddDocuments inserts docs in one transaction.
func (s *SQLiteStorage) AddDocuments(ctx context.Context, docs []*models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, content, source, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		src, err := json.Marshal(d.Source)
		if err != nil {
			return fmt.Errorf("failed to marshal source: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, string(src), d.CreatedAt); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, source, created_at FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns every document in insertion order.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, source, created_at FROM documents ORDER BY rowid`)
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

// BatchCreateSegments inserts segments in a transaction. Embeddings are not stored here.
func (s *SQLiteStorage) BatchCreateSegments(ctx context.Context, segs []*models.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (id, document_id, segment_index, position, content, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seg := range segs {
		src, err := json.Marshal(seg.Source)
		if err != nil {
			return fmt.Errorf("failed to marshal source: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, seg.ID, seg.DocumentID, seg.Index, seg.Position, seg.Content, string(src), seg.CreatedAt); err != nil {
			return fmt.Errorf("insert segment %s: %w", seg.ID, err)
		}
	}
	return tx.Commit()
}

// GetSegment returns a segment by ID.
func (s *SQLiteStorage) GetSegment(ctx context.Context, id string) (*models.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, segment_index, position, content, source, created_at
		 FROM segments WHERE id = ?`, id)
	seg, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("segment %s: %w", id, ErrNotFound)
	}
	return seg, err
}

// GetSegments returns the segments with the given IDs in the order of ids. Unknown IDs
// are skipped.
func (s *SQLiteStorage) GetSegments(ctx context.Context, ids []string) ([]*models.Segment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, document_id, segment_index, position, content, source, created_at
		FROM segments WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.Segment, len(ids))
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		byID[seg.ID] = seg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*models.Segment, 0, len(byID))
	for _, id := range ids {
		if seg, ok := byID[id]; ok {
			out = append(out, seg)
		}
	}
	return out, nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountSegments returns the total number of segments.
func (s *SQLiteStorage) CountSegments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&count)
	return count, err
}

// Close closes the database connection. An in-memory database is gone afterwards.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(sc scanner) (*models.Document, error) {
	var doc models.Document
	var src string
	if err := sc.Scan(&doc.ID, &doc.Content, &src, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(src), &doc.Source); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source: %w", err)
	}
	return &doc, nil
}

func scanSegment(sc scanner) (*models.Segment, error) {
	var seg models.Segment
	var src string
	if err := sc.Scan(&seg.ID, &seg.DocumentID, &seg.Index, &seg.Position, &seg.Content, &src, &seg.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(src), &seg.Source); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source: %w", err)
	}
	return &seg, nil
}
