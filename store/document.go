package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document kinds.
const (
	KindTemplate = "template"
	KindPage     = "page"
)

// ErrNotFound is returned when no document exists with the requested id.
var ErrNotFound = errors.New("store: document not found")

// ErrDuplicateSlug is returned when a slug is already taken within a kind.
var ErrDuplicateSlug = errors.New("store: slug already in use")

// Store wraps the oxybridge database.
type Store struct {
	DB *sql.DB
}

// New creates a Store from an already-opened database connection.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Document is one stored design tree with its CMS-facing metadata. TreeJSON
// is the canonical serialized tree; it is opaque at this layer.
type Document struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	TreeJSON  string `json:"-"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreateDocument inserts a document. An empty id gets a fresh UUIDv7
// (time-sortable, so list-by-recency and insertion order agree).
func (s *Store) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UnixMilli()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO documents (id, kind, title, slug, tree_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Kind, doc.Title, doc.Slug, doc.TreeJSON, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, doc.Slug)
		}
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// GetDocument loads one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, kind, title, slug, tree_json, created_at, updated_at
		 FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Kind, &doc.Title, &doc.Slug, &doc.TreeJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return &doc, nil
}

// UpdateDocument replaces a document's tree and metadata. Empty Title/Slug
// keep the stored values; the tree is always replaced.
func (s *Store) UpdateDocument(ctx context.Context, id string, title, slug, treeJSON string) (*Document, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE documents SET
		   title = CASE WHEN ? != '' THEN ? ELSE title END,
		   slug  = CASE WHEN ? != '' THEN ? ELSE slug END,
		   tree_json = ?,
		   updated_at = ?
		 WHERE id = ?`,
		title, title, slug, slug, treeJSON, time.Now().UnixMilli(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
		}
		return nil, fmt.Errorf("store: update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.GetDocument(ctx, id)
}

// DeleteDocument removes a document by id.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListDocuments returns documents of one kind, most recently updated first.
// Tree JSON is included; a page tree is at most a few hundred KB.
func (s *Store) ListDocuments(ctx context.Context, kind string, limit, offset int) ([]Document, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, kind, title, slug, tree_json, created_at, updated_at
		 FROM documents WHERE kind = ?
		 ORDER BY updated_at DESC LIMIT ? OFFSET ?`, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Kind, &d.Title, &d.Slug, &d.TreeJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
