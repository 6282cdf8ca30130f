package server

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/oxybridge/renderer"
	"github.com/hazyhaar/oxybridge/store"
)

// Document kinds, re-exported for route construction.
const (
	KindTemplate = store.KindTemplate
	KindPage     = store.KindPage
)

// DocumentStore is what the handlers need from persistence. *store.Store
// satisfies it; tests substitute an in-memory store the same way.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *store.Document) error
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	UpdateDocument(ctx context.Context, id, title, slug, treeJSON string) (*store.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, kind string, limit, offset int) ([]store.Document, error)
	VerifyAppPassword(ctx context.Context, name, secret string) error
}

// CSSRegenerator triggers the external builder's cache rebuild.
// *renderer.Client satisfies it.
type CSSRegenerator interface {
	Regenerate(ctx context.Context, documentID string, treeJSON json.RawMessage) (*renderer.Result, error)
}
