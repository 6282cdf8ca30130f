package store

import (
	"context"
	"errors"
	"testing"
)

const sampleTree = `{"root":{"id":1,"data":{"type":"root","properties":null},"children":[]},"status":"exported","_nextNodeId":2,"exportedLookupTable":{}}`

func TestDocumentCRUD(t *testing.T) {
	// WHAT: Create, read, update, delete round-trips a document.
	// WHY: This is the storage path behind every REST write.
	s := OpenMemory(t)
	ctx := context.Background()

	doc := &Document{Kind: KindTemplate, Title: "Landing", Slug: "landing", TreeJSON: sampleTree}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("no id assigned")
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Landing" || got.TreeJSON != sampleTree {
		t.Errorf("got = %+v", got)
	}

	updated, err := s.UpdateDocument(ctx, doc.ID, "Landing v2", "", sampleTree)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Landing v2" || updated.Slug != "landing" {
		t.Errorf("update kept wrong metadata: %+v", updated)
	}
	if updated.UpdatedAt < got.UpdatedAt {
		t.Error("updated_at went backwards")
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestDocumentNotFound(t *testing.T) {
	// WHAT: Missing ids surface ErrNotFound from get, update and delete.
	// WHY: The REST layer maps this sentinel to 404.
	s := OpenMemory(t)
	ctx := context.Background()

	if _, err := s.GetDocument(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get: %v", err)
	}
	if _, err := s.UpdateDocument(ctx, "nope", "", "", sampleTree); !errors.Is(err, ErrNotFound) {
		t.Errorf("update: %v", err)
	}
	if err := s.DeleteDocument(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: %v", err)
	}
}

func TestListDocumentsByKind(t *testing.T) {
	// WHAT: Listing filters by kind and orders by recency.
	// WHY: Templates and pages share a table but distinct REST collections.
	s := OpenMemory(t)
	ctx := context.Background()

	for _, d := range []*Document{
		{Kind: KindTemplate, Title: "T1", TreeJSON: sampleTree},
		{Kind: KindPage, Title: "P1", TreeJSON: sampleTree},
		{Kind: KindTemplate, Title: "T2", TreeJSON: sampleTree},
	} {
		if err := s.CreateDocument(ctx, d); err != nil {
			t.Fatalf("create %s: %v", d.Title, err)
		}
	}

	templates, err := s.ListDocuments(ctx, KindTemplate, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("templates = %d, want 2", len(templates))
	}
	for _, d := range templates {
		if d.Kind != KindTemplate {
			t.Errorf("wrong kind in listing: %+v", d)
		}
	}
}

func TestDuplicateSlugRejected(t *testing.T) {
	// WHAT: Two documents of the same kind cannot share a slug; empty slugs
	// do not collide.
	// WHY: Slugs become URLs downstream.
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.CreateDocument(ctx, &Document{Kind: KindPage, Slug: "home", TreeJSON: sampleTree}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateDocument(ctx, &Document{Kind: KindPage, Slug: "home", TreeJSON: sampleTree})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("duplicate slug: %v, want ErrDuplicateSlug", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.CreateDocument(ctx, &Document{Kind: KindPage, TreeJSON: sampleTree}); err != nil {
			t.Errorf("empty slug %d: %v", i, err)
		}
	}
}

func TestAppPasswords(t *testing.T) {
	// WHAT: Seeding is idempotent; verification accepts the right secret and
	// rejects wrong secrets and unknown names identically.
	// WHY: This is the whole auth story; unknown-vs-wrong must not leak.
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.SeedAppPassword(ctx, "agent", "s3cret"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.SeedAppPassword(ctx, "agent", "different"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	if err := s.VerifyAppPassword(ctx, "agent", "s3cret"); err != nil {
		t.Errorf("verify: %v", err)
	}
	// Re-seed must not have replaced the original secret.
	if err := s.VerifyAppPassword(ctx, "agent", "different"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("re-seeded secret accepted: %v", err)
	}
	if err := s.VerifyAppPassword(ctx, "agent", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong secret: %v", err)
	}
	if err := s.VerifyAppPassword(ctx, "ghost", "s3cret"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown name: %v", err)
	}
}
