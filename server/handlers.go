package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/oxybridge/store"
	"github.com/hazyhaar/oxybridge/tree"
)

// documentPayload is the wire form of a stored document: metadata plus the
// embedded tree.
type documentPayload struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Tree      json.RawMessage `json:"tree"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

func toPayload(d *store.Document) documentPayload {
	return documentPayload{
		ID:        d.ID,
		Kind:      d.Kind,
		Title:     d.Title,
		Slug:      d.Slug,
		Tree:      json.RawMessage(d.TreeJSON),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type writeRequest struct {
	Title string         `json:"title"`
	Slug  string         `json:"slug"`
	Tree  map[string]any `json:"tree"`
}

// prepareTree normalizes and validates an incoming tree, writing the 422
// response itself when validation fails. A nil tree yields an empty
// document (the empty-template path). Returns the canonical JSON and true
// on success.
func (s *Server) prepareTree(w http.ResponseWriter, raw map[string]any) (string, bool) {
	if raw == nil {
		raw = map[string]any{}
	}
	doc := tree.Normalize(raw)
	report := tree.Validate(doc)
	if !report.Valid {
		// Echo the validator's findings verbatim; an AI caller fixes the
		// tree from these without a stack trace.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "tree failed validation",
			"validation": report,
		})
		return "", false
	}
	data, err := json.Marshal(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	return string(data), true
}

func (s *Server) handleList(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		docs, err := s.store.ListDocuments(r.Context(), kind, limit, offset)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		payloads := make([]documentPayload, 0, len(docs))
		for i := range docs {
			payloads = append(payloads, toPayload(&docs[i]))
		}
		writeJSON(w, http.StatusOK, payloads)
	}
}

func (s *Server) handleCreate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req writeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		treeJSON, ok := s.prepareTree(w, req.Tree)
		if !ok {
			return
		}
		doc := &store.Document{Kind: kind, Title: req.Title, Slug: req.Slug, TreeJSON: treeJSON}
		if err := s.store.CreateDocument(r.Context(), doc); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPayload(doc))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(doc))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Tree == nil {
		writeError(w, http.StatusBadRequest, "tree is required")
		return
	}
	treeJSON, ok := s.prepareTree(w, req.Tree)
	if !ok {
		return
	}
	doc, err := s.store.UpdateDocument(r.Context(), chi.URLParam(r, "id"), req.Title, req.Slug, treeJSON)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(doc))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRegenerateCSS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	res, err := s.renderer.Regenerate(r.Context(), id, json.RawMessage(doc.TreeJSON))
	if err != nil {
		s.logger.Error("css regeneration failed", "document_id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   "builder regeneration failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
