package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hazyhaar/oxybridge/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage sentinels onto HTTP statuses without leaking
// internals.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, store.ErrDuplicateSlug):
		writeError(w, http.StatusConflict, "slug already in use")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
