package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hazyhaar/oxybridge/tree"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "oxybridge",
		"version": Version,
		"endpoints": []string{
			apiPrefix + "/templates",
			apiPrefix + "/pages",
			apiPrefix + "/documents/{id}",
			apiPrefix + "/ai/validate",
			apiPrefix + "/ai/transform",
			apiPrefix + "/regenerate-css/{id}",
		},
	})
}

// handleAIValidate runs the validator over a caller-supplied tree. The body
// is either the tree itself or an object wrapping it under "tree".
func (s *Server) handleAIValidate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc := body
	if wrapped, ok := body["tree"].(map[string]any); ok {
		doc = wrapped
	}
	writeJSON(w, http.StatusOK, tree.Validate(doc))
}

// handleAITransform expands a simplified authoring tree into the canonical
// shape. Transform errors (dangling parents, shapeless input) are fatal to
// the call and return no partial tree, unlike validation findings.
func (s *Server) handleAITransform(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, stats, err := tree.TransformSimplified(body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, tree.ErrUnknownParent) || errors.Is(err, tree.ErrParentCycle) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"tree":        doc,
		"_processing": stats,
	})
}

// handleAIContext serves static authoring guidance for AI callers: how the
// simplified shape maps onto the canonical one and which codes the
// validator emits.
func (s *Server) handleAIContext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, aiContext)
}

// handleAISchema serves the canonical tree wire format.
func (s *Server) handleAISchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, aiSchema)
}

var aiContext = map[string]any{
	"service": "oxybridge",
	"version": Version,
	"workflow": []string{
		"POST /ai/transform with a flat element list to get a canonical tree",
		"POST /ai/validate to check a hand-built tree before saving",
		"POST /templates or /pages with {title, slug, tree} to store it",
		"POST /regenerate-css/{id} to rebuild the builder's CSS cache",
	},
	"simplified_input": map[string]any{
		"elements": "array of {type, id?, parent?, text?, properties?}",
		"type":     "element kind; bare names are qualified as EssentialElements\\Name",
		"parent":   "id of another element in the same array; omit to nest under the most recent container",
		"text":     "shorthand for properties.content.content.text; HTML is sanitized",
	},
	"error_codes": []string{
		tree.CodeMissingRoot, tree.CodeInvalidID, tree.CodeDuplicateID,
		tree.CodeMissingData, tree.CodeMissingType, tree.CodeInvalidRootType,
		tree.CodeRootPropsNotNull, tree.CodeMissingProperties,
		tree.CodeUnqualifiedType, tree.CodeMissingChildren,
		tree.CodeInvalidChildren, tree.CodeInvalidNode,
		tree.CodeMissingParentID, tree.CodeParentMismatch,
		tree.CodeInvalidStatus, tree.CodeCyclicStructure,
	},
}

var aiSchema = map[string]any{
	"tree": map[string]any{
		"root":                "Node — the distinguished root element",
		"status":              `always "exported"`,
		"_nextNodeId":         "integer greater than every numeric node id",
		"exportedLookupTable": "object, empty; must never serialize as an array",
	},
	"node": map[string]any{
		"id":        "integer (numeric strings accepted on read)",
		"data":      `{type: string, properties: object|null}`,
		"children":  "ordered Node array, required even when empty",
		"_parentId": "id of the containing node; absent only on root",
	},
	"root_node": map[string]any{
		"id":              1,
		"data.type":       tree.RootType,
		"data.properties": nil,
	},
}
