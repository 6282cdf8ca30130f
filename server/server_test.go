package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/oxybridge/renderer"
	"github.com/hazyhaar/oxybridge/store"
	"github.com/hazyhaar/oxybridge/tree"
)

const validTree = `{"root":{"id":1,"data":{"type":"root","properties":null},"children":[
	{"id":100,"data":{"type":"EssentialElements\\Section","properties":null},"children":[],"_parentId":1}
]},"status":"exported"}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRegenerator records calls without a real builder.
type fakeRegenerator struct {
	calls int
	fail  bool
}

func (f *fakeRegenerator) Regenerate(_ context.Context, _ string, _ json.RawMessage) (*renderer.Result, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("builder down")
	}
	return &renderer.Result{Success: true, DurationMS: 1.5}, nil
}

func testServer(t *testing.T) (*Server, *fakeRegenerator) {
	t.Helper()
	reg := &fakeRegenerator{}
	s := New(store.OpenMemory(t), reg, testLogger(), WithoutAuth())
	return s, reg
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestTemplateLifecycle(t *testing.T) {
	// WHAT: Create, read, update and delete a template through the REST
	// surface; stored trees come back normalized.
	// WHY: This is the primary integration path for external tools.
	s, _ := testServer(t)
	r := s.Router()

	rec := doJSON(t, r, "POST", "/oxybridge/v1/templates",
		`{"title":"Landing","slug":"landing","tree":`+validTree+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d\n%s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	id := created["id"].(string)

	stored := created["tree"].(map[string]any)
	if stored[tree.KeyStatus] != tree.StatusExported {
		t.Errorf("stored tree not normalized: status = %v", stored[tree.KeyStatus])
	}
	if _, ok := stored[tree.KeyNextNodeID]; !ok {
		t.Error("stored tree missing _nextNodeId")
	}

	rec = doJSON(t, r, "GET", "/oxybridge/v1/templates/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if got := decodeBody(t, rec); got["title"] != "Landing" {
		t.Errorf("title = %v", got["title"])
	}

	rec = doJSON(t, r, "PUT", "/oxybridge/v1/templates/"+id,
		`{"title":"Landing v2","tree":`+validTree+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d\n%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec); got["title"] != "Landing v2" {
		t.Errorf("updated title = %v", got["title"])
	}

	rec = doJSON(t, r, "DELETE", "/oxybridge/v1/templates/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = doJSON(t, r, "GET", "/oxybridge/v1/templates/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d, want 404", rec.Code)
	}
}

func TestCreateRejectsInvalidTree(t *testing.T) {
	// WHAT: A tree that fails validation is rejected with 422 and the full
	// error list; nothing is stored.
	// WHY: The REST layer echoes validator output so callers self-correct.
	s, _ := testServer(t)
	r := s.Router()

	bad := `{"root":{"id":1,"data":{"type":"root","properties":null},"children":[
		{"id":2,"data":{"type":"Section"},"children":[],"_parentId":1}
	]}}`
	rec := doJSON(t, r, "POST", "/oxybridge/v1/pages", `{"title":"Bad","tree":`+bad+`}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, want 422\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	validation := body["validation"].(map[string]any)
	if validation["valid"] != false {
		t.Errorf("validation = %v", validation)
	}
	if validation["error_count"].(float64) < 1 {
		t.Error("no errors echoed")
	}

	rec = doJSON(t, r, "GET", "/oxybridge/v1/pages", "")
	var listed []any
	json.Unmarshal(rec.Body.Bytes(), &listed)
	if len(listed) != 0 {
		t.Errorf("invalid tree was stored: %v", listed)
	}
}

func TestCreateEmptyTemplate(t *testing.T) {
	// WHAT: Creating with no tree at all yields a valid empty document.
	// WHY: "Give me an empty template" is a first-class request.
	s, _ := testServer(t)
	rec := doJSON(t, s.Router(), "POST", "/oxybridge/v1/templates", `{"title":"Blank"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d\n%s", rec.Code, rec.Body.String())
	}
	stored := decodeBody(t, rec)["tree"].(map[string]any)
	if report := tree.Validate(stored); !report.Valid {
		t.Errorf("empty template invalid: %+v", report.Errors)
	}
}

func TestAIValidateEndpoint(t *testing.T) {
	// WHAT: /ai/validate returns the validator's report verbatim, for both
	// bare trees and {tree: ...} wrappers.
	// WHY: Validation findings are data, never HTTP errors — the call
	// succeeds even when the tree is hopeless.
	s, _ := testServer(t)
	r := s.Router()

	rec := doJSON(t, r, "POST", "/oxybridge/v1/ai/validate", validTree)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["valid"] != true {
		t.Errorf("valid tree reported invalid: %v", body)
	}

	rec = doJSON(t, r, "POST", "/oxybridge/v1/ai/validate",
		`{"tree":{"root":{"id":"should-be-integer","data":{"type":"root"}},"status":"exported"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["valid"] != false || body["error_count"].(float64) < 1 {
		t.Errorf("broken tree reported valid: %v", body)
	}
}

func TestAITransformEndpoint(t *testing.T) {
	// WHAT: /ai/transform returns {success, tree, _processing}; dangling
	// parents yield 422 with success false and no tree.
	// WHY: Transform errors are fatal per call, unlike validation findings.
	s, _ := testServer(t)
	r := s.Router()

	rec := doJSON(t, r, "POST", "/oxybridge/v1/ai/transform",
		`{"elements":[{"type":"Section"},{"type":"Heading","text":"Hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}
	out := body["tree"].(map[string]any)
	if report := tree.Validate(out); !report.Valid {
		t.Errorf("transform output invalid: %+v", report.Errors)
	}
	if _, ok := body["_processing"].(map[string]any); !ok {
		t.Error("no _processing stats")
	}

	rec = doJSON(t, r, "POST", "/oxybridge/v1/ai/transform",
		`{"elements":[{"type":"Heading","parent":404}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("dangling parent code = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["success"] != false || body["tree"] != nil {
		t.Errorf("partial tree leaked: %v", body)
	}

	rec = doJSON(t, r, "POST", "/oxybridge/v1/ai/transform",
		`{"elements":[{"id":10,"type":"Section","parent":20},{"id":20,"type":"Container","parent":10}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("parent cycle code = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["success"] != false || body["tree"] != nil {
		t.Errorf("partial tree leaked on cycle: %v", body)
	}
}

func TestRegenerateCSS(t *testing.T) {
	// WHAT: /regenerate-css loads the stored tree, calls the builder once,
	// and reports duration; builder failure maps to 502 with success false.
	// WHY: The core only triggers and reports — no retry policy up here.
	s, reg := testServer(t)
	r := s.Router()

	rec := doJSON(t, r, "POST", "/oxybridge/v1/pages", `{"title":"P","tree":`+validTree+`}`)
	id := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, r, "POST", "/oxybridge/v1/regenerate-css/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d\n%s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["success"] != true {
		t.Errorf("body = %v", body)
	}
	if reg.calls != 1 {
		t.Errorf("builder calls = %d, want 1", reg.calls)
	}

	reg.fail = true
	rec = doJSON(t, r, "POST", "/oxybridge/v1/regenerate-css/"+id, "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("failure code = %d, want 502", rec.Code)
	}

	rec = doJSON(t, r, "POST", "/oxybridge/v1/regenerate-css/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing doc code = %d, want 404", rec.Code)
	}
}

func TestDiscoveryEndpoints(t *testing.T) {
	// WHAT: /health, /info, /ai/context and /ai/schema respond without auth.
	// WHY: Agents bootstrap from these before they hold credentials.
	reg := &fakeRegenerator{}
	s := New(store.OpenMemory(t), reg, testLogger()) // auth ON
	r := s.Router()

	for _, path := range []string{"/oxybridge/v1/health", "/oxybridge/v1/info", "/oxybridge/v1/ai/context", "/oxybridge/v1/ai/schema"} {
		rec := doJSON(t, r, "GET", path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: code = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	// WHAT: Without credentials the API 401s; with a seeded application
	// password it works; with a wrong one it 401s again.
	// WHY: Every mutating surface sits behind application passwords.
	st := store.OpenMemory(t)
	if err := st.SeedAppPassword(context.Background(), "agent", "s3cret"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := New(st, &fakeRegenerator{}, testLogger())
	r := s.Router()

	rec := doJSON(t, r, "GET", "/oxybridge/v1/templates", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no creds: %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("no WWW-Authenticate challenge")
	}

	req := httptest.NewRequest("GET", "/oxybridge/v1/templates", nil)
	req.SetBasicAuth("agent", "s3cret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid creds: %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/oxybridge/v1/templates", nil)
	req.SetBasicAuth("agent", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong creds: %d, want 401", rec.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	// WHAT: A body over the configured cap is refused.
	// WHY: Trees are bounded; an unbounded body is abuse, not authoring.
	s := New(store.OpenMemory(t), &fakeRegenerator{}, testLogger(),
		WithoutAuth(), WithMaxBodyBytes(256))
	r := s.Router()

	big := `{"title":"` + strings.Repeat("x", 1024) + `"}`
	rec := doJSON(t, r, "POST", "/oxybridge/v1/pages", big)
	if rec.Code == http.StatusCreated {
		t.Errorf("oversized body accepted: %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	// WHAT: Responses carry X-Request-ID, preserving a caller-supplied one.
	// WHY: Log correlation across the builder boundary.
	s, _ := testServer(t)
	r := s.Router()

	req := httptest.NewRequest("GET", "/oxybridge/v1/health", nil)
	req.Header.Set("X-Request-ID", "corr-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "corr-42" {
		t.Errorf("X-Request-ID = %q", got)
	}

	rec = doJSON(t, r, "GET", "/oxybridge/v1/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request id assigned")
	}
}
