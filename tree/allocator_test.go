package tree

import (
	"encoding/json"
	"testing"
)

// decode unmarshals a JSON literal into the generic document shape the
// package operates on. Fails the test on malformed literals.
func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("bad test literal: %v", err)
	}
	return doc
}

// mustJSON round-trips a document through encoding, giving the
// encoder-normalized form (ints become float64) for stable comparison.
func mustJSON(t *testing.T, doc map[string]any) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestNextNodeID_MixedIDSchemes(t *testing.T) {
	// WHAT: Numeric ids 1 and 10 count, free-form "el-5"/"el-3" are skipped.
	// WHY: Legacy trees mix integer ids with hand-written string ids; the
	// counter must clear the numeric ones and ignore the rest.
	doc := decode(t, `{"root":{"id":1,"children":[
		{"id":"el-5","children":[]},
		{"id":10,"children":[]},
		{"id":"el-3","children":[]}
	]}}`)
	if got := NextNodeID(doc); got != 11 {
		t.Errorf("NextNodeID = %d, want 11", got)
	}
}

func TestNextNodeID_PurelyNumeric(t *testing.T) {
	// WHAT: ids 1, 5, 7 yield 8.
	// WHY: The counter is max+1, not count-based.
	doc := decode(t, `{"root":{"id":1,"children":[
		{"id":5,"children":[]},
		{"id":7,"children":[]}
	]}}`)
	if got := NextNodeID(doc); got != 8 {
		t.Errorf("NextNodeID = %d, want 8", got)
	}
}

func TestNextNodeID_NumericStrings(t *testing.T) {
	// WHAT: A string id "42" participates in the counter.
	// WHY: Ids round-trip through encoders that stringify numbers; both
	// representations must feed the same counter.
	doc := decode(t, `{"root":{"id":"42","children":[]}}`)
	if got := NextNodeID(doc); got != 43 {
		t.Errorf("NextNodeID = %d, want 43", got)
	}
}

func TestNextNodeID_EmptyTree(t *testing.T) {
	// WHAT: A tree with no numeric ids returns 1, never 0.
	// WHY: The root node conventionally occupies id 1; 0 would collide on
	// the next insert.
	cases := []struct {
		name string
		doc  string
	}{
		{"no ids at all", `{"root":{"children":[]}}`},
		{"free-form ids only", `{"root":{"id":"header","children":[]}}`},
		{"empty document", `{}`},
	}
	for _, tc := range cases {
		if got := NextNodeID(decode(t, tc.doc)); got != 1 {
			t.Errorf("%s: NextNodeID = %d, want 1", tc.name, got)
		}
	}
}

func TestNextNodeID_DuplicateIDsTolerated(t *testing.T) {
	// WHAT: Duplicate numeric ids do not error; the counter just clears them.
	// WHY: Duplicates are a Validate concern. The allocator only needs a
	// value safely above all of them.
	doc := decode(t, `{"root":{"id":1,"children":[
		{"id":7,"children":[]},
		{"id":7,"children":[]}
	]}}`)
	if got := NextNodeID(doc); got != 8 {
		t.Errorf("NextNodeID = %d, want 8", got)
	}
}

func TestNextNodeID_BareSubtree(t *testing.T) {
	// WHAT: A node subtree without the "root" wrapper is scanned directly.
	// WHY: Callers hand the allocator either a full document or a fragment.
	doc := decode(t, `{"id":3,"children":[{"id":9,"children":[]}]}`)
	if got := NextNodeID(doc); got != 10 {
		t.Errorf("NextNodeID = %d, want 10", got)
	}
}

func TestNextNodeID_Idempotent(t *testing.T) {
	// WHAT: Feeding the allocator's own output back as an id advances by one.
	// WHY: allocate > max(ids) must keep holding as ids are consumed.
	doc := decode(t, `{"root":{"id":1,"children":[{"id":4,"children":[]}]}}`)
	next := NextNodeID(doc)
	if next != 5 {
		t.Fatalf("NextNodeID = %d, want 5", next)
	}
	kids := doc["root"].(map[string]any)["children"].([]any)
	doc["root"].(map[string]any)["children"] = append(kids,
		map[string]any{"id": next, "children": []any{}})
	if got := NextNodeID(doc); got != next+1 {
		t.Errorf("NextNodeID after insert = %d, want %d", got, next+1)
	}
}
