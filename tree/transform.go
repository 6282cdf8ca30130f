package tree

import (
	"fmt"
	"runtime"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// containerKinds are the element kinds (namespace stripped, lowercased) that
// accept children. Declaration-order parent inference attaches loose
// elements to the most recently declared one of these.
var containerKinds = map[string]bool{
	"section":   true,
	"container": true,
	"div":       true,
	"columns":   true,
	"column":    true,
	"grid":      true,
	"wrapper":   true,
}

// textPolicy sanitizes the single-level text shorthand before it is embedded
// in the canonical content convention. Simplified input comes from AI agents
// and external tools, and the builder renders stored markup verbatim.
var textPolicy = bluemonday.UGCPolicy()

// Stats describes one transform run, for observability on large trees.
type Stats struct {
	Nodes      int     `json:"nodes_processed"`
	DurationMS float64 `json:"duration_ms"`
	HeapBytes  uint64  `json:"heap_bytes"`
}

// element is one entry of the simplified authoring shape after shallow
// decoding: a flat descriptor with optional explicit parent and text
// shorthand.
type element struct {
	raw    map[string]any
	id     int
	node   map[string]any
	parent any // raw "parent" value, nil when absent
}

// TransformSimplified expands the flat authoring shape into a fully
// normalized document ready for storage. Input is either a plain element
// array or an object carrying one under "elements" (or "nodes").
//
// Elements with an explicit "parent" id are grouped under that element —
// a parent id that exists nowhere in the input aborts the whole transform
// with ErrUnknownParent, and parent references that cycle among the
// elements abort with ErrParentCycle; no partial tree is returned in
// either case. Elements without one
// are attached to the most recently declared container-like element, or to
// the root when none has been declared yet. The single-level "text"
// shorthand is rewritten into the doubly-nested properties.content.content
// convention the builder's runtime expects. Ids are renumbered where they
// collide (with each other or with the root's id 1), and the result is
// re-run through NextNodeID and Normalize so it independently satisfies
// Validate.
func TransformSimplified(input any) (map[string]any, *Stats, error) {
	start := time.Now()

	rawElems, err := elementList(input)
	if err != nil {
		return nil, nil, err
	}

	elems := make([]*element, 0, len(rawElems))
	used := map[int]bool{RootNodeID: true}
	next := RootNodeID + 1

	// First pass: claim caller-supplied ids so renumbering never collides
	// with them, then assign fresh ids to the rest.
	for i, raw := range rawElems {
		m, ok := asNode(raw)
		if !ok {
			return nil, nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidInput, i)
		}
		e := &element{raw: m}
		if id, ok := CoerceID(m[KeyID]); ok && !used[id] {
			e.id = id
			used[id] = true
		}
		elems = append(elems, e)
	}
	for _, e := range elems {
		if e.id == 0 {
			for used[next] {
				next++
			}
			e.id = next
			used[next] = true
		}
	}

	// Second pass: build canonical nodes and index them by id.
	byID := make(map[int]*element, len(elems))
	for i, e := range elems {
		node, err := buildNode(e.raw, e.id)
		if err != nil {
			return nil, nil, fmt.Errorf("element %d: %w", i, err)
		}
		e.node = node
		e.parent = e.raw["parent"]
		byID[e.id] = e
	}

	// Third pass: attach. Explicit parents are resolved against the input
	// set; loose elements fall back to the last declared container.
	root := map[string]any{
		KeyID: RootNodeID,
		KeyData: map[string]any{
			KeyType:       RootType,
			KeyProperties: nil,
		},
		KeyChildren: []any{},
	}
	var lastContainer *element
	for i, e := range elems {
		parentID := RootNodeID
		switch {
		case e.parent != nil:
			pid, ok := CoerceID(e.parent)
			if !ok {
				return nil, nil, fmt.Errorf("%w: element %d parent %v is not an id",
					ErrInvalidInput, i, e.parent)
			}
			if pid != RootNodeID {
				target, found := byID[pid]
				if !found {
					return nil, nil, fmt.Errorf("%w: element %d references parent %d which is not in the input",
						ErrUnknownParent, i, pid)
				}
				appendChild(target.node, e.node)
				parentID = pid
				break
			}
			appendChild(root, e.node)
		case lastContainer != nil:
			appendChild(lastContainer.node, e.node)
			parentID = lastContainer.id
		default:
			appendChild(root, e.node)
		}
		e.node[KeyParentID] = parentID

		if typ, _ := e.node[KeyData].(map[string]any)[KeyType].(string); containerKinds[baseType(typ)] {
			lastContainer = e
		}
	}

	// Elements whose explicit parents reference each other attach to one
	// another but never to the root, vanishing from the output. Walk each
	// parent chain to the root; a repeated id on the way is a cycle.
	for i, e := range elems {
		seen := map[int]bool{e.id: true}
		cur := e
		for {
			pid, _ := cur.node[KeyParentID].(int)
			if pid == RootNodeID {
				break
			}
			if seen[pid] {
				return nil, nil, fmt.Errorf("%w: element %d never reaches the root",
					ErrParentCycle, i)
			}
			seen[pid] = true
			cur = byID[pid]
		}
	}

	doc := Normalize(map[string]any{KeyRoot: root})

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := &Stats{
		Nodes:      len(elems) + 1,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
		HeapBytes:  mem.HeapInuse,
	}
	return doc, stats, nil
}

// elementList unwraps the accepted simplified input shapes.
func elementList(input any) ([]any, error) {
	switch in := input.(type) {
	case []any:
		return in, nil
	case map[string]any:
		for _, key := range []string{"elements", "nodes"} {
			if list, ok := in[key].([]any); ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("%w: expected an element array under \"elements\"", ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: expected an element array, got %T", ErrInvalidInput, input)
	}
}

// buildNode converts one simplified descriptor into a canonical node.
func buildNode(raw map[string]any, id int) (map[string]any, error) {
	typ, _ := raw[KeyType].(string)
	if typ == "" {
		return nil, fmt.Errorf("%w: element has no type", ErrInvalidInput)
	}

	props, _ := raw[KeyProperties].(map[string]any)
	if text, ok := raw["text"].(string); ok && text != "" {
		props = withText(props, textPolicy.Sanitize(text))
	}

	var propsVal any
	if props != nil {
		propsVal = props
	}
	return map[string]any{
		KeyID: id,
		KeyData: map[string]any{
			KeyType:       QualifyType(typ),
			KeyProperties: propsVal,
		},
		KeyChildren: []any{},
	}, nil
}

// withText writes the doubly-nested content convention, preserving any
// sibling keys the caller already placed under properties.
func withText(props map[string]any, text string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	outer, ok := props["content"].(map[string]any)
	if !ok {
		outer = map[string]any{}
		props["content"] = outer
	}
	inner, ok := outer["content"].(map[string]any)
	if !ok {
		inner = map[string]any{}
		outer["content"] = inner
	}
	inner["text"] = text
	return props
}

func appendChild(parent, child map[string]any) {
	kids := childList(parent)
	parent[KeyChildren] = append(kids, child)
}
