package tree

import (
	"fmt"
	"strconv"
)

// maxDepth bounds the recursive traversal. A genuine page tree is a few
// levels deep; anything approaching this limit is a cyclic children graph
// built programmatically, which JSON decoding alone cannot produce but
// in-process callers can.
const maxDepth = 1000

// Validate walks the document depth-first and accumulates every structural
// defect it finds, rather than failing on the first. It never mutates its
// input and never panics for malformed content; a nil or root-less document
// simply yields a missing_root error.
//
// Validate applies the strict id contract: every node, root included, must
// carry an id that is a native integer or a string fully parseable as one.
// (NextNodeID is deliberately more permissive — free-form legacy ids are
// skipped there, but they are defects here.)
//
// Repeated numeric ids are reported as duplicate_id and descent below the
// repeated node stops, which also breaks id-carrying reference cycles. A
// traversal deeper than maxDepth is reported as cyclic_structure.
func Validate(doc map[string]any) *Report {
	v := &validator{seen: make(map[int]bool)}

	root, ok := asNode(doc[KeyRoot])
	if !ok {
		v.errorf(CodeMissingRoot, KeyRoot, "", "tree has no root node")
	} else {
		v.walkNode(root, KeyRoot, 0, false, 0, true)
	}

	if status, _ := doc[KeyStatus].(string); status != StatusExported {
		v.errorf(CodeInvalidStatus, KeyStatus, StatusExported,
			"status must be %q, got %v", StatusExported, doc[KeyStatus])
	}

	return v.report()
}

type validator struct {
	errors   []Issue
	warnings []Issue
	seen     map[int]bool
}

func (v *validator) errorf(code, path, expected, format string, args ...any) {
	v.errors = append(v.errors, Issue{
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
	})
}

func (v *validator) warnf(code, path, expected, format string, args ...any) {
	v.warnings = append(v.warnings, Issue{
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
	})
}

// walkNode checks one node and recurses into its children. parentID is the
// id of the containing node; parentKnown is false when that id itself failed
// coercion, in which case only the presence of _parentId can be checked.
func (v *validator) walkNode(node map[string]any, path string, parentID int, parentKnown bool, depth int, isRoot bool) {
	if depth > maxDepth {
		v.errorf(CodeCyclicStructure, path, "",
			"traversal exceeded depth %d; children graph is cyclic or degenerate", maxDepth)
		return
	}

	id, idOK := CoerceID(node[KeyID])
	if !idOK {
		if _, present := node[KeyID]; !present {
			v.errorf(CodeInvalidID, path+"."+KeyID, "integer", "node has no id")
		} else {
			v.errorf(CodeInvalidID, path+"."+KeyID, "integer",
				"id %v is not an integer or numeric string", node[KeyID])
		}
	} else if v.seen[id] {
		v.errorf(CodeDuplicateID, path+"."+KeyID, "",
			"id %d already used by another node", id)
		return // do not descend: a repeated id may be a back-reference
	} else {
		v.seen[id] = true
	}

	v.checkData(node, path, isRoot)

	if !isRoot {
		v.checkParentRef(node, path, parentID, parentKnown)
	}

	children, present := node[KeyChildren]
	if !present {
		v.errorf(CodeMissingChildren, path+"."+KeyChildren, "array",
			"node has no children key (an empty array is required)")
		return
	}
	list, ok := children.([]any)
	if !ok {
		v.errorf(CodeInvalidChildren, path+"."+KeyChildren, "array",
			"children must be an array, got %T", children)
		return
	}
	for i, child := range list {
		childPath := fmt.Sprintf("%s.%s[%d]", path, KeyChildren, i)
		c, ok := asNode(child)
		if !ok {
			v.errorf(CodeInvalidNode, childPath, "object",
				"child is not an object, got %T", child)
			continue
		}
		v.walkNode(c, childPath, id, idOK, depth+1, false)
	}
}

func (v *validator) checkData(node map[string]any, path string, isRoot bool) {
	data, ok := asNode(node[KeyData])
	if !ok {
		v.errorf(CodeMissingData, path+"."+KeyData, "object",
			"node has no data object")
		return
	}

	typ, ok := data[KeyType].(string)
	if !ok || typ == "" {
		v.errorf(CodeMissingType, path+"."+KeyData+"."+KeyType, "string",
			"node data has no type")
	} else if isRoot {
		if typ != RootType {
			v.errorf(CodeInvalidRootType, path+"."+KeyData+"."+KeyType, RootType,
				"root type must be exactly %q, got %q", RootType, typ)
		}
	} else if !IsQualifiedType(typ) {
		v.errorf(CodeUnqualifiedType, path+"."+KeyData+"."+KeyType,
			"namespace-qualified type",
			"type %q has no namespace; the builder cannot resolve unqualified types", typ)
	}

	props, present := data[KeyProperties]
	if isRoot {
		switch {
		case !present:
			v.errorf(CodeMissingProperties, path+"."+KeyData+"."+KeyProperties, "null",
				"root data has no properties key")
		case props != nil:
			// {} and null are semantically different to the builder; only
			// null is accepted on the root. Distinct code so callers can
			// tell "merely empty" apart from "missing".
			v.errorf(CodeRootPropsNotNull, path+"."+KeyData+"."+KeyProperties, "null",
				"root properties must be explicit null, got %v", props)
		}
	} else if !present {
		v.warnf(CodeMissingProperties, path+"."+KeyData+"."+KeyProperties, "object or null",
			"node data has no properties key")
	}
}

// checkParentRef verifies the back-reference on a non-root node. Mismatches
// are reported at the child's path, not the parent's.
func (v *validator) checkParentRef(node map[string]any, path string, parentID int, parentKnown bool) {
	ref, present := node[KeyParentID]
	if !present {
		expected := ""
		if parentKnown {
			expected = strconv.Itoa(parentID)
		}
		v.errorf(CodeMissingParentID, path+"."+KeyParentID, expected,
			"node has no _parentId")
		return
	}
	if !parentKnown {
		return // containing node's id is itself broken; already reported there
	}
	got, ok := CoerceID(ref)
	if !ok || got != parentID {
		v.errorf(CodeParentMismatch, path+"."+KeyParentID, strconv.Itoa(parentID),
			"_parentId %v does not match containing node id %d", ref, parentID)
	}
}

func (v *validator) report() *Report {
	r := &Report{
		Valid:        len(v.errors) == 0,
		Errors:       v.errors,
		Warnings:     v.warnings,
		ErrorCount:   len(v.errors),
		WarningCount: len(v.warnings),
	}
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	return r
}
