// Package tree implements the element-tree contract of the Breakdance/Oxygen
// page builder: normalization of raw design trees into the shape the builder's
// runtime accepts, structural validation with path-addressed error records,
// node-id allocation, and expansion of simplified authoring input into the
// canonical nested form.
//
// The package operates on decoded JSON (map[string]any) rather than typed
// structs on purpose: its job is to detect and report shape defects — a
// missing "children" key, an id arriving as a free-form string, an empty
// object where the builder demands an explicit null — that a typed
// representation would either mask or reject before we could describe them.
//
// The styling payload under data.properties is opaque to this package. Only
// the tree skeleton is checked; property semantics (colors, units, breakpoints)
// belong to the builder's own runtime.
package tree

import (
	"math"
	"strconv"
	"strings"
)

const (
	// RootType is the sentinel type of the distinguished root node. The
	// builder stores it bare and lowercase, unlike every other element type,
	// which is namespace-qualified.
	RootType = "root"

	// StatusExported marks a tree as a complete exported snapshot, as
	// opposed to a partial in-progress one.
	StatusExported = "exported"

	// TypeSeparator separates the namespace from the element kind in a
	// qualified type, e.g. "EssentialElements\\Section".
	TypeSeparator = `\`

	// DefaultNamespace qualifies bare element kinds submitted through the
	// simplified authoring shape.
	DefaultNamespace = "EssentialElements"

	// RootNodeID is the conventional id of the root node.
	RootNodeID = 1
)

// Top-level document keys required by the builder's structural contract.
const (
	KeyRoot        = "root"
	KeyStatus      = "status"
	KeyNextNodeID  = "_nextNodeId"
	KeyLookupTable = "exportedLookupTable"
)

// CoerceID interprets a node id as an integer. Ids arrive either as native
// JSON numbers or as numeric strings; both participate in the numeric
// counter. Free-form string ids ("el-5") and fractional numbers do not.
func CoerceID(v any) (int, bool) {
	switch id := v.(type) {
	case int:
		return id, true
	case int64:
		return int(id), true
	case float64:
		if id != math.Trunc(id) {
			return 0, false
		}
		return int(id), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// IsQualifiedType reports whether t carries a namespace prefix.
func IsQualifiedType(t string) bool {
	return strings.Contains(t, TypeSeparator)
}

// QualifyType prefixes a bare element kind with the default namespace.
// Already-qualified types are returned unchanged.
func QualifyType(t string) string {
	if t == "" || t == RootType || IsQualifiedType(t) {
		return t
	}
	return DefaultNamespace + TypeSeparator + t
}

// baseType returns the element kind without its namespace, lowercased.
func baseType(t string) string {
	if i := strings.LastIndex(t, TypeSeparator); i >= 0 {
		t = t[i+len(TypeSeparator):]
	}
	return strings.ToLower(t)
}

// node and children pull the standard shapes out of a decoded JSON value,
// tolerating absence and wrong types (that is the validator's business).
func asNode(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func childList(node map[string]any) []any {
	kids, _ := node[KeyChildren].([]any)
	return kids
}

// Node-level keys.
const (
	KeyID         = "id"
	KeyData       = "data"
	KeyType       = "type"
	KeyProperties = "properties"
	KeyChildren   = "children"
	KeyParentID   = "_parentId"
)

// Empty returns a minimal normalized document: a bare root with no children,
// ready for storage. Used when a caller requests an empty template.
func Empty() map[string]any {
	return Normalize(map[string]any{})
}
