package tree

// NextNodeID computes the smallest integer strictly greater than every
// numeric-parseable id in the document, whether stored as a native number or
// a numeric string. Free-form string ids are legacy identifiers and do not
// participate in the counter. The result is never below 1: the root node
// conventionally occupies id 1, so an id-less tree still yields 1.
//
// Duplicate numeric ids are not this function's concern — it only needs a
// value safely above all of them. NextNodeID cannot fail.
//
// The argument may be a full document (with a "root" key) or a bare node
// subtree; both are scanned the same way.
func NextNodeID(doc map[string]any) int {
	max := 0
	if root, ok := asNode(doc[KeyRoot]); ok {
		scanMaxID(root, &max)
	} else if _, hasID := doc[KeyID]; hasID || doc[KeyChildren] != nil {
		scanMaxID(doc, &max)
	}
	if max < RootNodeID {
		return RootNodeID
	}
	return max + 1
}

func scanMaxID(node map[string]any, max *int) {
	if id, ok := CoerceID(node[KeyID]); ok && id > *max {
		*max = id
	}
	for _, child := range childList(node) {
		if c, ok := asNode(child); ok {
			scanMaxID(c, max)
		}
	}
}
