package tree

// Normalize fills in the scaffolding the builder's structural contract
// requires without altering caller-authored content. It mutates doc in place
// and returns it. Normalize always succeeds; semantic problems it cannot fix
// (a root typed as something other than a Root variant, bad parent
// references) are left for Validate to report.
//
// Rules applied:
//   - a missing root is synthesized as a bare root node
//   - a missing _nextNodeId is computed from the current ids; a present one
//     is preserved verbatim (callers may deliberately reserve a higher range)
//   - a missing exportedLookupTable becomes an empty map — never an empty
//     slice, since the builder's runtime distinguishes {} from [] during
//     deserialization and rejects the latter
//   - a missing status becomes "exported"
//   - a root typed as any namespace-qualified Root variant (case-insensitive)
//     is rewritten to the bare lowercase sentinel
//   - a root whose properties is an empty object is rewritten to explicit
//     null, the only representation the builder accepts on the root
//
// Normalize is idempotent: applying it to its own output changes nothing.
func Normalize(doc map[string]any) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}

	root, ok := asNode(doc[KeyRoot])
	if !ok {
		root = map[string]any{
			KeyID: RootNodeID,
			KeyData: map[string]any{
				KeyType:       RootType,
				KeyProperties: nil,
			},
			KeyChildren: []any{},
		}
		doc[KeyRoot] = root
	}

	if _, present := doc[KeyNextNodeID]; !present {
		doc[KeyNextNodeID] = NextNodeID(doc)
	}
	if _, present := doc[KeyLookupTable]; !present {
		doc[KeyLookupTable] = map[string]any{}
	}
	if _, present := doc[KeyStatus]; !present {
		doc[KeyStatus] = StatusExported
	}

	normalizeRoot(root)
	return doc
}

func normalizeRoot(root map[string]any) {
	data, ok := asNode(root[KeyData])
	if !ok {
		return
	}

	if t, ok := data[KeyType].(string); ok && baseType(t) == RootType {
		data[KeyType] = RootType
	}

	// Different encoders represent "nothing here" differently; the builder
	// demands exactly null on the root, and treats {} as semantically
	// different. Only the empty object is coerced — a populated properties
	// object on the root is a data inconsistency Validate will flag.
	if props, ok := data[KeyProperties].(map[string]any); ok && len(props) == 0 {
		data[KeyProperties] = nil
	}
}
