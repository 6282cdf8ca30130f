package tree

import "errors"

// ErrInvalidInput is returned when simplified input is not transformable at
// all (wrong top-level shape, element without a type).
var ErrInvalidInput = errors.New("tree: invalid input")

// ErrUnknownParent is returned when a simplified element names a parent id
// that exists nowhere in the input set. There is no safe default parent to
// fall back to, so the whole transform aborts.
var ErrUnknownParent = errors.New("tree: unknown parent reference")

// ErrParentCycle is returned when simplified elements' parent references
// form a cycle among themselves. Such elements can never reach the root, so
// attaching them would silently drop caller content; the whole transform
// aborts instead.
var ErrParentCycle = errors.New("tree: parent references form a cycle")

// Machine-readable codes carried by validation issues. These are part of the
// wire contract: AI callers branch on them to self-correct.
const (
	CodeMissingRoot       = "missing_root"
	CodeInvalidID         = "invalid_id"
	CodeDuplicateID       = "duplicate_id"
	CodeMissingData       = "missing_data"
	CodeMissingType       = "missing_type"
	CodeInvalidRootType   = "invalid_root_type"
	CodeRootPropsNotNull  = "root_properties_not_null"
	CodeMissingProperties = "missing_properties"
	CodeUnqualifiedType   = "unqualified_type"
	CodeMissingChildren   = "missing_children"
	CodeInvalidChildren   = "invalid_children"
	CodeInvalidNode       = "invalid_node"
	CodeMissingParentID   = "missing_parent_id"
	CodeParentMismatch    = "parent_mismatch"
	CodeInvalidStatus     = "invalid_status"
	CodeCyclicStructure   = "cyclic_structure"
)

// Issue is one structural defect, addressed by a dotted/bracketed path into
// the tree ("root.children[2]._parentId"). Issues are data, not errors:
// validation never throws for malformed content.
type Issue struct {
	Code     string `json:"code"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
}

// Report is the complete result of one validation pass. Valid holds iff
// Errors is empty; Warnings never affect validity.
type Report struct {
	Valid        bool    `json:"valid"`
	Errors       []Issue `json:"errors"`
	Warnings     []Issue `json:"warnings"`
	ErrorCount   int     `json:"error_count"`
	WarningCount int     `json:"warning_count"`
}
