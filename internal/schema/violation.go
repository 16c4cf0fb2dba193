package schema

import "fmt"

// Kind classifies a schema violation.
type Kind string

const (
	// KindMissingRequiredField indicates a required key is absent from a mapping.
	KindMissingRequiredField Kind = "MissingRequiredField"

	// KindTypeMismatch indicates a present field whose value has the wrong type.
	KindTypeMismatch Kind = "TypeMismatch"

	// KindInvalidEnumValue indicates a field holds a value outside its enumerated set.
	KindInvalidEnumValue Kind = "InvalidEnumValue"

	// KindPatternMismatch indicates an identifier field that does not match its
	// required prefix/sequence pattern.
	KindPatternMismatch Kind = "PatternMismatch"

	// KindDuplicateId indicates the same identifier appears on more than one
	// record across the document.
	KindDuplicateId Kind = "DuplicateId"

	// KindEmptyRequiredCollection indicates a collection required to be
	// non-empty is empty.
	KindEmptyRequiredCollection Kind = "EmptyRequiredCollection"
)

// Violation describes a single schema conformance failure.
//
// Path is a JSON-pointer-like location of the offending field, e.g.
// "/slices/2/id". Message is human-readable and self-contained.
type Violation struct {
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// String formats the violation as a single report line.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Kind, v.Message)
}

// Warning is an advisory finding that does not affect validity.
//
// Warnings cover style recommendations and strict-mode checks: timestamp
// format, monotonic id sequences, dangling blocked_by references, and
// dependency cycles.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String formats the warning as a single report line.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// Result is the outcome of validating a document against a schema.
//
// Valid is true exactly when Violations is empty. Warnings never affect
// Valid. Violations are ordered by document position (top-level fields
// first, then collections in array order) with duplicate-id findings last,
// so output is deterministic and diffable across runs.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	Warnings   []Warning   `json:"warnings,omitempty"`
}
