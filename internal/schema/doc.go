// Package schema validates planning artifacts against built-in schemas.
//
// # Overview
//
// Two schemas are registered: "slice-map" (an ordered list of story outlines
// for a feature) and "issue-bundle" (a backlog of epics, user stories,
// tasks, and bugs). Validation is a pure structural check over a parsed
// JSON document: presence, type, enum membership, and identifier patterns,
// followed by a document-wide duplicate-id pass.
//
// # Contract
//
//	res, err := schema.Validate(doc, "slice-map")
//
// err is non-nil only for an unknown schema name. Every document defect is
// reported in res.Violations; the walk never stops at the first problem, so
// a caller can fix a document in one pass. Violations are ordered by
// document position and the order is stable across runs.
//
// # Violation kinds
//
//   - MissingRequiredField - a required key absent from a mapping
//   - TypeMismatch - a present field with the wrong JSON type
//   - InvalidEnumValue - a value outside an enumerated set
//   - PatternMismatch - an identifier not matching its {prefix}-### pattern
//   - DuplicateId - the same identifier declared more than once
//   - EmptyRequiredCollection - a required-non-empty collection that is empty
//
// Any violation makes the document invalid. There is no warning severity in
// the taxonomy; advisory findings (timestamp format, monotonic id
// sequences, dangling blocked_by references, dependency cycles) are carried
// separately in Result.Warnings and never affect validity.
//
// # Design Principles
//
//   - Pure functions over immutable schema values (safe for concurrent use)
//   - Accumulate all violations, never fail fast
//   - Deterministic output order (document order, duplicates last)
//   - No external validation libraries (schemas are small and fixed)
package schema
