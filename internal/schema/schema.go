package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownSchema is returned by Validate and Lookup when the schema name
// does not match any registered schema. This signals a caller defect, not a
// document defect.
var ErrUnknownSchema = errors.New("unknown schema")

// valueType enumerates the JSON shapes a field spec can require.
type valueType int

const (
	typeString valueType = iota
	typeBool
	typeObject
	typeStringList
	typeObjectList
)

// jsonTypeName returns the JSON type name for a parsed value, for messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (t valueType) String() string {
	switch t {
	case typeString:
		return "string"
	case typeBool:
		return "boolean"
	case typeObject:
		return "object"
	case typeStringList:
		return "array of strings"
	case typeObjectList:
		return "array of objects"
	default:
		return "unknown"
	}
}

// fieldSpec declares a single field of a record: its name, required JSON
// shape, and any enum, id-pattern, or non-empty constraint. Fields are
// validated in declaration order, which fixes the violation order.
type fieldSpec struct {
	name     string
	typ      valueType
	required bool

	// nonEmpty marks a collection that must contain at least one element.
	nonEmpty bool

	// enum restricts a string field to a fixed set of values.
	enum []string

	// idPrefix marks an identifier field matching {prefix}-NNN with exactly
	// three digits. Identifier values participate in the document-wide
	// duplicate check unless idRef is set.
	idPrefix string

	// idRef marks a field that references an id declared elsewhere
	// (epic_id, parent_id). Pattern-checked, but not a declaration, so it is
	// excluded from duplicate detection.
	idRef bool

	// record describes the element shape for typeObjectList and the nested
	// shape for typeObject.
	record *recordSpec
}

// recordSpec declares an object shape. label names the record in messages
// ("slice", "open question"). A record may carry variants: extra fields
// selected by the value of variantKey (the issue-bundle record picks its
// required fields and id prefix by issue type).
type recordSpec struct {
	label  string
	fields []fieldSpec

	variantKey      string
	variants        map[string][]fieldSpec
	variantIDPrefix map[string]string
}

// Schema is a named, immutable artifact schema. Schemas are built in and
// registered at init time; they carry no runtime state and are safe for
// concurrent use.
type Schema struct {
	// Name is the registry key, e.g. "slice-map".
	Name string

	root recordSpec

	// advise runs schema-specific advisory checks (blocked_by references,
	// dependency cycles) after the structural walk. May be nil.
	advise func(doc map[string]any, res *Result)
}

var registry = map[string]*Schema{}

func register(s *Schema) {
	registry[s.Name] = s
}

// Lookup returns the registered schema for name, or ErrUnknownSchema.
func Lookup(name string) (*Schema, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names returns the registered schema names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Owner values accepted for an open question.
var openQuestionOwners = []string{"product", "engineering", "design", "tbd"}

// openQuestionSpec is shared by both artifact schemas.
var openQuestionSpec = &recordSpec{
	label: "open question",
	fields: []fieldSpec{
		{name: "id", typ: typeString, required: true, idPrefix: "Q"},
		{name: "question", typ: typeString, required: true},
		{name: "blocking", typ: typeBool, required: true},
		{name: "owner", typ: typeString, required: true, enum: openQuestionOwners},
		{name: "context", typ: typeString},
	},
}

func metaSpec(summaryRequired bool) *recordSpec {
	return &recordSpec{
		label: "meta",
		fields: []fieldSpec{
			{name: "project", typ: typeString, required: true},
			{name: "source", typ: typeString, required: true},
			{name: "generated_at", typ: typeString, required: true},
			{name: "summary", typ: typeString, required: summaryRequired},
			{name: "assumptions", typ: typeStringList, required: true},
			{name: "open_questions", typ: typeObjectList, required: true, record: openQuestionSpec},
		},
	}
}

var sliceSpec = &recordSpec{
	label: "slice",
	fields: []fieldSpec{
		{name: "id", typ: typeString, required: true, idPrefix: "S"},
		{name: "title", typ: typeString, required: true},
		{name: "story", typ: typeString, required: true},
		{name: "scope_in", typ: typeStringList, required: true},
		{name: "scope_out", typ: typeStringList, required: true},
		{name: "sequence_rationale", typ: typeString, required: true},
		{name: "open_unknowns", typ: typeStringList},
	},
}

var epicSpec = &recordSpec{
	label: "epic",
	fields: []fieldSpec{
		{name: "id", typ: typeString, required: true, idPrefix: "E"},
		{name: "title", typ: typeString, required: true},
		{name: "objective", typ: typeString, required: true},
		{name: "exit_criteria", typ: typeStringList, required: true},
		{name: "non_goals", typ: typeStringList},
	},
}

var estimateSpec = &recordSpec{
	label: "estimate",
	fields: []fieldSpec{
		{name: "method", typ: typeString, required: true, enum: []string{"story_points", "tshirt", "unknown"}},
		{name: "value", typ: typeString},
	},
}

// issueSpec declares the common issue fields plus per-type variants. The id
// prefix depends on the issue type: US for user stories, TASK for tasks,
// BUG for bugs.
var issueSpec = &recordSpec{
	label: "issue",
	fields: []fieldSpec{
		{name: "id", typ: typeString, required: true},
		{name: "type", typ: typeString, required: true, enum: []string{"user_story", "task", "bug"}},
		{name: "title", typ: typeString, required: true},
		{name: "description", typ: typeString, required: true},
		{name: "priority", typ: typeString, required: true, enum: []string{"P0", "P1", "P2", "P3"}},
		{name: "status", typ: typeString, required: true, enum: []string{"proposed", "ready", "in_progress", "blocked", "done"}},
		{name: "epic_id", typ: typeString, idPrefix: "E", idRef: true},
		{name: "parent_id", typ: typeString, idPrefix: "US", idRef: true},
		{name: "workstream", typ: typeString},
		{name: "labels", typ: typeStringList},
		{name: "blocked_by", typ: typeStringList},
		{name: "estimate", typ: typeObject, record: estimateSpec},
	},
	variantKey: "type",
	variants: map[string][]fieldSpec{
		"user_story": {
			{name: "story", typ: typeString, required: true},
			{name: "value", typ: typeString, required: true},
			{name: "acceptance_criteria", typ: typeStringList, required: true},
			{name: "definition_of_done", typ: typeStringList},
		},
		"task": {
			{name: "task_kind", typ: typeString, required: true},
			{name: "deliverable", typ: typeString, required: true},
			{name: "verification", typ: typeString, required: true},
			{name: "acceptance_criteria", typ: typeStringList},
			{name: "definition_of_done", typ: typeStringList},
		},
		"bug": {
			{name: "severity", typ: typeString, required: true},
			{name: "environment", typ: typeString, required: true},
			{name: "steps_to_reproduce", typ: typeStringList, required: true},
			{name: "expected", typ: typeString, required: true},
			{name: "actual", typ: typeString, required: true},
			{name: "acceptance_criteria", typ: typeStringList},
			{name: "definition_of_done", typ: typeStringList},
		},
	},
	variantIDPrefix: map[string]string{
		"user_story": "US",
		"task":       "TASK",
		"bug":        "BUG",
	},
}

func init() {
	register(&Schema{
		Name: "slice-map",
		root: recordSpec{
			label: "slice map",
			fields: []fieldSpec{
				{name: "meta", typ: typeObject, required: true, record: metaSpec(true)},
				{name: "slices", typ: typeObjectList, required: true, nonEmpty: true, record: sliceSpec},
			},
		},
	})

	register(&Schema{
		Name: "issue-bundle",
		root: recordSpec{
			label: "issue bundle",
			fields: []fieldSpec{
				{name: "meta", typ: typeObject, required: true, record: metaSpec(false)},
				{name: "epics", typ: typeObjectList, required: true, record: epicSpec},
				{name: "issues", typ: typeObjectList, required: true, nonEmpty: true, record: issueSpec},
			},
		},
		advise: adviseIssueBundle,
	})
}
