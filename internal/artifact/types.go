package artifact

import (
	"encoding/json"
	"fmt"
)

// Meta carries the shared header of both artifact kinds. Summary is
// required for slice maps and optional for issue bundles.
type Meta struct {
	Project       string         `json:"project"`
	Source        string         `json:"source"`
	GeneratedAt   string         `json:"generated_at"`
	Summary       string         `json:"summary,omitempty"`
	Assumptions   []string       `json:"assumptions"`
	OpenQuestions []OpenQuestion `json:"open_questions"`
}

// OpenQuestion is an unresolved question attached to an artifact.
// Owner routes it: product, engineering, design, or tbd.
type OpenQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Blocking bool   `json:"blocking"`
	Owner    string `json:"owner"`
	Context  string `json:"context,omitempty"`
}

// Slice is one story outline in a slice map. Array position defines build
// order, so reordering slices changes the artifact's meaning.
type Slice struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Story             string   `json:"story"`
	ScopeIn           []string `json:"scope_in"`
	ScopeOut          []string `json:"scope_out"`
	SequenceRationale string   `json:"sequence_rationale"`
	OpenUnknowns      []string `json:"open_unknowns,omitempty"`
}

// SliceMap is the ordered list of story outlines for a feature.
type SliceMap struct {
	Meta   Meta    `json:"meta"`
	Slices []Slice `json:"slices"`
}

// Epic groups issues under a shared objective in an issue bundle.
type Epic struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Objective    string   `json:"objective"`
	ExitCriteria []string `json:"exit_criteria"`
	NonGoals     []string `json:"non_goals,omitempty"`
}

// Estimate is an optional sizing attached to an issue.
type Estimate struct {
	Method string `json:"method"`
	Value  string `json:"value,omitempty"`
}

// Issue types.
const (
	TypeUserStory = "user_story"
	TypeTask      = "task"
	TypeBug       = "bug"
)

// Issue is one backlog item. The type field selects which of the
// type-specific fields are populated: story/value/acceptance_criteria for
// user stories, task_kind/deliverable/verification for tasks, and
// severity/environment/steps/expected/actual for bugs.
type Issue struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	EpicID      string    `json:"epic_id,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Workstream  string    `json:"workstream,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	BlockedBy   []string  `json:"blocked_by,omitempty"`
	Estimate    *Estimate `json:"estimate,omitempty"`

	// user_story
	Story              string   `json:"story,omitempty"`
	Value              string   `json:"value,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	DefinitionOfDone   []string `json:"definition_of_done,omitempty"`

	// task
	TaskKind     string `json:"task_kind,omitempty"`
	Deliverable  string `json:"deliverable,omitempty"`
	Verification string `json:"verification,omitempty"`

	// bug
	Severity         string   `json:"severity,omitempty"`
	Environment      string   `json:"environment,omitempty"`
	StepsToReproduce []string `json:"steps_to_reproduce,omitempty"`
	Expected         string   `json:"expected,omitempty"`
	Actual           string   `json:"actual,omitempty"`
}

// IssueBundle is the backlog artifact: epics plus a flat issue list.
type IssueBundle struct {
	Meta   Meta    `json:"meta"`
	Epics  []Epic  `json:"epics"`
	Issues []Issue `json:"issues"`
}

// DecodeSliceMap decodes raw JSON into the typed slice-map form. Callers
// are expected to have validated the document first; decode errors here
// indicate a programming error, not a user-facing validation failure.
func DecodeSliceMap(data []byte) (*SliceMap, error) {
	var sm SliceMap
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("failed to decode slice map: %w", err)
	}
	return &sm, nil
}

// DecodeIssueBundle decodes raw JSON into the typed issue-bundle form.
func DecodeIssueBundle(data []byte) (*IssueBundle, error) {
	var ib IssueBundle
	if err := json.Unmarshal(data, &ib); err != nil {
		return nil, fmt.Errorf("failed to decode issue bundle: %w", err)
	}
	return &ib, nil
}
