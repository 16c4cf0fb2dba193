// Package render projects validated planning artifacts to Markdown.
//
// Renderers accept a document guaranteed to have passed schema validation,
// so they never re-check required fields. Output is deterministic: open
// questions and issues are sorted by id, epics by id, and slices stay in
// array order because slice position defines build order.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"slicer/internal/artifact"
)

// emDash is the placeholder for absent values, matching the table cell
// convention of the rendered documents.
const emDash = "—"

var typeDisplay = map[string]string{
	artifact.TypeUserStory: "User Story",
	artifact.TypeTask:      "Task",
	artifact.TypeBug:       "Bug",
}

// issuePrefixOrder ranks issue id prefixes for sorting: user stories first,
// then tasks, then bugs.
var issuePrefixOrder = map[string]int{"US": 0, "TASK": 1, "BUG": 2}

var idPattern = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// idKey produces a sortable key for an id: prefix rank, sequence number,
// then the raw value as a tiebreaker. Unparseable ids sort last.
func idKey(value string, prefixOrder map[string]int) (int, int, string) {
	m := idPattern.FindStringSubmatch(value)
	if m == nil {
		return 99, 0, value
	}
	rank, ok := prefixOrder[m[1]]
	if !ok {
		rank = 99
	}
	num, _ := strconv.Atoi(m[2])
	return rank, num, value
}

func idLess(a, b string, prefixOrder map[string]int) bool {
	ra, na, va := idKey(a, prefixOrder)
	rb, nb, vb := idKey(b, prefixOrder)
	if ra != rb {
		return ra < rb
	}
	if na != nb {
		return na < nb
	}
	return va < vb
}

// cell formats a scalar for Markdown: newlines collapse to spaces, pipes
// are escaped for table safety, and empty values become an em dash.
func cell(value string) string {
	text := strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	if text == "" {
		return emDash
	}
	return strings.ReplaceAll(text, "|", `\|`)
}

// cellList joins list values for a table cell.
func cellList(values []string) string {
	if len(values) == 0 {
		return emDash
	}
	return cell(strings.Join(values, ", "))
}

type writer struct {
	lines []string
}

func (w *writer) line(format string, args ...any) {
	if len(args) == 0 {
		w.lines = append(w.lines, format)
		return
	}
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *writer) blank() {
	w.lines = append(w.lines, "")
}

func (w *writer) bullets(items []string) {
	if len(items) == 0 {
		w.line("- %s", emDash)
		return
	}
	for _, item := range items {
		w.line("- %s", cell(item))
	}
}

func (w *writer) String() string {
	return strings.TrimRight(strings.Join(w.lines, "\n"), "\n") + "\n"
}

func renderMeta(w *writer, meta artifact.Meta) {
	w.line("## Meta")
	w.line("- **Source:** %s", cell(meta.Source))
	w.line("- **Generated:** %s", cell(meta.GeneratedAt))
	if meta.Summary != "" {
		w.line("- **Summary:** %s", cell(meta.Summary))
	}

	w.blank()
	w.line("## Assumptions")
	w.bullets(meta.Assumptions)

	w.blank()
	w.line("## Open Questions")
	if len(meta.OpenQuestions) == 0 {
		w.line("- %s", emDash)
		return
	}

	questions := append([]artifact.OpenQuestion{}, meta.OpenQuestions...)
	sort.SliceStable(questions, func(i, j int) bool {
		return idLess(questions[i].ID, questions[j].ID, map[string]int{"Q": 0})
	})
	for _, q := range questions {
		blocking := "non-blocking"
		if q.Blocking {
			blocking = "blocking"
		}
		w.line("- **%s** (%s, owner: %s): %s", cell(q.ID), blocking, cell(q.Owner), cell(q.Question))
		if strings.TrimSpace(q.Context) != "" {
			w.line("  - Context: %s", cell(q.Context))
		}
	}
}

// SliceMap renders a validated slice map as Markdown. Slices are emitted in
// array order: position is build order and must survive the projection.
func SliceMap(sm *artifact.SliceMap) string {
	w := &writer{}
	w.line("# Slice Map %s %s", emDash, cell(sm.Meta.Project))
	w.blank()
	renderMeta(w, sm.Meta)

	w.blank()
	w.line("## Slice Sequence")
	w.blank()
	w.line("| # | ID | Title |")
	w.line("|---|---|---|")
	for i, s := range sm.Slices {
		w.line("| %d | %s | %s |", i+1, cell(s.ID), cell(s.Title))
	}

	w.blank()
	w.line("## Slice Details")
	for i, s := range sm.Slices {
		w.blank()
		w.line("### %d. %s: %s", i+1, cell(s.ID), cell(s.Title))
		w.blank()
		w.line("**Story**")
		w.line("%s", cell(s.Story))
		w.blank()
		w.line("**In scope**")
		w.bullets(s.ScopeIn)
		w.blank()
		w.line("**Out of scope**")
		w.bullets(s.ScopeOut)
		w.blank()
		w.line("**Sequence rationale**")
		w.line("%s", cell(s.SequenceRationale))
		if len(s.OpenUnknowns) > 0 {
			w.blank()
			w.line("**Open unknowns**")
			w.bullets(s.OpenUnknowns)
		}
	}

	return w.String()
}

// BundleOptions configures issue-bundle rendering.
type BundleOptions struct {
	// EmbedJSON appends the artifact JSON at the end of the document.
	EmbedJSON bool

	// Raw is the original artifact bytes used for the embedded JSON tail.
	// When nil, the typed bundle is marshalled instead.
	Raw []byte
}

// IssueBundle renders a validated issue bundle as Markdown: meta block,
// epics, a backlog summary table, and per-epic issue details with
// user-story children nested under their parent.
func IssueBundle(ib *artifact.IssueBundle, opts BundleOptions) string {
	w := &writer{}
	project := ib.Meta.Project
	if strings.TrimSpace(project) == "" {
		project = "TBD"
	}
	w.line("# Issue Bundle %s %s", emDash, cell(project))
	w.blank()
	renderMeta(w, ib.Meta)

	epicByID := renderEpics(w, ib.Epics)

	sorted := append([]artifact.Issue{}, ib.Issues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return idLess(sorted[i].ID, sorted[j].ID, issuePrefixOrder)
	})

	renderSummaryTable(w, sorted)
	renderIssueDetails(w, sorted, epicByID)

	if opts.EmbedJSON {
		w.blank()
		w.line("## Issue Bundle (JSON)")
		w.blank()
		w.line("```json")
		w.line("%s", embeddedJSON(ib, opts.Raw))
		w.line("```")
	}

	return w.String()
}

func embeddedJSON(ib *artifact.IssueBundle, raw []byte) string {
	if raw != nil {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			return buf.String()
		}
	}
	data, err := json.MarshalIndent(ib, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func renderEpics(w *writer, epics []artifact.Epic) map[string]artifact.Epic {
	w.blank()
	w.line("## Epics")

	epicByID := make(map[string]artifact.Epic, len(epics))
	if len(epics) == 0 {
		w.line("- %s", emDash)
		return epicByID
	}

	sorted := append([]artifact.Epic{}, epics...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return idLess(sorted[i].ID, sorted[j].ID, map[string]int{"E": 0})
	})

	for _, epic := range sorted {
		epicByID[epic.ID] = epic
		w.line("### %s: %s", cell(epic.ID), cell(epic.Title))
		w.line("- **Objective:** %s", cell(epic.Objective))
		w.line("- **Exit criteria:**")
		if len(epic.ExitCriteria) == 0 {
			w.line("  - %s", emDash)
		} else {
			for _, item := range epic.ExitCriteria {
				w.line("  - %s", cell(item))
			}
		}
		if len(epic.NonGoals) > 0 {
			w.line("- **Non-goals:**")
			for _, item := range epic.NonGoals {
				w.line("  - %s", cell(item))
			}
		}
		w.blank()
	}

	// Drop the trailing blank so section spacing stays uniform.
	if len(w.lines) > 0 && w.lines[len(w.lines)-1] == "" {
		w.lines = w.lines[:len(w.lines)-1]
	}
	return epicByID
}

func formatEstimate(e *artifact.Estimate) string {
	if e == nil || e.Method == "" {
		return emDash
	}
	if e.Method == "unknown" {
		return "unknown"
	}
	if e.Value == "" {
		return e.Method
	}
	return e.Method + " " + e.Value
}

func displayType(t string) string {
	if d, ok := typeDisplay[t]; ok {
		return d
	}
	return t
}

func renderSummaryTable(w *writer, issues []artifact.Issue) {
	w.blank()
	w.line("## Backlog Summary")
	w.blank()
	w.line("| ID | Type | P | Status | Epic | Parent | WS | Title | Blocked by |")
	w.line("|---|---|---|---|---|---|---|---|---|")
	for _, issue := range issues {
		w.line("| %s | %s | %s | %s | %s | %s | %s | %s | %s |",
			cell(issue.ID),
			cell(displayType(issue.Type)),
			cell(issue.Priority),
			cell(issue.Status),
			cell(issue.EpicID),
			cell(issue.ParentID),
			cell(issue.Workstream),
			cell(issue.Title),
			cellList(issue.BlockedBy),
		)
	}
}

func renderIssueDetails(w *writer, sorted []artifact.Issue, epicByID map[string]artifact.Epic) {
	childrenByParent := make(map[string][]artifact.Issue)
	for _, issue := range sorted {
		if issue.ParentID != "" {
			childrenByParent[issue.ParentID] = append(childrenByParent[issue.ParentID], issue)
		}
	}

	w.blank()
	w.line("## Issue Details")

	groups := make(map[string][]artifact.Issue)
	for _, issue := range sorted {
		groups[issue.EpicID] = append(groups[issue.EpicID], issue)
	}

	var epicIDs []string
	for id := range groups {
		if id != "" {
			epicIDs = append(epicIDs, id)
		}
	}
	sort.Slice(epicIDs, func(i, j int) bool {
		return idLess(epicIDs[i], epicIDs[j], map[string]int{"E": 0})
	})
	if _, ok := groups[""]; ok {
		epicIDs = append(epicIDs, "")
	}

	for _, epicID := range epicIDs {
		w.blank()
		if epicID == "" {
			w.line("### No Epic")
		} else {
			title := emDash
			if epic, ok := epicByID[epicID]; ok {
				title = cell(epic.Title)
			}
			w.line("### %s: %s", epicID, title)
		}

		group := groups[epicID]
		for _, story := range group {
			if story.Type != artifact.TypeUserStory {
				continue
			}
			renderIssue(w, story)
			for _, child := range childrenByParent[story.ID] {
				renderIssue(w, child)
			}
		}
		for _, issue := range group {
			if issue.Type == artifact.TypeUserStory || issue.ParentID != "" {
				continue
			}
			renderIssue(w, issue)
		}
	}
}

func renderIssue(w *writer, issue artifact.Issue) {
	w.line("#### %s: %s", cell(issue.ID), cell(issue.Title))
	w.line("- **Type:** %s  **Priority:** %s  **Status:** %s  **Estimate:** %s",
		cell(displayType(issue.Type)), cell(issue.Priority), cell(issue.Status),
		cell(formatEstimate(issue.Estimate)))
	w.line("- **Epic:** %s  **Parent:** %s  **Workstream:** %s",
		cell(issue.EpicID), cell(issue.ParentID), cell(issue.Workstream))
	w.line("- **Labels:** %s", cellList(issue.Labels))
	w.line("- **Blocked by:** %s", cellList(issue.BlockedBy))
	w.blank()
	w.line("**Description**")
	w.line("%s", cell(issue.Description))

	switch issue.Type {
	case artifact.TypeUserStory:
		w.blank()
		w.line("**Story**")
		w.line("%s", cell(issue.Story))
		w.blank()
		w.line("**Value**")
		w.line("%s", cell(issue.Value))
		w.blank()
		w.line("**Acceptance Criteria**")
		w.bullets(issue.AcceptanceCriteria)
		renderDoD(w, issue.DefinitionOfDone)

	case artifact.TypeTask:
		w.blank()
		w.line("**Task Kind**")
		w.line("%s", cell(issue.TaskKind))
		w.blank()
		w.line("**Deliverable**")
		w.line("%s", cell(issue.Deliverable))
		w.blank()
		w.line("**Verification**")
		w.line("%s", cell(issue.Verification))
		if len(issue.AcceptanceCriteria) > 0 {
			w.blank()
			w.line("**Acceptance Criteria**")
			w.bullets(issue.AcceptanceCriteria)
		}
		renderDoD(w, issue.DefinitionOfDone)

	case artifact.TypeBug:
		w.blank()
		w.line("**Severity**")
		w.line("%s", cell(issue.Severity))
		w.blank()
		w.line("**Environment**")
		w.line("%s", cell(issue.Environment))
		w.blank()
		w.line("**Steps to Reproduce**")
		w.bullets(issue.StepsToReproduce)
		w.blank()
		w.line("**Expected**")
		w.line("%s", cell(issue.Expected))
		w.blank()
		w.line("**Actual**")
		w.line("%s", cell(issue.Actual))
		w.blank()
		w.line("**Acceptance Criteria**")
		w.bullets(issue.AcceptanceCriteria)
		renderDoD(w, issue.DefinitionOfDone)
	}
	w.blank()
}

func renderDoD(w *writer, items []string) {
	if len(items) == 0 {
		return
	}
	w.blank()
	w.line("**Definition of Done**")
	w.bullets(items)
}
