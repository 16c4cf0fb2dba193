package render

import (
	"strings"
	"testing"

	"slicer/internal/artifact"
)

func testSliceMap() *artifact.SliceMap {
	return &artifact.SliceMap{
		Meta: artifact.Meta{
			Project:     "Acme API",
			Source:      "docs/feature-brief.md",
			GeneratedAt: "2026-08-12T09:30:00Z",
			Summary:     "Split rate limiting into buildable slices.",
			Assumptions: []string{"Redis is available."},
			OpenQuestions: []artifact.OpenQuestion{
				{ID: "Q-002", Question: "Second question", Blocking: false, Owner: "tbd"},
				{ID: "Q-001", Question: "First question", Blocking: true, Owner: "product", Context: "Needed before S-002."},
			},
		},
		Slices: []artifact.Slice{
			{
				ID: "S-001", Title: "Fixed-window limiter", Story: "As an operator I can cap traffic.",
				ScopeIn: []string{"counter", "429 response"}, ScopeOut: []string{"quotas"},
				SequenceRationale: "Smallest end-to-end path.",
			},
			{
				ID: "S-002", Title: "Per-account quotas", Story: "As an admin I see my limits.",
				ScopeIn: []string{"quota table"}, ScopeOut: []string{},
				SequenceRationale: "Builds on the counter.",
				OpenUnknowns:      []string{"plan tier defaults"},
			},
		},
	}
}

func testIssueBundle() *artifact.IssueBundle {
	return &artifact.IssueBundle{
		Meta: artifact.Meta{
			Project:     "Acme API",
			Source:      "slice-map.json",
			GeneratedAt: "2026-08-13T10:00:00Z",
		},
		Epics: []artifact.Epic{
			{ID: "E-001", Title: "Rate limiting", Objective: "Protect the API.",
				ExitCriteria: []string{"429s under load"}, NonGoals: []string{"billing"}},
		},
		Issues: []artifact.Issue{
			{
				ID: "BUG-001", Type: artifact.TypeBug, Title: "Preflight counted",
				Description: "OPTIONS consume quota.", Priority: "P2", Status: "proposed",
				EpicID: "E-001", Severity: "minor", Environment: "staging",
				StepsToReproduce: []string{"send OPTIONS burst"},
				Expected:         "Exempt.", Actual: "Counted.",
			},
			{
				ID: "TASK-001", Type: artifact.TypeTask, Title: "Provision Redis",
				Description: "Stand up Redis.", Priority: "P1", Status: "proposed",
				EpicID: "E-001", ParentID: "US-001",
				TaskKind: "infra", Deliverable: "Redis reachable", Verification: "Staging check.",
				BlockedBy: []string{"US-001"},
			},
			{
				ID: "US-001", Type: artifact.TypeUserStory, Title: "Traffic is limited",
				Description: "Limiter in middleware.", Priority: "P1", Status: "ready",
				EpicID: "E-001", Story: "As an operator I can cap traffic.",
				Value:              "Protects everyone else.",
				AcceptanceCriteria: []string{"over cap gets 429"},
				Estimate:           &artifact.Estimate{Method: "story_points", Value: "3"},
			},
			{
				ID: "TASK-002", Type: artifact.TypeTask, Title: "Load test rig",
				Description: "Synthetic traffic generator.", Priority: "P3", Status: "proposed",
				TaskKind: "tooling", Deliverable: "rig script", Verification: "Manual run.",
			},
		},
	}
}

// mustContainInOrder asserts each needle appears in the output after the
// previous one.
func mustContainInOrder(t *testing.T, output string, needles ...string) {
	t.Helper()
	pos := 0
	for _, needle := range needles {
		i := strings.Index(output[pos:], needle)
		if i < 0 {
			t.Fatalf("output missing %q after position %d\noutput:\n%s", needle, pos, output)
		}
		pos += i + len(needle)
	}
}

func TestSliceMapOrdering(t *testing.T) {
	out := SliceMap(testSliceMap())

	// Slices stay in array order; open questions sort by id.
	mustContainInOrder(t, out,
		"# Slice Map",
		"Acme API",
		"## Open Questions",
		"Q-001",
		"Q-002",
		"## Slice Sequence",
		"| 1 | S-001 |",
		"| 2 | S-002 |",
		"### 1. S-001:",
		"### 2. S-002:",
	)
}

func TestSliceMapSections(t *testing.T) {
	out := SliceMap(testSliceMap())

	for _, want := range []string{
		"**Q-001** (blocking, owner: product): First question",
		"- Context: Needed before S-002.",
		"**Q-002** (non-blocking, owner: tbd): Second question",
		"**In scope**",
		"**Out of scope**",
		"**Sequence rationale**",
		"**Open unknowns**",
		"- plan tier defaults",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// The second slice has an empty scope_out, shown as a dash bullet.
	if !strings.Contains(out, "- "+emDash) {
		t.Error("empty list not rendered as placeholder bullet")
	}
}

func TestIssueBundleSummarySortsByPrefix(t *testing.T) {
	out := IssueBundle(testIssueBundle(), BundleOptions{})

	mustContainInOrder(t, out,
		"## Backlog Summary",
		"| US-001 |",
		"| TASK-001 |",
		"| TASK-002 |",
		"| BUG-001 |",
	)
}

func TestIssueBundleNestsChildrenUnderParent(t *testing.T) {
	out := IssueBundle(testIssueBundle(), BundleOptions{})

	// Inside E-001: the user story first, its child task directly after,
	// then the parentless bug. TASK-002 has no epic and lands in No Epic.
	mustContainInOrder(t, out,
		"## Issue Details",
		"### E-001: Rate limiting",
		"#### US-001:",
		"#### TASK-001:",
		"#### BUG-001:",
		"### No Epic",
		"#### TASK-002:",
	)
}

func TestIssueBundleFieldBlocks(t *testing.T) {
	out := IssueBundle(testIssueBundle(), BundleOptions{})

	for _, want := range []string{
		"**Estimate:** story_points 3",
		"**Blocked by:** US-001",
		"**Acceptance Criteria**",
		"**Task Kind**",
		"**Deliverable**",
		"**Verification**",
		"**Severity**",
		"**Steps to Reproduce**",
		"- **Non-goals:**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestIssueBundleEmbedJSON(t *testing.T) {
	raw := []byte(`{"meta":{"project":"Acme API"},"epics":[],"issues":[]}`)
	out := IssueBundle(testIssueBundle(), BundleOptions{EmbedJSON: true, Raw: raw})

	mustContainInOrder(t, out,
		"## Issue Bundle (JSON)",
		"```json",
		`"project": "Acme API"`,
		"```",
	)

	// Without the option there is no JSON tail.
	plain := IssueBundle(testIssueBundle(), BundleOptions{})
	if strings.Contains(plain, "```json") {
		t.Error("unexpected JSON tail without EmbedJSON")
	}
}

func TestCellEscaping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", emDash},
		{"  ", emDash},
		{"plain", "plain"},
		{"a|b", `a\|b`},
		{"line1\nline2", "line1 line2"},
	}
	for _, tt := range tests {
		if got := cell(tt.in); got != tt.want {
			t.Errorf("cell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFreeTextRendersVerbatim(t *testing.T) {
	// Prose fields are emitted as values, never as format strings, so
	// percent signs and printf verbs must survive untouched.
	sm := testSliceMap()
	sm.Slices[0].Story = "Reject 100% of traffic over the cap (%d is a literal here)."
	sm.Slices[0].SequenceRationale = "Covers 80%s of the risk."

	out := SliceMap(sm)
	for _, want := range []string{
		"Reject 100% of traffic over the cap (%d is a literal here).",
		"Covers 80%s of the risk.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}

	ib := testIssueBundle()
	ib.Issues[2].Value = "Keeps p99 under 100ms for 95% of tenants."
	bundleOut := IssueBundle(ib, BundleOptions{})
	if !strings.Contains(bundleOut, "Keeps p99 under 100ms for 95% of tenants.") {
		t.Errorf("bundle output mangled the percent sign:\n%s", bundleOut)
	}
}
