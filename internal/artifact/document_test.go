package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"meta": {"project": "Acme API"}, "slices": []}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	meta, ok := doc["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta is %T, want object", doc["meta"])
	}
	if meta["project"] != "Acme API" {
		t.Errorf("project = %v", meta["project"])
	}
}

func TestParseDocumentNumbers(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"count": 3, "ratio": 0.5}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if v, ok := doc["count"].(float64); !ok || v != 3 {
		t.Errorf("count = %v (%T), want float64 3", doc["count"], doc["count"])
	}
	if v, ok := doc["ratio"].(float64); !ok || v != 0.5 {
		t.Errorf("ratio = %v (%T), want float64 0.5", doc["ratio"], doc["ratio"])
	}
}

func TestParseDocumentRejectsNonObject(t *testing.T) {
	for _, input := range []string{`[]`, `"text"`, `42`, `null`, `true`} {
		if _, err := ParseDocument([]byte(input)); !errors.Is(err, ErrNotObject) {
			t.Errorf("input %s: expected ErrNotObject, got %v", input, err)
		}
	}
}

func TestParseDocumentRejectsBadJSON(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"meta":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if _, err := ParseDocument(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadDocumentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slice-map.json")
	if err := os.WriteFile(path, []byte(`{"meta": {}}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	doc, err := ReadDocumentFile(path)
	if err != nil {
		t.Fatalf("ReadDocumentFile failed: %v", err)
	}
	if _, ok := doc["meta"]; !ok {
		t.Error("meta key missing from parsed document")
	}

	if _, err := ReadDocumentFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecodeSliceMap(t *testing.T) {
	data := []byte(`{
		"meta": {"project": "Acme API", "source": "brief.md", "generated_at": "2026-08-12T09:30:00Z",
		         "summary": "s", "assumptions": [], "open_questions": []},
		"slices": [{"id": "S-001", "title": "First", "story": "st",
		            "scope_in": ["a"], "scope_out": [], "sequence_rationale": "r"}]
	}`)

	sm, err := DecodeSliceMap(data)
	if err != nil {
		t.Fatalf("DecodeSliceMap failed: %v", err)
	}
	if sm.Meta.Project != "Acme API" {
		t.Errorf("project = %q", sm.Meta.Project)
	}
	if len(sm.Slices) != 1 || sm.Slices[0].ID != "S-001" {
		t.Errorf("slices = %+v", sm.Slices)
	}
}

func TestDecodeIssueBundle(t *testing.T) {
	data := []byte(`{
		"meta": {"project": "Acme API", "source": "sm.json", "generated_at": "2026-08-13T10:00:00Z",
		         "assumptions": [], "open_questions": []},
		"epics": [{"id": "E-001", "title": "Epic", "objective": "o", "exit_criteria": ["c"]}],
		"issues": [{"id": "US-001", "type": "user_story", "title": "T", "description": "d",
		            "priority": "P1", "status": "ready", "epic_id": "E-001",
		            "story": "s", "value": "v", "acceptance_criteria": ["ac"],
		            "estimate": {"method": "tshirt", "value": "M"}}]
	}`)

	ib, err := DecodeIssueBundle(data)
	if err != nil {
		t.Fatalf("DecodeIssueBundle failed: %v", err)
	}
	if len(ib.Issues) != 1 {
		t.Fatalf("issues = %+v", ib.Issues)
	}
	issue := ib.Issues[0]
	if issue.Type != TypeUserStory || issue.EpicID != "E-001" {
		t.Errorf("issue = %+v", issue)
	}
	if issue.Estimate == nil || issue.Estimate.Method != "tshirt" {
		t.Errorf("estimate = %+v", issue.Estimate)
	}
}
