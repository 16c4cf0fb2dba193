package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"slicer/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func passResult() *schema.Result {
	return &schema.Result{Valid: true, Violations: []schema.Violation{}}
}

func failResult() *schema.Result {
	return &schema.Result{
		Valid: false,
		Violations: []schema.Violation{
			{Path: "/slices", Kind: schema.KindEmptyRequiredCollection, Message: "slices must not be empty"},
		},
		Warnings: []schema.Warning{
			{Path: "/meta/generated_at", Message: "generated_at is not an RFC 3339 timestamp"},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run, err := s.RecordRun("artifacts/map.json", "slice-map", failResult())
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("run id not assigned")
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ArtifactPath != "artifacts/map.json" || got.SchemaName != "slice-map" {
		t.Errorf("run = %+v", got)
	}
	if got.Valid {
		t.Error("run should be invalid")
	}
	if len(got.Violations) != 1 || got.Violations[0].Kind != schema.KindEmptyRequiredCollection {
		t.Errorf("violations = %+v", got.Violations)
	}
	if len(got.Warnings) != 1 {
		t.Errorf("warnings = %+v", got.Warnings)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun("no-such-run"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.RecordRun("artifacts/map.json", "slice-map", passResult()); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := s.ListRuns(ListRunsFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].CreatedAt.After(runs[i-1].CreatedAt) {
			t.Errorf("runs not ordered newest first: %v then %v", runs[i-1].CreatedAt, runs[i].CreatedAt)
		}
	}
}

func TestListRunsFilters(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.RecordRun("a.json", "slice-map", passResult()); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if _, err := s.RecordRun("b.json", "issue-bundle", failResult()); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := s.ListRuns(ListRunsFilter{ArtifactPath: "a.json"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ArtifactPath != "a.json" {
		t.Errorf("artifact filter: %+v", runs)
	}

	runs, err = s.ListRuns(ListRunsFilter{OnlyInvalid: true})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ArtifactPath != "b.json" {
		t.Errorf("invalid filter: %+v", runs)
	}

	runs, err = s.ListRuns(ListRunsFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("limit filter returned %d runs", len(runs))
	}
}

func TestLatestRunForArtifact(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.RecordRun("map.json", "slice-map", failResult()); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := s.RecordRun("map.json", "slice-map", passResult())
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	latest, err := s.LatestRunForArtifact("map.json")
	if err != nil {
		t.Fatalf("LatestRunForArtifact failed: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want %s", latest.ID, second.ID)
	}
	if !latest.Valid {
		t.Error("latest run should be the passing one")
	}

	if _, err := s.LatestRunForArtifact("never-seen.json"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCountRuns(t *testing.T) {
	s := openTestStore(t)

	count, err := s.CountRuns()
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if _, err := s.RecordRun("map.json", "slice-map", passResult()); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	count, err = s.CountRuns()
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
