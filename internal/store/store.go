// Package store persists validation run history in an embedded SQLite
// database.
//
// The database runs in embedded mode with WAL so the watch daemon can write
// new runs while the CLI reads history concurrently. Violations and warnings
// are stored as JSON columns; the queried fields (artifact, schema, validity,
// timestamp) are plain columns with indexes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"slicer/internal/schema"
)

// Run is one recorded validation of an artifact file.
type Run struct {
	ID           string             `json:"id"`
	ArtifactPath string             `json:"artifact_path"`
	SchemaName   string             `json:"schema_name"`
	Valid        bool               `json:"valid"`
	Violations   []schema.Violation `json:"violations"`
	Warnings     []schema.Warning   `json:"warnings"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Result reassembles the validation result this run recorded.
func (r *Run) Result() *schema.Result {
	return &schema.Result{
		Valid:      r.Valid,
		Violations: r.Violations,
		Warnings:   r.Warnings,
	}
}

// Store wraps the history database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (and if needed creates) the history database at path.
// The caller must Close the store when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the runs table and its indexes. Idempotent.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		artifact_path TEXT NOT NULL,
		schema_name TEXT NOT NULL,
		valid INTEGER NOT NULL,
		violations TEXT NOT NULL,  -- JSON array
		warnings TEXT NOT NULL,    -- JSON array
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_artifact ON runs(artifact_path, created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_valid ON runs(valid);
	`

	if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordRun stores one validation result and returns the persisted run.
func (s *Store) RecordRun(artifactPath, schemaName string, res *schema.Result) (*Run, error) {
	return s.RecordRunContext(context.Background(), artifactPath, schemaName, res)
}

// RecordRunContext stores one validation result with context support.
func (s *Store) RecordRunContext(ctx context.Context, artifactPath, schemaName string, res *schema.Result) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		ArtifactPath: artifactPath,
		SchemaName:   schemaName,
		Valid:        res.Valid,
		Violations:   res.Violations,
		Warnings:     res.Warnings,
		CreatedAt:    time.Now().UTC(),
	}

	violationsJSON, err := json.Marshal(run.Violations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal violations: %w", err)
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
	INSERT INTO runs (id, artifact_path, schema_name, valid, violations, warnings, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.conn.ExecContext(ctx, query,
		run.ID,
		run.ArtifactPath,
		run.SchemaName,
		boolToInt(run.Valid),
		string(violationsJSON),
		string(warningsJSON),
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a single run by id. Returns sql.ErrNoRows when absent.
func (s *Store) GetRun(id string) (*Run, error) {
	return s.GetRunContext(context.Background(), id)
}

// GetRunContext retrieves a single run by id with context support.
func (s *Store) GetRunContext(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, artifact_path, schema_name, valid, violations, warnings, created_at
	FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRunForArtifact returns the most recent run recorded for a path, or
// sql.ErrNoRows when the artifact has never been validated.
func (s *Store) LatestRunForArtifact(artifactPath string) (*Run, error) {
	return s.LatestRunForArtifactContext(context.Background(), artifactPath)
}

// LatestRunForArtifactContext is LatestRunForArtifact with context support.
func (s *Store) LatestRunForArtifactContext(ctx context.Context, artifactPath string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, artifact_path, schema_name, valid, violations, warnings, created_at
	FROM runs WHERE artifact_path = ?
	ORDER BY created_at DESC LIMIT 1
	`, artifactPath)
	return scanRun(row)
}

// ListRunsFilter configures the ListRuns query.
type ListRunsFilter struct {
	// ArtifactPath restricts to runs of one artifact (empty = all).
	ArtifactPath string
	// OnlyInvalid restricts to failed runs.
	OnlyInvalid bool
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results.
	Offset int
}

// ListRuns retrieves runs matching the filter, newest first.
func (s *Store) ListRuns(filter ListRunsFilter) ([]*Run, error) {
	return s.ListRunsContext(context.Background(), filter)
}

// ListRunsContext retrieves runs with context support.
func (s *Store) ListRunsContext(ctx context.Context, filter ListRunsFilter) ([]*Run, error) {
	var conditions []string
	var args []interface{}

	if filter.ArtifactPath != "" {
		conditions = append(conditions, "artifact_path = ?")
		args = append(args, filter.ArtifactPath)
	}
	if filter.OnlyInvalid {
		conditions = append(conditions, "valid = 0")
	}

	query := `
	SELECT id, artifact_path, schema_name, valid, violations, warnings, created_at
	FROM runs
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// CountRuns returns the total number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	return s.CountRunsContext(context.Background())
}

// CountRunsContext returns the total run count with context support.
func (s *Store) CountRunsContext(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var valid int
	var violationsJSON, warningsJSON, createdAt string

	err := row.Scan(
		&run.ID,
		&run.ArtifactPath,
		&run.SchemaName,
		&valid,
		&violationsJSON,
		&warningsJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.Valid = valid != 0
	if err := json.Unmarshal([]byte(violationsJSON), &run.Violations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal violations: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = t
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
