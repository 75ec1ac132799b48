package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("manifest run not found")

// Store manages provenance persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("manifest path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a running record for a new merge run.
func (s *Store) BeginRun(ctx context.Context, id, outputDir string) (*Run, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, output_dir) VALUES (?, ?, ?, ?)`,
		id, now.Format(timeLayout), RunStatusRunning, outputDir,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, StartedAt: now, Status: RunStatusRunning, OutputDir: outputDir}, nil
}

// RecordGroup stores a materialized group and its artifacts atomically.
func (s *Store) RecordGroup(ctx context.Context, group Group, artifacts []Artifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (run_id, group_id, dataset, folder) VALUES (?, ?, ?, ?)`,
		group.RunID, group.GroupID, group.Dataset, group.Folder,
	); err != nil {
		return fmt.Errorf("insert group %d: %w", group.GroupID, err)
	}

	for _, a := range artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, group_id, day, source_path, output_name, size_bytes, sha256)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			group.RunID, group.GroupID, a.Day, a.SourcePath, a.OutputName, a.Size, a.SHA256,
		); err != nil {
			return fmt.Errorf("insert artifact %s: %w", a.OutputName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group %d: %w", group.GroupID, err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id string, totals RunTotals, runErr error) error {
	status := RunStatusCompleted
	var message any
	if runErr != nil {
		status = RunStatusFailed
		message = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, total_groups = ?, total_files = ?, total_bytes = ?, error_message = ?
         WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), status, totals.Groups, totals.Files, totals.Bytes, message, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
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
	return runs, rows.Err()
}

// ListGroups returns the groups recorded for a run in id order.
func (s *Store) ListGroups(ctx context.Context, runID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, group_id, dataset, folder FROM groups WHERE run_id = ? ORDER BY group_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.RunID, &g.GroupID, &g.Dataset, &g.Folder); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListArtifacts returns the artifacts of one group ordered by day.
func (s *Store) ListArtifacts(ctx context.Context, runID string, groupID int) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, day, source_path, output_name, size_bytes, sha256
         FROM artifacts WHERE run_id = ? AND group_id = ? ORDER BY day`, runID, groupID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.GroupID, &a.Day, &a.SourcePath, &a.OutputName, &a.Size, &a.SHA256); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
