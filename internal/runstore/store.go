// Package runstore persists stratification runs and their outputs in a
// SQLite ledger so past cohort analyses stay queryable from the CLI.
package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current ledger schema. Bump on schema changes; an
// existing database with a different version is rejected rather than
// migrated.
const schemaVersion = 1

var (
	// ErrNotFound reports that no row matched the requested run.
	ErrNotFound = errors.New("runstore: run not found")

	// ErrSchemaMismatch reports a ledger created by an incompatible version.
	ErrSchemaMismatch = errors.New("runstore: schema version mismatch")
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded stratification.
type Run struct {
	ID        string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Network and Profile describe the run's inputs.
	Network string
	Profile string
	// ParamsJSON is the effective configuration, serialized by the caller.
	ParamsJSON string
	Clusters   int
	// Samples is the cohort size; zero until the run completes.
	Samples int
	Seed    uint64
	// Error holds the failure cause for StatusFailed runs.
	Error string
}

// SurvivalRecord is the stored outcome separation of one run.
type SurvivalRecord struct {
	RunID          string
	ChiSquare      float64
	PValue         float64
	DF             int
	SamplesUsed    int
	SamplesMissing int
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the ledger database under dir, creating the directory,
// the database and its schema as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runstore: ensure data directory: %w", err)
	}
	dbPath := filepath.Join(dir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("runstore: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("runstore: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("runstore: check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("runstore: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("runstore: begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("runstore: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("runstore: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("runstore: commit schema: %w", err)
	}
	return nil
}

// CreateRun inserts a new run in StatusRunning. A missing ID is filled with
// a fresh UUID; CreatedAt and UpdatedAt are set to now.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	run.Status = StatusRunning
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, status, created_at, updated_at, network, profile, params_json, clusters, samples, seed, error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '')`,
		run.ID,
		run.Name,
		run.Status,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		run.Network,
		run.Profile,
		run.ParamsJSON,
		run.Clusters,
		run.Samples,
		strconv.FormatUint(run.Seed, 10),
	)
	if err != nil {
		return fmt.Errorf("runstore: insert run: %w", err)
	}
	return nil
}

// CompleteRun marks a run completed and records its cohort size and the seed
// the run actually used.
func (s *Store) CompleteRun(ctx context.Context, id string, samples int, seed uint64) error {
	return s.updateRun(ctx, id,
		`UPDATE runs SET status = ?, samples = ?, seed = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, samples, strconv.FormatUint(seed, 10), time.Now().UTC().Format(time.RFC3339Nano), id)
}

// FailRun marks a run failed with its cause.
func (s *Store) FailRun(ctx context.Context, id string, cause string) error {
	return s.updateRun(ctx, id,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, cause, time.Now().UTC().Format(time.RFC3339Nano), id)
}

func (s *Store) updateRun(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("runstore: update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("runstore: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, updated_at, network, profile, params_json, clusters, samples, seed, error
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, created_at, updated_at, network, profile, params_json, clusters, samples, seed, error
         FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
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
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and, through cascading foreign keys, its
// assignments and survival record.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.updateRun(ctx, id, `DELETE FROM runs WHERE id = ?`, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt, updatedAt, seed string
	err := row.Scan(&run.ID, &run.Name, &run.Status, &createdAt, &updatedAt,
		&run.Network, &run.Profile, &run.ParamsJSON, &run.Clusters, &run.Samples, &seed, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("runstore: scan run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("runstore: parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("runstore: parse updated_at: %w", err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("runstore: parse seed: %w", err)
	}
	return &run, nil
}

// SaveAssignments replaces the stored subtype assignments of a run.
// Insertion order follows the cohort order, and Assignments reads it back in
// the same order.
func (s *Store) SaveAssignments(ctx context.Context, id string, samples []string, labels []int) error {
	if len(samples) != len(labels) {
		return fmt.Errorf("runstore: %d samples but %d labels", len(samples), len(labels))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("runstore: begin assignments tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("runstore: clear assignments: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO assignments (run_id, sample, cluster) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("runstore: prepare assignment insert: %w", err)
	}
	defer stmt.Close()
	for i, sample := range samples {
		if _, err := stmt.ExecContext(ctx, id, sample, labels[i]); err != nil {
			return fmt.Errorf("runstore: insert assignment %q: %w", sample, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("runstore: commit assignments: %w", err)
	}
	return nil
}

// Assignments returns a run's samples and subtype labels in stored order.
func (s *Store) Assignments(ctx context.Context, id string) ([]string, []int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sample, cluster FROM assignments WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("runstore: query assignments: %w", err)
	}
	defer rows.Close()

	var samples []string
	var labels []int
	for rows.Next() {
		var sample string
		var cluster int
		if err := rows.Scan(&sample, &cluster); err != nil {
			return nil, nil, fmt.Errorf("runstore: scan assignment: %w", err)
		}
		samples = append(samples, sample)
		labels = append(labels, cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("runstore: read assignments: %w", err)
	}
	return samples, labels, nil
}

// SaveSurvival stores or replaces a run's survival separation summary.
func (s *Store) SaveSurvival(ctx context.Context, rec *SurvivalRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO survival (run_id, chi_square, p_value, df, samples_used, samples_missing)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET
            chi_square = excluded.chi_square,
            p_value = excluded.p_value,
            df = excluded.df,
            samples_used = excluded.samples_used,
            samples_missing = excluded.samples_missing`,
		rec.RunID, rec.ChiSquare, rec.PValue, rec.DF, rec.SamplesUsed, rec.SamplesMissing)
	if err != nil {
		return fmt.Errorf("runstore: save survival: %w", err)
	}
	return nil
}

// Survival returns a run's stored survival summary, or ErrNotFound when the
// run has none.
func (s *Store) Survival(ctx context.Context, id string) (*SurvivalRecord, error) {
	rec := SurvivalRecord{RunID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT chi_square, p_value, df, samples_used, samples_missing FROM survival WHERE run_id = ?`, id).
		Scan(&rec.ChiSquare, &rec.PValue, &rec.DF, &rec.SamplesUsed, &rec.SamplesMissing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s has no survival record", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: query survival: %w", err)
	}
	return &rec, nil
}
