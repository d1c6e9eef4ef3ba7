// Package results persists run outputs. Each run gets a row describing
// its configuration and one row per stratified metric, all written in a
// single transaction so a results database never holds a partial run.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	location         TEXT NOT NULL,
	scenario         TEXT NOT NULL,
	seed             INTEGER NOT NULL,
	draw             INTEGER NOT NULL,
	population_size  INTEGER NOT NULL,
	started_at       TEXT NOT NULL,
	finished_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	key     TEXT NOT NULL,
	value   REAL NOT NULL,
	PRIMARY KEY (run_id, key)
);

CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id);
`

// Run describes one completed simulation.
type Run struct {
	ID             string
	Location       string
	Scenario       string
	Seed           uint64
	Draw           int
	PopulationSize int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store is a SQLite-backed results store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a results database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("results: opening %s: %w", path, err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// WriteRun stores a run and its metrics atomically.
func (s *Store) WriteRun(ctx context.Context, run Run, metrics map[string]float64) error {
	if run.ID == "" {
		return fmt.Errorf("results: run has no id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("results: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, location, scenario, seed, draw, population_size, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Location, run.Scenario, int64(run.Seed), run.Draw, run.PopulationSize,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("results: inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (run_id, key, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("results: preparing metric insert: %w", err)
	}
	defer stmt.Close()
	for key, value := range metrics {
		if _, err := stmt.ExecContext(ctx, run.ID, key, value); err != nil {
			return fmt.Errorf("results: inserting metric %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// ReadRun loads a run and its metrics.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, map[string]float64, error) {
	var run Run
	var seed int64
	var started, finished string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location, scenario, seed, draw, population_size, started_at, finished_at
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Location, &run.Scenario, &seed, &run.Draw, &run.PopulationSize, &started, &finished)
	if err != nil {
		return Run{}, nil, fmt.Errorf("results: reading run %s: %w", id, err)
	}
	run.Seed = uint64(seed)
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return Run{}, nil, fmt.Errorf("results: run %s started_at: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return Run{}, nil, fmt.Errorf("results: run %s finished_at: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("results: reading metrics for %s: %w", id, err)
	}
	defer rows.Close()
	metrics := make(map[string]float64)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return Run{}, nil, fmt.Errorf("results: scanning metric: %w", err)
		}
		metrics[key] = value
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("results: iterating metrics: %w", err)
	}
	return run, metrics, nil
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, scenario, seed, draw, population_size, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("results: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var seed int64
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Location, &run.Scenario, &seed, &run.Draw,
			&run.PopulationSize, &started, &finished); err != nil {
			return nil, fmt.Errorf("results: scanning run: %w", err)
		}
		run.Seed = uint64(seed)
		if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("results: run %s started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("results: run %s finished_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
