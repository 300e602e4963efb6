package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
// The special path ":memory:" keeps everything in memory.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite is a single-writer engine, and an in-memory
	// database only lives as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// RecordRun stores one finished run. A missing ID is generated.
func (r *SQLiteRepo) RecordRun(ctx context.Context, run domain.Run) error {
	if run.Job == "" {
		return errors.New("run without job name")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job, trigger_kind, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome     = excluded.outcome,
			error       = excluded.error,
			finished_at = excluded.finished_at`,
		run.ID, run.Job, string(run.Trigger), string(run.Outcome), run.Error,
		run.StartedAt.UTC().UnixMilli(), toNullUnixMilli(run.FinishedAt),
	)
	return err
}

// LastRuns returns the most recent run of every job.
func (r *SQLiteRepo) LastRuns(ctx context.Context) (map[string]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job, trigger_kind, outcome, error, started_at, finished_at
		FROM job_runs AS j
		WHERE started_at = (
			SELECT MAX(started_at) FROM job_runs WHERE job = j.job
		)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out[run.Job] = run
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRepo) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job, trigger_kind, outcome, error, started_at, finished_at
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func scanRun(s scanner) (domain.Run, error) {
	var (
		run      domain.Run
		trigger  string
		outcome  string
		started  int64
		finished sql.NullInt64
	)
	if err := s.Scan(&run.ID, &run.Job, &trigger, &outcome, &run.Error, &started, &finished); err != nil {
		return domain.Run{}, err
	}
	run.Trigger = domain.Trigger(trigger)
	run.Outcome = domain.Outcome(outcome)
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = fromNullUnixMilli(finished)
	return run, nil
}
