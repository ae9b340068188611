// Package history keeps a SQLite record of finished bench runs so that
// allocator changes can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Faultbox/surface-atlas/internal/trace"
)

// Run is one recorded bench run.
type Run struct {
	ID         int64
	RecordedAt time.Time
	Resolution int
	Distance   float32
	Objects    int
	Seed       uint64
	Elapsed    time.Duration
	Summary    trace.Summary
}

// DB is an open run history.
type DB struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("empty history path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at TEXT NOT NULL,
			resolution INTEGER NOT NULL,
			distance REAL NOT NULL,
			objects INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			mean_occupancy REAL NOT NULL,
			defragments INTEGER NOT NULL,
			insert_failures INTEGER NOT NULL,
			summary_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_resolution ON runs(resolution, recorded_at);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing history: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (h *DB) Close() error {
	return h.db.Close()
}

// Record stores r and returns its ID. A zero RecordedAt is set to now.
func (h *DB) Record(ctx context.Context, r Run) (int64, error) {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return 0, fmt.Errorf("encoding summary: %w", err)
	}

	res, err := h.db.ExecContext(ctx, `INSERT INTO runs
		(recorded_at, resolution, distance, objects, seed, elapsed_ns, frames, mean_occupancy, defragments, insert_failures, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
		r.Resolution,
		float64(r.Distance),
		r.Objects,
		int64(r.Seed), // stored as the same 64 bits
		int64(r.Elapsed),
		r.Summary.Frames,
		r.Summary.MeanOccupancy,
		r.Summary.Defragments,
		r.Summary.InsertFailures,
		string(summary),
	)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

const selectRuns = `SELECT id, recorded_at, resolution, distance, objects, seed, elapsed_ns, summary_json FROM runs`

// Recent returns up to limit runs, newest first. A positive resolution
// restricts the result to runs at that atlas resolution.
func (h *DB) Recent(ctx context.Context, resolution, limit int) ([]Run, error) {
	if resolution > 0 {
		return h.query(ctx, selectRuns+` WHERE resolution = ? ORDER BY id DESC LIMIT ?`, resolution, limit)
	}
	return h.query(ctx, selectRuns+` ORDER BY id DESC LIMIT ?`, limit)
}

// Baseline returns the newest run at resolution recorded before id.
func (h *DB) Baseline(ctx context.Context, resolution int, id int64) (Run, bool, error) {
	runs, err := h.query(ctx, selectRuns+` WHERE resolution = ? AND id < ? ORDER BY id DESC LIMIT 1`, resolution, id)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

func (h *DB) query(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			recorded string
			distance float64
			seed     int64
			elapsed  int64
			summary  string
		)
		if err := rows.Scan(&r.ID, &recorded, &r.Resolution, &distance, &r.Objects, &seed, &elapsed, &summary); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("run %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("run %d summary: %w", r.ID, err)
		}
		r.Distance = float32(distance)
		r.Seed = uint64(seed)
		r.Elapsed = time.Duration(elapsed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
