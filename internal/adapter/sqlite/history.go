// Package sqlite keeps a history of runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/hours2days/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    year INTEGER NOT NULL,
    day_of_year INTEGER NOT NULL,
    merged INTEGER NOT NULL,
    uploaded INTEGER NOT NULL,
    unfinished INTEGER NOT NULL,
    upload_failures INTEGER NOT NULL,
    failures INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    disk_used_percent REAL,
    report TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);`

// Run is one row of the run history.
type Run struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Year            int
	DayOfYear       int
	Merged          int
	Uploaded        int
	Unfinished      int
	UploadFailures  int
	Failures        int
	Skipped         int
	DiskUsedPercent sql.NullFloat64
}

// History stores run reports.
type History struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record stores the report, replacing an earlier row with the same run ID.
func (h *History) Record(ctx context.Context, r *domain.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode report: %w", err)
	}

	var merged, uploaded int
	for _, s := range r.Families {
		merged += s.Merged
		uploaded += s.Uploaded
	}
	var disk sql.NullFloat64
	if r.Disk != nil {
		disk = sql.NullFloat64{Float64: r.Disk.UsedPercent, Valid: true}
	}

	_, err = h.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
    run_id, started_at, finished_at, year, day_of_year, merged, uploaded,
    unfinished, upload_failures, failures, skipped, disk_used_percent, report
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.Unix(), r.FinishedAt.Unix(), r.Year, r.DayOfYear, merged, uploaded,
		len(r.Unfinished), r.UploadFailures, len(r.Failures), r.Skipped, disk, string(data),
	)
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, `
SELECT run_id, started_at, finished_at, year, day_of_year, merged, uploaded,
       unfinished, upload_failures, failures, skipped, disk_used_percent
FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Year, &r.DayOfYear, &r.Merged, &r.Uploaded,
			&r.Unfinished, &r.UploadFailures, &r.Failures, &r.Skipped, &r.DiskUsedPercent); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		r.FinishedAt = time.Unix(finished, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Report returns the full stored report for runID.
func (h *History) Report(ctx context.Context, runID string) (*domain.RunReport, error) {
	var data string
	err := h.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("history: report %s: %w", runID, err)
	}
	var r domain.RunReport
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("history: decode report %s: %w", runID, err)
	}
	return &r, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
