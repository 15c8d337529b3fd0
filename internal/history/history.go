// Package history keeps a SQLite index of finished runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
)

// DB is the SQLite run index.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	// https://github.com/mattn/go-sqlite3#connection-string
	opts := []string{
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
		"_busy_timeout=5000",
	}

	db, err := sql.Open("sqlite3", path+"?"+strings.Join(opts, "&"))
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		create table if not exists runs (
			run_id text primary key,
			pipeline text not null,
			status text not null,
			started_at integer not null, -- unix nanos
			duration_ms integer not null,
			total_cost real not null default 0,
			steps integer not null default 0,
			failed_step text not null default '',
			error text not null default '',
			dir text not null default ''
		);

		create index if not exists runs_started_at on runs (started_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}

	return &DB{db}, nil
}

// Summary is one row of the run index.
type Summary struct {
	RunID      string
	Pipeline   string
	Status     string
	StartedAt  time.Time
	Duration   time.Duration
	TotalCost  float64
	Steps      int
	FailedStep string
	Error      string
	Dir        string
}

// SummaryOf condenses a run result for the index.
func SummaryOf(res *pipeline.RunResult, status, dir string) Summary {
	s := Summary{
		RunID:      res.ID,
		Pipeline:   res.Pipeline,
		Status:     status,
		StartedAt:  res.StartedAt,
		Duration:   res.TotalDuration,
		TotalCost:  res.TotalCost,
		Steps:      len(res.Steps),
		FailedStep: res.FailedStep,
		Dir:        dir,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

// Insert records a finished run. Re-inserting a run id replaces the row.
func (db *DB) Insert(ctx context.Context, s Summary) error {
	_, err := db.ExecContext(ctx, `
		insert or replace into runs
			(run_id, pipeline, status, started_at, duration_ms, total_cost, steps, failed_step, error, dir)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, s.Pipeline, s.Status, s.StartedAt.UnixNano(), s.Duration.Milliseconds(),
		s.TotalCost, s.Steps, s.FailedStep, s.Error, s.Dir)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", s.RunID, err)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (db *DB) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		select run_id, pipeline, status, started_at, duration_ms, total_cost, steps, failed_step, error, dir
		from runs
		order by started_at desc
	`
	var args []any
	if limit > 0 {
		query += " limit ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var started, durMS int64
		if err := rows.Scan(&s.RunID, &s.Pipeline, &s.Status, &started, &durMS,
			&s.TotalCost, &s.Steps, &s.FailedStep, &s.Error, &s.Dir); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started)
		s.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

type Totals struct {
	Pipeline  string
	Runs      int
	Completed int
	Failed    int
	Cancelled int
	Cost      float64
	Duration  time.Duration
}

// Totals returns aggregate counts over every recorded run.
func (db *DB) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	var durMS int64
	err := db.QueryRowContext(ctx, `
		select
			count(*),
			coalesce(sum(status = 'completed'), 0),
			coalesce(sum(status = 'failed'), 0),
			coalesce(sum(status = 'cancelled'), 0),
			coalesce(sum(total_cost), 0),
			coalesce(sum(duration_ms), 0)
		from runs
	`).Scan(&t.Runs, &t.Completed, &t.Failed, &t.Cancelled, &t.Cost, &durMS)
	if err != nil {
		return Totals{}, err
	}
	t.Duration = time.Duration(durMS) * time.Millisecond
	return t, nil
}

// ByPipeline returns per-pipeline totals ordered by spend, highest first.
func (db *DB) ByPipeline(ctx context.Context) ([]Totals, error) {
	rows, err := db.QueryContext(ctx, `
		select
			pipeline,
			count(*),
			sum(status = 'completed'),
			sum(status = 'failed'),
			sum(status = 'cancelled'),
			sum(total_cost),
			sum(duration_ms)
		from runs
		group by pipeline
		order by sum(total_cost) desc, pipeline
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Totals
	for rows.Next() {
		var t Totals
		var durMS int64
		if err := rows.Scan(&t.Pipeline, &t.Runs, &t.Completed, &t.Failed, &t.Cancelled, &t.Cost, &durMS); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}
