// Package history persists run summaries in SQLite so that a run can be
// compared with the one before it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	base_url    TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	errored     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS violations (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	scenario TEXT NOT NULL,
	code     TEXT NOT NULL,
	message  TEXT NOT NULL,
	path     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// ErrNoRuns is returned by LastRun on an empty store.
var ErrNoRuns = errors.New("no previous runs")

// Run is the stored summary of one suite execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	BaseURL    string
	Passed     int
	Failed     int
	Errored    int
	Skipped    int
	Violations []Violation
}

// Violation is a stored violation, keyed by scenario.
type Violation struct {
	Scenario string
	Code     string
	Message  string
	Path     string
}

// OK reports whether the run had no failures or errors.
func (r *Run) OK() bool {
	return r.Failed == 0 && r.Errored == 0
}

// NewRun summarizes a runner result under a fresh run id.
func NewRun(result *runner.RunResult, baseURL string) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: result.StartedAt,
		Duration:  result.Duration,
		BaseURL:   baseURL,
		Passed:    result.Passed,
		Failed:    result.Failed,
		Errored:   result.Errored,
		Skipped:   result.Skipped,
	}
	for _, res := range result.Results {
		for _, v := range res.Violations {
			run.Violations = append(run.Violations, Violation{
				Scenario: res.ID,
				Code:     string(v.Code),
				Message:  v.Message,
				Path:     v.Path,
			})
		}
	}
	return run
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path. The
// "sqlite://" and "sqlite:" prefixes are accepted.
func Open(path string) (*Store, error) {
	dsn := strings.TrimSpace(path)
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite:")
	if dsn == "" {
		return nil, fmt.Errorf("history path is empty")
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores run and its violations in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, base_url, passed, failed, errored, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixNano(), run.Duration.Milliseconds(), run.BaseURL,
		run.Passed, run.Failed, run.Errored, run.Skipped)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, v := range run.Violations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO violations (run_id, scenario, code, message, path) VALUES (?, ?, ?, ?, ?)`,
			run.ID, v.Scenario, v.Code, v.Message, v.Path)
		if err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
	}
	return tx.Commit()
}

// LastRun returns the most recently started run, or ErrNoRuns.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs[0], nil
}

// Recent returns up to limit runs, newest first, with their violations.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, base_url, passed, failed, errored, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run       Run
			startedAt int64
			duration  int64
		)
		if err := rows.Scan(&run.ID, &startedAt, &duration, &run.BaseURL,
			&run.Passed, &run.Failed, &run.Errored, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(0, startedAt)
		run.Duration = time.Duration(duration) * time.Millisecond
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, run := range runs {
		if run.Violations, err = s.violations(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) violations(ctx context.Context, runID string) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scenario, code, message, path FROM violations WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.Scenario, &v.Code, &v.Message, &v.Path); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Trend describes how a run relates to the previous one.
type Trend string

const (
	TrendFirst     Trend = "first"
	TrendUnchanged Trend = "unchanged"
	TrendRecovered Trend = "recovered"
	TrendRegressed Trend = "regressed"
)

// Compare classifies cur against prev. prev may be nil.
func Compare(prev, cur *Run) Trend {
	switch {
	case prev == nil:
		return TrendFirst
	case !prev.OK() && cur.OK():
		return TrendRecovered
	case prev.OK() && !cur.OK():
		return TrendRegressed
	default:
		return TrendUnchanged
	}
}
