// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/ttcp/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			role TEXT NOT NULL,
			proto TEXT NOT NULL,
			peer TEXT NOT NULL,
			buflen INTEGER NOT NULL,
			nbuf INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			calls INTEGER NOT NULL,
			real_seconds REAL NOT NULL,
			cpu_seconds REAL NOT NULL,
			bytes_per_sec REAL NOT NULL,
			interrupted INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_role ON runs(role);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a finished run and returns its id.
func (s *Store) InsertRun(ctx context.Context, run model.Run) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, ended_at, role, proto, peer, buflen, nbuf, bytes, calls, real_seconds, cpu_seconds, bytes_per_sec, interrupted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.EndedAt.UTC().Format(time.RFC3339Nano),
		run.Role,
		run.Proto,
		run.Peer,
		run.BufLen,
		run.NumBufs,
		run.Bytes,
		run.Calls,
		run.RealSeconds,
		run.CPUSeconds,
		run.BytesPerSec,
		run.Interrupted,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func whereClause(filter model.HistoryFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Proto != "" {
		clauses = append(clauses, "proto = ?")
		args = append(args, filter.Proto)
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	return strings.Join(clauses, " AND "), args
}

// ListRuns returns runs matching filter, oldest first.
func (s *Store) ListRuns(ctx context.Context, filter model.HistoryFilter) ([]model.Run, error) {
	where, args := whereClause(filter)
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, role, proto, peer, buflen, nbuf, bytes, calls,
			real_seconds, cpu_seconds, bytes_per_sec, interrupted
		FROM (
			SELECT * FROM runs
			WHERE %s
			ORDER BY ended_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY ended_at ASC, id ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var startedAt, endedAt string
		if err := rows.Scan(&run.ID, &startedAt, &endedAt, &run.Role, &run.Proto, &run.Peer,
			&run.BufLen, &run.NumBufs, &run.Bytes, &run.Calls,
			&run.RealSeconds, &run.CPUSeconds, &run.BytesPerSec, &run.Interrupted); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if run.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Summarize aggregates every run matching filter. Last is ignored.
func (s *Store) Summarize(ctx context.Context, filter model.HistoryFilter) (model.RunSummary, error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(bytes), 0),
			COALESCE(AVG(bytes_per_sec), 0), COALESCE(MAX(bytes_per_sec), 0)
		FROM runs
		WHERE %s`, where)
	var sum model.RunSummary
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sum.Runs, &sum.TotalBytes, &sum.AvgRate, &sum.BestRate); err != nil {
		return model.RunSummary{}, err
	}
	return sum, nil
}
