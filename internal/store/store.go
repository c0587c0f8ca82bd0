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

	"github.com/google/uuid"

	"github.com/verte-zerg/lumalink/internal/model"

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
			uuid TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			code TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			fps REAL NOT NULL,
			bit_duration_ms REAL NOT NULL,
			threshold REAL NOT NULL,
			result TEXT NOT NULL,
			bitstream TEXT NOT NULL,
			bits INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS bit_samples (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			offset_ms INTEGER NOT NULL,
			mean REAL NOT NULL,
			bit TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_code ON runs(code);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a finished run and its decoded bits. A run without a UUID
// gets a fresh one.
func (s *Store) InsertRun(ctx context.Context, run model.Run, samples []model.BitSample) (id int64, err error) {
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (uuid, kind, code, started_at, ended_at, fps, bit_duration_ms, threshold, result, bitstream, bits, frames, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.UUID,
		run.Kind,
		run.Code,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		run.FPS,
		run.BitDurationMs,
		run.Threshold,
		run.Result,
		run.Bitstream,
		run.Bits,
		run.Frames,
		run.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(samples) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO bit_samples (run_id, seq, offset_ms, mean, bit)
			 VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, bs := range samples {
			if _, err = stmt.ExecContext(ctx, id, bs.Seq, bs.OffsetMs, bs.Mean, bs.Bit); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const runColumns = `id, uuid, kind, code, started_at, ended_at, fps, bit_duration_ms, threshold, result, bitstream, bits, frames, duration_ms`

// ListRuns returns runs filtered by stats config, oldest first.
func (s *Store) ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.Run, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, cfg.Kind)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT %s
		FROM runs
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, runColumns, strings.Join(clauses, " AND "))
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
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id int64) (model.Run, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM runs WHERE id = ?`, runColumns), id)
	return scanRun(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (model.Run, error) {
	var run model.Run
	var startedAt, endedAt string
	if err := sc.Scan(
		&run.ID, &run.UUID, &run.Kind, &run.Code, &startedAt, &endedAt,
		&run.FPS, &run.BitDurationMs, &run.Threshold, &run.Result,
		&run.Bitstream, &run.Bits, &run.Frames, &run.DurationMs,
	); err != nil {
		return model.Run{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return model.Run{}, err
	}
	run.StartedAt = parsed
	parsed, err = time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return model.Run{}, err
	}
	run.EndedAt = parsed
	return run, nil
}

// ListBitSamples returns the decoded bits of a run in order.
func (s *Store) ListBitSamples(ctx context.Context, runID int64) ([]model.BitSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, offset_ms, mean, bit FROM bit_samples WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var samples []model.BitSample
	for rows.Next() {
		var bs model.BitSample
		if err := rows.Scan(&bs.Seq, &bs.OffsetMs, &bs.Mean, &bs.Bit); err != nil {
			return nil, err
		}
		samples = append(samples, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// ListCodeAggregatesForRuns aggregates results per code across runs.
// Time-to-match sums only cover granted runs.
func (s *Store) ListCodeAggregatesForRuns(ctx context.Context, runIDs []int64) ([]model.CodeAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT code, COUNT(*) AS runs,
		SUM(CASE WHEN result = 'granted' THEN 1 ELSE 0 END) AS granted,
		SUM(CASE WHEN result = 'granted' THEN duration_ms ELSE 0 END) AS match_ms_sum
		FROM runs
		WHERE id IN (%s)
		GROUP BY code
		ORDER BY code`, strings.Join(placeholders, ","))
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

	var result []model.CodeAggregate
	for rows.Next() {
		var agg model.CodeAggregate
		if err := rows.Scan(&agg.Code, &agg.Runs, &agg.Granted, &agg.MatchMsSum); err != nil {
			return nil, err
		}
		agg.MatchMsRuns = agg.Granted
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LatestRunWithSamples returns the id of the newest run among runIDs that has
// decoded bits, or 0.
func (s *Store) LatestRunWithSamples(ctx context.Context, runIDs []int64) (int64, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT r.id FROM runs r
		WHERE r.id IN (%s) AND EXISTS (SELECT 1 FROM bit_samples b WHERE b.run_id = r.id)
		ORDER BY r.ended_at DESC, r.id DESC
		LIMIT 1`, strings.Join(placeholders, ","))
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}
