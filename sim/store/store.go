// Package store persists simulation runs in SQLite: the configuration, the
// per-trial good counts of every category and the pooled samples. A stored
// run reloads into the same sim.AggregateResult that produced it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/davecoulter/KNmodel/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT    NOT NULL,
	seed       INTEGER NOT NULL,
	trials     INTEGER NOT NULL,
	config     TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS trial_counts (
	run_id   INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	trial    INTEGER NOT NULL,
	category INTEGER NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, trial, category)
);
CREATE TABLE IF NOT EXISTS samples (
	run_id       INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	category     INTEGER NOT NULL,
	seq          INTEGER NOT NULL,
	distance_mpc REAL    NOT NULL,
	total_mass   REAL    NOT NULL,
	apparent_mag REAL    NOT NULL,
	PRIMARY KEY (run_id, category, seq)
);`

// Store is a SQLite-backed run archive.
type Store struct {
	conn *sql.DB
}

// RunInfo is the header of a stored run.
type RunInfo struct {
	ID        int64
	CreatedAt time.Time
	Seed      int64
	Trials    int
}

// Run is a fully reloaded run.
type Run struct {
	RunInfo
	Config sim.SimulationConfig
	Result *sim.AggregateResult
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// withTransaction commits when fn succeeds and rolls back otherwise.
func (s *Store) withTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}()
	return fn(tx)
}

// SaveRun stores a configuration and its folded result and returns the run id.
func (s *Store) SaveRun(ctx context.Context, cfg sim.SimulationConfig, res *sim.AggregateResult) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("nil result")
	}
	if err := res.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to store inconsistent result: %w", err)
	}
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encoding config: %w", err)
	}

	var id int64
	err = s.withTransaction(ctx, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx,
			`INSERT INTO runs (created_at, seed, trials, config) VALUES (?, ?, ?, ?)`,
			time.Now().UTC().Format(time.RFC3339Nano), cfg.Run.Seed, res.Trials, string(cfgYAML))
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		if id, err = r.LastInsertId(); err != nil {
			return fmt.Errorf("reading run id: %w", err)
		}

		countStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO trial_counts (run_id, trial, category, count) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing count insert: %w", err)
		}
		defer countStmt.Close()
		sampleStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO samples (run_id, category, seq, distance_mpc, total_mass, apparent_mag) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing sample insert: %w", err)
		}
		defer sampleStmt.Close()

		for _, c := range sim.Categories {
			series := res.Category(c)
			for trial, n := range series.Counts {
				if n == 0 {
					continue
				}
				if _, err := countStmt.ExecContext(ctx, id, trial, int(c), n); err != nil {
					return fmt.Errorf("inserting %s count of trial %d: %w", c, trial, err)
				}
			}
			for seq, smp := range series.Samples {
				if _, err := sampleStmt.ExecContext(ctx, id, int(c), seq, smp.DistanceMpc, smp.TotalMass, smp.ApparentMag); err != nil {
					return fmt.Errorf("inserting %s sample %d: %w", c, seq, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LoadRun reloads a stored run.
func (s *Store) LoadRun(ctx context.Context, id int64) (*Run, error) {
	var (
		run       Run
		createdAt string
		cfgYAML   string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, created_at, seed, trials, config FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &createdAt, &run.Seed, &run.Trials, &cfgYAML)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("run %d: parsing created_at: %w", id, err)
	}
	if err := yaml.Unmarshal([]byte(cfgYAML), &run.Config); err != nil {
		return nil, fmt.Errorf("run %d: decoding config: %w", id, err)
	}

	res := sim.NewAggregateResult(run.Trials)
	if err := s.loadCounts(ctx, id, res); err != nil {
		return nil, err
	}
	if err := s.loadSamples(ctx, id, res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("run %d is inconsistent: %w", id, err)
	}
	run.Result = res
	return &run, nil
}

func (s *Store) loadCounts(ctx context.Context, id int64, res *sim.AggregateResult) error {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT trial, category, count FROM trial_counts WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("loading counts of run %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var trial, category, n int
		if err := rows.Scan(&trial, &category, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		series, err := seriesOf(res, category)
		if err != nil {
			return err
		}
		if trial < 0 || trial >= len(series.Counts) {
			return fmt.Errorf("run %d: trial %d out of range", id, trial)
		}
		series.Counts[trial] = n
	}
	return rows.Err()
}

func (s *Store) loadSamples(ctx context.Context, id int64, res *sim.AggregateResult) error {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT category, distance_mpc, total_mass, apparent_mag FROM samples
		 WHERE run_id = ? ORDER BY category, seq`, id)
	if err != nil {
		return fmt.Errorf("loading samples of run %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var category int
		var smp sim.Sample
		if err := rows.Scan(&category, &smp.DistanceMpc, &smp.TotalMass, &smp.ApparentMag); err != nil {
			return fmt.Errorf("scanning sample: %w", err)
		}
		series, err := seriesOf(res, category)
		if err != nil {
			return err
		}
		series.Samples = append(series.Samples, smp)
	}
	return rows.Err()
}

func seriesOf(res *sim.AggregateResult, category int) (*sim.CategorySeries, error) {
	for _, c := range sim.Categories {
		if int(c) == category {
			return res.Category(c), nil
		}
	}
	return nil, fmt.Errorf("unknown category %d", category)
}

// ListRuns returns every stored run header, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, created_at, seed, trials FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()
	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt, &info.Seed, &info.Trials); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("run %d: parsing created_at: %w", info.ID, err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}
