package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens (or creates) the given database file.
// The filename "memory" opens a fresh in-memory database.
func NewSQLiteStore(filename string) (*SQLiteStore, error) {
	if filename == "" || filename == "memory" {
		filename = ":memory:"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	// each :memory: connection is its own database
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			base_url TEXT,
			state TEXT,
			confidence TEXT,
			iterations INTEGER,
			started_at INTEGER,
			finished_at INTEGER,
			report BLOB
		)`,
		"CREATE INDEX IF NOT EXISTS started_at_idx ON runs (started_at)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %s: %w", filename, err)
		}
	}
	return &SQLiteStore{db: db, writeMutex: &sync.Mutex{}}, nil
}

func (s *SQLiteStore) Save(run Run) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs
		(id, base_url, state, confidence, iterations, started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BaseURL, run.State, run.Confidence, run.Iterations,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Report)
	return err
}

func (s *SQLiteStore) Get(id string) (Run, bool, error) {
	var run Run
	var started, finished int64
	err := s.db.QueryRow(`SELECT
		id, base_url, state, confidence, iterations, started_at, finished_at, report
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.BaseURL, &run.State, &run.Confidence, &run.Iterations, &started, &finished, &run.Report)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	return run, true, nil
}

func (s *SQLiteStore) List() ([]RunInfo, error) {
	runs := make([]RunInfo, 0)
	rows, err := s.db.Query(`SELECT
		id, base_url, state, confidence, iterations, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return runs, err
	}
	defer rows.Close()
	for rows.Next() {
		var info RunInfo
		var started, finished int64
		if err := rows.Scan(&info.ID, &info.BaseURL, &info.State, &info.Confidence, &info.Iterations, &started, &finished); err != nil {
			return runs, err
		}
		info.StartedAt = time.UnixMilli(started)
		info.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
