// Package indexdb keeps a queryable SQLite index of simulation runs.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"go-mas-sim/internal/core"
)

type SQLiteIndex struct {
	db *sql.DB

	mu   sync.Mutex
	once sync.Once
}

// Sample is an agent position at one instant.
type Sample struct {
	Time core.Time
	X    float64
	Y    float64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			time REAL NOT NULL,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			subject TEXT NOT NULL,
			payload_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_run_subject ON records(run_id, subject, time);`,
		`CREATE TABLE IF NOT EXISTS observations (
			run_id TEXT NOT NULL,
			agent TEXT NOT NULL,
			time REAL NOT NULL,
			x REAL,
			y REAL,
			values_json TEXT NOT NULL,
			PRIMARY KEY (run_id, agent, time)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() { err = s.db.Close() })
	return err
}

func (s *SQLiteIndex) ObserveOutput(ctx context.Context, rec core.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records(id,run_id,time,sender,receiver,subject,payload_json) VALUES(?,?,?,?,?,?,?)`,
		rec.ID, rec.RunID, float64(rec.Time), rec.Sender, rec.Receiver, rec.Subject, string(payload))
	return err
}

// ObserveState stores obs. A second observation of the same agent at the
// same instant replaces the first.
func (s *SQLiteIndex) ObserveState(ctx context.Context, obs core.Observation) error {
	values, err := json.Marshal(obs.Values)
	if err != nil {
		return err
	}
	var x, y sql.NullFloat64
	if v, ok := obs.Float("x"); ok {
		x = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := obs.Float("y"); ok {
		y = sql.NullFloat64{Float64: v, Valid: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO observations(run_id,agent,time,x,y,values_json) VALUES(?,?,?,?,?,?)`,
		obs.RunID, obs.Agent, float64(obs.Time), x, y, string(values))
	return err
}

// Positions returns the observed positions of agent in run, oldest first.
func (s *SQLiteIndex) Positions(ctx context.Context, runID, agent string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, x, y FROM observations WHERE run_id=? AND agent=? AND x IS NOT NULL AND y IS NOT NULL ORDER BY time`,
		runID, agent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sample
	for rows.Next() {
		var smp Sample
		var t float64
		if err := rows.Scan(&t, &smp.X, &smp.Y); err != nil {
			return nil, err
		}
		smp.Time = core.Time(t)
		out = append(out, smp)
	}
	return out, rows.Err()
}

// CountRecords counts the records of run with the given subject, or all of
// them when subject is empty.
func (s *SQLiteIndex) CountRecords(ctx context.Context, runID, subject string) (int, error) {
	q := `SELECT COUNT(*) FROM records WHERE run_id=?`
	args := []any{runID}
	if subject != "" {
		q += ` AND subject=?`
		args = append(args, subject)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
