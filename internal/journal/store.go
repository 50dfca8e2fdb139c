// Package journal persists a local record of what the client did: one
// sqlite row per performed action, plus an optional raw-frame capture for
// offline protocol analysis. Everything here is best-effort; a journal
// failure is logged by the caller and never aborts a patrol.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Action is one performed (or rejected) game action.
type Action struct {
	Time      time.Time
	Kind      string // harvest, clear, plant, buy_seed, care, fertilize, help, steal, sabotage, accept_friend, claim_task, sell, sync_all
	LandID    int
	FriendUID string
	ItemID    int
	Count     int
	Exp       int64
	Note      string
}

type Store struct {
	db *sql.DB

	ch   chan Action
	wg   sync.WaitGroup
	once sync.Once

	runID string
}

// Open creates or opens the journal database and starts the single writer
// goroutine. runID groups one process lifetime's rows together.
func Open(path, runID string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:    db,
		ch:    make(chan Action, 4096),
		runID: runID,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			kind TEXT NOT NULL,
			land_id INTEGER NOT NULL DEFAULT 0,
			friend_uid TEXT NOT NULL DEFAULT '',
			item_id INTEGER NOT NULL DEFAULT 0,
			count INTEGER NOT NULL DEFAULT 0,
			exp INTEGER NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_kind ON actions(kind, ts);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// RecordAction enqueues one row. Never blocks: when the buffer is full the
// row is dropped, losing accounting rather than stalling a patrol.
func (s *Store) RecordAction(a Action) {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	select {
	case s.ch <- a:
	default:
	}
}

func (s *Store) loop() {
	for a := range s.ch {
		_, err := s.db.Exec(
			`INSERT INTO actions (run_id, ts, kind, land_id, friend_uid, item_id, count, exp, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.runID, a.Time.UTC().Format(time.RFC3339Nano), a.Kind,
			a.LandID, a.FriendUID, a.ItemID, a.Count, a.Exp, a.Note,
		)
		if err != nil {
			// Nothing sane to do here; the journal is advisory.
			continue
		}
	}
}

// CountByKind reports how many rows of one kind this run has written.
// Used by tests and the status display.
func (s *Store) CountByKind(kind string) (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM actions WHERE run_id = ? AND kind = ?`, s.runID, kind)
	var n int
	err := row.Scan(&n)
	return n, err
}

// Close drains the queue and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
