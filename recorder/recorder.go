// Package recorder persists a bounded number of finished session summaries
// to SQLite for offline progress review without slowing session teardown.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cwtrainer/session"

	_ "modernc.org/sqlite"
)

// Recorder persists session summaries into SQLite.
type Recorder struct {
	db    *sql.DB
	limit int
	mu    sync.Mutex
	count int
}

// NewRecorder opens (or creates) the database at path and ensures the
// schema exists. limit bounds the number of stored sessions.
func NewRecorder(path string, limit int) (*Recorder, error) {
	if limit <= 0 {
		return nil, errors.New("recorder: session limit must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	r := &Recorder{db: db, limit: limit}
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&r.count); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: count: %w", err)
	}
	return r, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    started_at INTEGER,
    ended_at INTEGER,
    mode TEXT,
    wpm INTEGER,
    decoder_wpm REAL,
    elements INTEGER,
    tokens INTEGER,
    unrecognized INTEGER,
    transcript TEXT
);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record inserts the summary unless the session limit has been reached.
// The insert runs on its own goroutine so teardown never waits on disk.
func (r *Recorder) Record(s session.Summary) {
	if r == nil || r.db == nil {
		return
	}
	r.mu.Lock()
	if r.count >= r.limit {
		r.mu.Unlock()
		return
	}
	r.count++
	r.mu.Unlock()

	go r.insert(s)
}

// RecordSync inserts the summary on the calling goroutine; used by shutdown
// and tests where the write must land before the database closes.
func (r *Recorder) RecordSync(s session.Summary) {
	if r == nil || r.db == nil {
		return
	}
	r.mu.Lock()
	if r.count >= r.limit {
		r.mu.Unlock()
		return
	}
	r.count++
	r.mu.Unlock()
	r.insert(s)
}

func (r *Recorder) insert(s session.Summary) {
	_, err := r.db.Exec(`
INSERT OR REPLACE INTO sessions (
    id, started_at, ended_at, mode, wpm, decoder_wpm,
    elements, tokens, unrecognized, transcript
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.StartedAt.UTC().Unix(),
		s.EndedAt.UTC().Unix(),
		s.Mode,
		s.WPM,
		s.DecoderWPM,
		s.Elements,
		s.Tokens,
		s.Unrecognized,
		s.Transcript,
	)
	if err != nil {
		fmt.Printf("Recorder: failed to insert session: %v\n", err)
	}
}

// Recent returns up to n summaries, newest first.
func (r *Recorder) Recent(n int) ([]session.Summary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("recorder: closed")
	}
	if n <= 0 {
		n = 10
	}
	rows, err := r.db.Query(`
SELECT id, started_at, ended_at, mode, wpm, decoder_wpm,
       elements, tokens, unrecognized, transcript
FROM sessions ORDER BY ended_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recorder: query: %w", err)
	}
	defer rows.Close()
	var out []session.Summary
	for rows.Next() {
		var s session.Summary
		var started, ended int64
		if err := rows.Scan(&s.ID, &started, &ended, &s.Mode, &s.WPM, &s.DecoderWPM,
			&s.Elements, &s.Tokens, &s.Unrecognized, &s.Transcript); err != nil {
			return nil, fmt.Errorf("recorder: scan: %w", err)
		}
		s.StartedAt = time.Unix(started, 0).UTC()
		s.EndedAt = time.Unix(ended, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
