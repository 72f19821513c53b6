// Package archive keeps full session transcripts in a Pebble key/value
// store. Keys sort newest-first via an inverted timestamp so recent
// sessions are one short scan, and a content hash makes re-archiving the
// same session idempotent.
package archive

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/zeebo/xxh3"

	"cwtrainer/session"
)

const (
	sessionPrefix = "s|"
	hashPrefix    = "h|"
)

var errClosed = errors.New("archive: store is closed")

// Store is a durable transcript archive. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	closed bool
}

// Entry is the persisted form of a finished session.
type Entry struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Mode         string    `json:"mode"`
	WPM          int       `json:"wpm"`
	DecoderWPM   float64   `json:"decoder_wpm"`
	Elements     uint64    `json:"elements"`
	Tokens       uint64    `json:"tokens"`
	Unrecognized uint64    `json:"unrecognized"`
	Transcript   string    `json:"transcript"`
}

// Open creates or opens the archive at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Put archives one summary. Writing the same summary content twice is a
// no-op; a changed transcript under the same id is stored again.
func (s *Store) Put(sum session.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	entry := Entry(sum)
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: encode: %w", err)
	}
	hash := xxh3.Hash(value)

	hashKey := []byte(hashPrefix + sum.ID)
	if prev, closer, err := s.db.Get(hashKey); err == nil {
		same := len(prev) == 8 && binary.BigEndian.Uint64(prev) == hash
		closer.Close()
		if same {
			return nil
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("archive: read hash: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(sessionKey(sum.EndedAt, sum.ID), value, nil); err != nil {
		return err
	}
	var hashVal [8]byte
	binary.BigEndian.PutUint64(hashVal[:], hash)
	if err := batch.Set(hashKey, hashVal[:], nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	if n <= 0 {
		n = 10
	}
	iter, err := s.db.NewIter(prefixBounds(sessionPrefix))
	if err != nil {
		return nil, fmt.Errorf("archive: iter: %w", err)
	}
	defer iter.Close()
	var out []Entry
	for valid := iter.First(); valid && len(out) < n; valid = iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue // skip undecodable entries rather than fail the scan
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// Sweep deletes entries older than cutoff and returns how many were
// removed. Bounded batches keep the write path responsive.
func (s *Store) Sweep(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed
	}
	iter, err := s.db.NewIter(prefixBounds(sessionPrefix))
	if err != nil {
		return 0, fmt.Errorf("archive: iter: %w", err)
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Close()
	removed := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		endedAt, id, ok := parseSessionKey(iter.Key())
		if !ok || !endedAt.Before(cutoff) {
			continue
		}
		key := append([]byte(nil), iter.Key()...)
		if err := batch.Delete(key, nil); err != nil {
			return removed, err
		}
		if err := batch.Delete([]byte(hashPrefix+id), nil); err != nil {
			return removed, err
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("archive: sweep commit: %w", err)
	}
	return removed, nil
}

// sessionKey builds "s|<inverted-unix-nanos>|<id>" so iteration order is
// newest first.
func sessionKey(endedAt time.Time, id string) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], math.MaxUint64-uint64(endedAt.UTC().UnixNano()))
	key := make([]byte, 0, len(sessionPrefix)+8+1+len(id))
	key = append(key, sessionPrefix...)
	key = append(key, ts[:]...)
	key = append(key, '|')
	key = append(key, id...)
	return key
}

func parseSessionKey(key []byte) (time.Time, string, bool) {
	if len(key) < len(sessionPrefix)+9 {
		return time.Time{}, "", false
	}
	body := key[len(sessionPrefix):]
	inv := binary.BigEndian.Uint64(body[:8])
	id := string(body[9:])
	return time.Unix(0, int64(math.MaxUint64-inv)).UTC(), id, true
}

func prefixBounds(prefix string) *pebble.IterOptions {
	lower := []byte(prefix)
	upper := append([]byte(prefix[:len(prefix)-1]), prefix[len(prefix)-1]+1)
	return &pebble.IterOptions{LowerBound: lower, UpperBound: upper}
}
