// Package stats tracks daemon-wide counters (sessions, keyed elements,
// decoded tokens) for periodic console output.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker aggregates counters across sessions.
type Tracker struct {
	// per-mode session counts live in sync.Map + atomic.Uint64 so
	// per-event increments don't fight over a mutex
	modeSessions sync.Map // mode string -> *atomic.Uint64
	start        atomic.Int64
	sessions     atomic.Uint64
	active       atomic.Int64
	elements     atomic.Uint64
	tokens       atomic.Uint64
	unrecognized atomic.Uint64
}

// NewTracker creates a new stats tracker.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// IncrementSessions records a newly started session under its keying mode.
func (t *Tracker) IncrementSessions(mode string) {
	t.sessions.Add(1)
	t.active.Add(1)
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = "unknown"
	}
	counter, _ := t.modeSessions.LoadOrStore(mode, &atomic.Uint64{})
	counter.(*atomic.Uint64).Add(1)
}

// DecrementActive records a session teardown.
func (t *Tracker) DecrementActive() {
	t.active.Add(-1)
}

// IncrementElements counts one keyed element (dit or dah).
func (t *Tracker) IncrementElements() {
	t.elements.Add(1)
}

// IncrementTokens counts one decoded token; unknown marks the sentinel.
func (t *Tracker) IncrementTokens(unknown bool) {
	t.tokens.Add(1)
	if unknown {
		t.unrecognized.Add(1)
	}
}

// Totals returns the headline counters.
func (t *Tracker) Totals() (sessions, elements, tokens, unrecognized uint64) {
	return t.sessions.Load(), t.elements.Load(), t.tokens.Load(), t.unrecognized.Load()
}

// Active reports the number of live sessions.
func (t *Tracker) Active() int64 {
	return t.active.Load()
}

// ModeSessions returns a copy of the per-mode session counts.
func (t *Tracker) ModeSessions() map[string]uint64 {
	counts := make(map[string]uint64)
	t.modeSessions.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// Uptime returns how long the tracker has been running.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(time.Unix(0, t.start.Load()))
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.modeSessions.Range(func(key, _ any) bool {
		t.modeSessions.Delete(key)
		return true
	})
	t.sessions.Store(0)
	t.elements.Store(0)
	t.tokens.Store(0)
	t.unrecognized.Store(0)
	t.start.Store(time.Now().UnixNano())
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	lines := make([]string, 0, 2)
	sessions, elements, tokens, unknown := t.Totals()
	lines = append(lines, fmt.Sprintf("Sessions: %d total, %d active | elements keyed: %d | tokens decoded: %d (%d unrecognized)",
		sessions, t.Active(), elements, tokens, unknown))
	lines = append(lines, formatModeCounts("Sessions by mode", t.ModeSessions()))
	return lines
}

func formatModeCounts(label string, counts map[string]uint64) string {
	if len(counts) == 0 {
		return label + ": none"
	}
	modes := make([]string, 0, len(counts))
	for mode := range counts {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	parts := make([]string, 0, len(modes))
	for _, mode := range modes {
		parts = append(parts, fmt.Sprintf("%s=%d", mode, counts[mode]))
	}
	return label + ": " + strings.Join(parts, " ")
}
