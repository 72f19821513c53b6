package stats

import (
	"strings"
	"testing"
)

func TestTrackerCounters(t *testing.T) {
	tr := NewTracker()
	tr.IncrementSessions("iambic-b")
	tr.IncrementSessions("iambic-b")
	tr.IncrementSessions("straight")
	tr.DecrementActive()
	for i := 0; i < 5; i++ {
		tr.IncrementElements()
	}
	tr.IncrementTokens(false)
	tr.IncrementTokens(true)

	sessions, elements, tokens, unknown := tr.Totals()
	if sessions != 3 || elements != 5 || tokens != 2 || unknown != 1 {
		t.Fatalf("totals = %d/%d/%d/%d", sessions, elements, tokens, unknown)
	}
	if tr.Active() != 2 {
		t.Fatalf("active = %d, want 2", tr.Active())
	}
	counts := tr.ModeSessions()
	if counts["iambic-b"] != 2 || counts["straight"] != 1 {
		t.Fatalf("mode counts = %v", counts)
	}
}

func TestTrackerBlankModeBucketsAsUnknown(t *testing.T) {
	tr := NewTracker()
	tr.IncrementSessions("  ")
	if got := tr.ModeSessions()["unknown"]; got != 1 {
		t.Fatalf("unknown bucket = %d, want 1", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.IncrementSessions("straight")
	tr.IncrementElements()
	tr.Reset()
	sessions, elements, tokens, unknown := tr.Totals()
	if sessions != 0 || elements != 0 || tokens != 0 || unknown != 0 {
		t.Fatalf("totals after reset = %d/%d/%d/%d", sessions, elements, tokens, unknown)
	}
	if len(tr.ModeSessions()) != 0 {
		t.Fatalf("mode counts survived reset: %v", tr.ModeSessions())
	}
}

func TestSnapshotLines(t *testing.T) {
	tr := NewTracker()
	tr.IncrementSessions("ultimatic")
	lines := tr.SnapshotLines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "Sessions: 1 total, 1 active") {
		t.Fatalf("headline = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ultimatic=1") {
		t.Fatalf("mode line = %q", lines[1])
	}
}
