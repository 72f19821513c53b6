package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"cwtrainer/decoder"
	"cwtrainer/keyer"
	"cwtrainer/stats"
)

type nullSounder struct{}

func (nullSounder) On()         {}
func (nullSounder) Off()        {}
func (nullSounder) SetTone(int) {}

type memorySink struct {
	mu     sync.Mutex
	tokens []string
	breaks int
}

func (s *memorySink) OnToken(tok string) {
	s.mu.Lock()
	s.tokens = append(s.tokens, tok)
	s.mu.Unlock()
}

func (s *memorySink) OnWordBreak() {
	s.mu.Lock()
	s.breaks++
	s.mu.Unlock()
}

func (s *memorySink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.tokens, "")
}

func testConfig() Config {
	return Config{
		Mode:   keyer.ModeStraight,
		WPM:    20,
		ToneHz: 600,
		Decoder: decoder.Config{
			InitialWPM: 20,
			Logf:       func(string, ...any) {},
		},
		Logf: func(string, ...any) {},
	}
}

// TestStraightKeySessionDecodesE keys a single dit through a real-time
// session and expects the decoder to produce "E". Timing is generous so that
// tick jitter cannot move an edge across a classification threshold: at
// 20 wpm a dit is 60 ms.
func TestStraightKeySessionDecodesE(t *testing.T) {
	sink := &memorySink{}
	s := New(testConfig(), nullSounder{}, sink, nil)
	defer s.Close()

	s.Press(keyer.PaddleStraight, true, time.Now())
	time.Sleep(60 * time.Millisecond)
	s.Press(keyer.PaddleStraight, false, time.Now())
	// Idle ticks past the letter-gap threshold flush the character.
	time.Sleep(400 * time.Millisecond)

	if got := sink.text(); got != "E" {
		t.Fatalf("decoded %q, want %q", got, "E")
	}
}

func TestCloseReturnsSummary(t *testing.T) {
	sink := &memorySink{}
	s := New(testConfig(), nullSounder{}, sink, nil)

	s.Press(keyer.PaddleStraight, true, time.Now())
	time.Sleep(60 * time.Millisecond)
	s.Press(keyer.PaddleStraight, false, time.Now())
	time.Sleep(400 * time.Millisecond)

	sum := s.Close()
	if sum.ID == "" {
		t.Fatalf("summary has no id")
	}
	if sum.Mode != keyer.ModeStraight.String() {
		t.Fatalf("summary mode = %q", sum.Mode)
	}
	if sum.Elements != 1 {
		t.Fatalf("summary elements = %d, want 1", sum.Elements)
	}
	if sum.Tokens != 1 || sum.Transcript != "E" {
		t.Fatalf("summary tokens=%d transcript=%q", sum.Tokens, sum.Transcript)
	}
	if sum.EndedAt.Before(sum.StartedAt) {
		t.Fatalf("ended %v before started %v", sum.EndedAt, sum.StartedAt)
	}

	// Close is idempotent and later calls return the same transcript.
	again := s.Close()
	if again.ID != sum.ID || again.Transcript != sum.Transcript {
		t.Fatalf("second Close returned a different summary")
	}
}

func TestSessionTracksStats(t *testing.T) {
	tracker := stats.NewTracker()
	s := New(testConfig(), nullSounder{}, nil, tracker)
	if tracker.Active() != 1 {
		t.Fatalf("active = %d after New, want 1", tracker.Active())
	}
	s.Close()
	if tracker.Active() != 0 {
		t.Fatalf("active = %d after Close, want 0", tracker.Active())
	}
	if got := tracker.ModeSessions()[keyer.ModeStraight.String()]; got != 1 {
		t.Fatalf("mode sessions = %d, want 1", got)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	var closed []Summary
	m.OnClose = func(sum Summary) { closed = append(closed, sum) }

	s := New(testConfig(), nullSounder{}, nil, nil)
	m.Add(s)
	if m.Count() != 1 {
		t.Fatalf("count = %d, want 1", m.Count())
	}
	if got, ok := m.Get(s.ID()); !ok || got != s {
		t.Fatalf("Get(%q) = %v, %v", s.ID(), got, ok)
	}

	m.Remove(s.ID())
	if m.Count() != 0 {
		t.Fatalf("count = %d after Remove, want 0", m.Count())
	}
	if len(closed) != 1 || closed[0].ID != s.ID() {
		t.Fatalf("OnClose summaries = %+v", closed)
	}

	m.Remove("no-such-id") // no-op
	if len(closed) != 1 {
		t.Fatalf("OnClose fired for unknown id")
	}
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager()
	var mu sync.Mutex
	var n int
	m.OnClose = func(Summary) {
		mu.Lock()
		n++
		mu.Unlock()
	}
	for i := 0; i < 3; i++ {
		m.Add(New(testConfig(), nullSounder{}, nil, nil))
	}
	m.CloseAll()
	if m.Count() != 0 {
		t.Fatalf("count = %d after CloseAll", m.Count())
	}
	if n != 3 {
		t.Fatalf("OnClose fired %d times, want 3", n)
	}
}

func TestDrillPlaybackStops(t *testing.T) {
	s := New(testConfig(), nullSounder{}, nil, nil)
	defer s.Close()
	s.PlayDrill("CQ CQ", 10)
	time.Sleep(20 * time.Millisecond)
	s.StopDrill()
	// Stopping again or closing mid-playback must not panic.
	s.StopDrill()
}
