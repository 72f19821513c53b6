package decoder

import (
	"strings"
	"testing"
	"time"

	"cwtrainer/morse"
)

type collector struct {
	tokens     []string
	wordBreaks int
}

func (c *collector) OnToken(tok string) { c.tokens = append(c.tokens, tok) }
func (c *collector) OnWordBreak()       { c.wordBreaks++ }

func (c *collector) text() string { return strings.Join(c.tokens, "") }

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// feed walks an idealized signed-duration schedule through the decoder's
// edge API, then lets a long idle period flush the tail.
func feed(d *Decoder, sched []float64) {
	now := testStart
	for _, dur := range sched {
		if dur > 0 {
			d.KeyOn(now)
			now = now.Add(time.Duration(dur * float64(time.Millisecond)))
			d.KeyOff(now)
		} else {
			now = now.Add(time.Duration(-dur * float64(time.Millisecond)))
		}
	}
	d.Idle(now.Add(time.Second))
}

func newTestDecoder(sink Sink) *Decoder {
	return New(Config{Logf: func(string, ...any) {}}, sink)
}

func TestRoundTripSingleCharacters(t *testing.T) {
	for _, text := range []string{"A", "E", "T", "S", "O", "5", "Q", "?"} {
		c := &collector{}
		d := newTestDecoder(c)
		feed(d, morse.Schedule(text, 60, 60))
		if got := c.text(); got != text {
			t.Fatalf("round trip %q decoded as %q", text, got)
		}
	}
}

func TestRoundTripWords(t *testing.T) {
	c := &collector{}
	d := newTestDecoder(c)
	feed(d, morse.Schedule("CQ TEST", 60, 60))
	if got := c.text(); got != "CQ TEST" {
		t.Fatalf("decoded %q, want %q", got, "CQ TEST")
	}
	if c.wordBreaks == 0 {
		t.Fatalf("expected a word break notification")
	}
}

func TestRoundTripAcrossSpeeds(t *testing.T) {
	for _, wpm := range []int{5, 12, 20, 35, 60} {
		unit := morse.UnitMs(wpm)
		c := &collector{}
		d := New(Config{InitialWPM: wpm, Logf: func(string, ...any) {}}, c)
		feed(d, morse.Schedule("PARIS", unit, unit))
		if got := c.text(); got != "PARIS" {
			t.Fatalf("wpm %d: decoded %q", wpm, got)
		}
	}
}

func TestProsignDecodesWhole(t *testing.T) {
	// -...-.- must come out as <BK>, never as B plus stray dashes.
	c := &collector{}
	d := newTestDecoder(c)
	feed(d, morse.Schedule("<BK>", 60, 60))
	if len(c.tokens) != 1 || c.tokens[0] != "<BK>" {
		t.Fatalf("decoded %v, want single <BK>", c.tokens)
	}
}

func TestScenarioLetterAWithTrailingWordGap(t *testing.T) {
	// WPM 20, unit 60 ms: tone 60, gap 60, tone 180, gap 420 is "A" with
	// a pending word gap; the next character starts with a leading space.
	c := &collector{}
	d := newTestDecoder(c)
	now := testStart
	d.KeyOn(now)
	now = now.Add(60 * time.Millisecond)
	d.KeyOff(now)
	now = now.Add(60 * time.Millisecond)
	d.KeyOn(now)
	now = now.Add(180 * time.Millisecond)
	d.KeyOff(now)
	now = now.Add(420 * time.Millisecond)

	// Next character: E.
	d.KeyOn(now)
	now = now.Add(60 * time.Millisecond)
	d.KeyOff(now)
	d.Idle(now.Add(time.Second))

	if got := c.text(); got != "A E" {
		t.Fatalf("decoded %q, want %q", got, "A E")
	}
}

func TestEmptyFlushEmitsNothing(t *testing.T) {
	c := &collector{}
	d := newTestDecoder(c)
	d.Flush()
	d.Flush()
	d.Idle(testStart)
	if len(c.tokens) != 0 {
		t.Fatalf("empty flush emitted %v", c.tokens)
	}
}

func TestGlitchMergedIntoNeighbor(t *testing.T) {
	// A 0.5 ms dropout inside one dit must not split it into two elements.
	c := &collector{}
	d := newTestDecoder(c)
	now := testStart
	d.KeyOn(now)
	now = now.Add(30 * time.Millisecond)
	d.KeyOff(now)
	now = now.Add(500 * time.Microsecond)
	d.KeyOn(now)
	now = now.Add(30 * time.Millisecond)
	d.KeyOff(now)
	d.Idle(now.Add(time.Second))

	if got := c.text(); got != "E" {
		t.Fatalf("decoded %q, want single E", got)
	}
}

func TestUnknownPatternEmitsSentinel(t *testing.T) {
	// Nine dits matches nothing; the decoder must emit the sentinel and
	// keep going.
	c := &collector{}
	d := newTestDecoder(c)
	sched := make([]float64, 0, 17)
	for i := 0; i < 9; i++ {
		if i > 0 {
			sched = append(sched, -60)
		}
		sched = append(sched, 60)
	}
	feed(d, sched)
	if len(c.tokens) != 1 || c.tokens[0] != morse.Unrecognized {
		t.Fatalf("decoded %v, want unrecognized sentinel", c.tokens)
	}

	// Decoder state survives: a normal letter still decodes.
	feed(d, morse.Schedule("K", 60, 60))
	if c.tokens[len(c.tokens)-1] != "K" {
		t.Fatalf("decoder wedged after sentinel: %v", c.tokens)
	}
}

func TestOneTokenPerCharacterGap(t *testing.T) {
	c := &collector{}
	d := newTestDecoder(c)
	sched := morse.Schedule("SSS", 60, 60)
	feed(d, sched)
	if len(c.tokens) != 3 {
		t.Fatalf("got %d tokens (%v), want 3", len(c.tokens), c.tokens)
	}
	// Extra idle calls after the flush must not re-emit.
	d.Idle(testStart.Add(time.Hour))
	d.Flush()
	if len(c.tokens) != 3 {
		t.Fatalf("idle after flush re-emitted: %v", c.tokens)
	}
}

func TestAdaptsToSpeedDrift(t *testing.T) {
	c := &collector{}
	d := newTestDecoder(c)
	// Start at 20 wpm, drift to 30 wpm.
	feed(d, morse.Schedule("PARIS PARIS", 60, 60))
	unit30 := morse.UnitMs(30)
	sched := morse.Schedule("PARIS PARIS", unit30, unit30)
	now := testStart
	for _, dur := range sched {
		if dur > 0 {
			d.KeyOn(now)
			now = now.Add(time.Duration(dur * float64(time.Millisecond)))
			d.KeyOff(now)
		} else {
			now = now.Add(time.Duration(-dur * float64(time.Millisecond)))
		}
	}
	d.Idle(now.Add(time.Second))

	got := d.WPM()
	if got < 25 || got > 32 {
		t.Fatalf("estimate %v wpm after drift to 30", got)
	}
	text := c.text()
	if !strings.HasSuffix(text, "PARIS") {
		t.Fatalf("decoded %q through the speed change", text)
	}
}

func TestSetDitDurationSeedsEstimate(t *testing.T) {
	d := newTestDecoder(nil)
	d.SetDitDuration(40)
	if got := d.DitLen(); got != 40 {
		t.Fatalf("DitLen = %v, want 40", got)
	}
	if got := d.WPM(); got != 30 {
		t.Fatalf("WPM = %v, want 30", got)
	}
}

func TestResetClearsPending(t *testing.T) {
	c := &collector{}
	d := newTestDecoder(c)
	d.KeyOn(testStart)
	d.KeyOff(testStart.Add(60 * time.Millisecond))
	d.Reset()
	d.Flush()
	if len(c.tokens) != 0 {
		t.Fatalf("reset did not clear buffer: %v", c.tokens)
	}
}

func TestNilSinkIsSafe(t *testing.T) {
	d := newTestDecoder(nil)
	feed(d, morse.Schedule("CQ CQ", 60, 60))
	if d.WPM() <= 0 {
		t.Fatalf("decoder with nil sink stopped adapting")
	}
}
