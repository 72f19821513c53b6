// Package session scopes one keyer/decoder pair to a practice run. The
// engine, decoder, and tick timer are owned by the Session and die with it;
// nothing here is a package-level singleton.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cwtrainer/decoder"
	"cwtrainer/keyer"
	"cwtrainer/morse"
	"cwtrainer/stats"
)

// Config carries the per-session parameters, typically seeded from the
// daemon configuration and then adjusted by the client.
type Config struct {
	Mode         keyer.Mode
	WPM          int
	ToneHz       int
	TickInterval time.Duration
	Decoder      decoder.Config
	Logf         func(format string, args ...any)
}

// Summary describes a finished session for persistence.
type Summary struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	Mode         string
	WPM          int
	DecoderWPM   float64
	Elements     uint64
	Tokens       uint64
	Unrecognized uint64
	Transcript   string
}

// Session binds an engine, a decoder, and the periodic tick for one
// practice run.
type Session struct {
	id        string
	startedAt time.Time

	engine *keyer.Engine
	dec    *decoder.Decoder
	timer  *keyer.Timer

	mu         sync.Mutex
	transcript strings.Builder
	elements   uint64
	tokens     uint64
	unknown    uint64
	closed     bool

	sink    decoder.Sink
	tracker *stats.Tracker

	player *player
}

// edgeTap forwards keyed edges to the decoder while counting elements.
type edgeTap struct{ s *Session }

func (t edgeTap) KeyOn(now time.Time) {
	t.s.mu.Lock()
	t.s.elements++
	t.s.mu.Unlock()
	if t.s.tracker != nil {
		t.s.tracker.IncrementElements()
	}
	t.s.dec.KeyOn(now)
}

func (t edgeTap) KeyOff(now time.Time) { t.s.dec.KeyOff(now) }

// tokenTap records decoded output before handing it to the client sink.
type tokenTap struct{ s *Session }

func (t tokenTap) OnToken(tok string) {
	t.s.mu.Lock()
	t.s.transcript.WriteString(tok)
	t.s.tokens++
	if tok == morse.Unrecognized {
		t.s.unknown++
	}
	sink := t.s.sink
	t.s.mu.Unlock()
	if t.s.tracker != nil {
		t.s.tracker.IncrementTokens(tok == morse.Unrecognized)
	}
	if sink != nil {
		sink.OnToken(tok)
	}
}

func (t tokenTap) OnWordBreak() {
	t.s.mu.Lock()
	sink := t.s.sink
	t.s.mu.Unlock()
	if sink != nil {
		sink.OnWordBreak()
	}
}

// New builds a session and starts its tick loop. The sounder is the
// client's tone capability; the sink receives decoded tokens. Either may be
// nil for a headless session.
func New(cfg Config, sounder keyer.Sounder, sink decoder.Sink, tracker *stats.Tracker) *Session {
	s := &Session{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		sink:      sink,
		tracker:   tracker,
	}
	s.dec = decoder.New(cfg.Decoder, tokenTap{s})
	s.engine = keyer.New(keyer.Config{
		Mode:   cfg.Mode,
		WPM:    cfg.WPM,
		ToneHz: cfg.ToneHz,
		Logf:   cfg.Logf,
	}, sounder, edgeTap{s})
	s.player = newPlayer(sounder)
	s.timer = keyer.NewTimer(cfg.TickInterval, func(now time.Time) {
		s.engine.Tick(now)
		s.dec.Idle(now)
	})
	s.timer.Start()
	if tracker != nil {
		tracker.IncrementSessions(s.engine.Mode().String())
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Press forwards a paddle transition to the engine, timestamped on arrival.
func (s *Session) Press(p keyer.Paddle, pressed bool, now time.Time) {
	s.engine.Press(p, pressed, now)
}

// SetWPM changes the sending speed.
func (s *Session) SetWPM(wpm int) { s.engine.SetWPM(wpm) }

// SetMode changes the keying algorithm.
func (s *Session) SetMode(m keyer.Mode) { s.engine.SetMode(m) }

// SetTone changes the sidetone frequency.
func (s *Session) SetTone(hz int) { s.engine.SetTone(hz) }

// SetDitDuration calibrates the decoder from an external timing source.
func (s *Session) SetDitDuration(ms float64) { s.dec.SetDitDuration(ms) }

// DecoderWPM reports the decoder's live adaptive speed estimate.
func (s *Session) DecoderWPM() float64 { return s.dec.WPM() }

// ResetDecoder drops decoder calibration and buffered timing.
func (s *Session) ResetDecoder() { s.dec.Reset() }

// PlayDrill keys drill text through the sounder at the engine speed, with
// spacing stretched to spacingWPM when it is slower (Farnsworth timing).
// Any running playback is cancelled first.
func (s *Session) PlayDrill(text string, spacingWPM int) {
	unit := s.engine.UnitMs()
	spacing := unit
	if spacingWPM > 0 {
		if sp := morse.UnitMs(spacingWPM); sp > spacing {
			spacing = sp
		}
	}
	s.player.play(morse.Schedule(text, unit, spacing))
}

// StopDrill cancels any running playback and silences the tone.
func (s *Session) StopDrill() { s.player.stop() }

// Close stops the tick loop, cancels playback, forces the tone off, and
// flushes any half-decoded character. It returns the session summary and is
// safe to call more than once; later calls return the same summary.
func (s *Session) Close() Summary {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !alreadyClosed {
		s.timer.Stop()
		s.player.stop()
		s.engine.Close()
		s.dec.Flush()
		if s.tracker != nil {
			s.tracker.DecrementActive()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:           s.id,
		StartedAt:    s.startedAt,
		EndedAt:      time.Now().UTC(),
		Mode:         s.engine.Mode().String(),
		WPM:          s.engine.WPM(),
		DecoderWPM:   s.dec.WPM(),
		Elements:     s.elements,
		Tokens:       s.tokens,
		Unrecognized: s.unknown,
		Transcript:   s.transcript.String(),
	}
}
