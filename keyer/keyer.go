// Package keyer converts raw paddle press and release timestamps into a
// serialized stream of dit and dah transmissions under the four classic
// keying algorithms. Input events only record state; every keying decision
// happens on the periodic tick, so tick granularity bounds timing jitter.
package keyer

import (
	"log"
	"sync"
	"time"

	"cwtrainer/morse"
)

// Paddle identifies an input lever.
type Paddle int

const (
	PaddleDit Paddle = iota
	PaddleDah
	PaddleStraight
)

// Sounder is the audio capability the engine drives. Tone generation itself
// lives with the collaborator (typically the browser client).
type Sounder interface {
	On()
	Off()
	SetTone(hz int)
}

// Edges receives the keyed on/off timing stream, normally a decoder.
type Edges interface {
	KeyOn(now time.Time)
	KeyOff(now time.Time)
}

// Config sets the initial engine parameters.
type Config struct {
	Mode   Mode
	WPM    int
	ToneHz int
	// Logf receives mode-fallback and speed-change diagnostics; nil uses
	// the standard logger.
	Logf func(format string, args ...any)
}

type lever struct {
	pressed    bool
	pressedAt  time.Time
	releasedAt time.Time
}

// Engine is the keyer state machine. All methods are safe for concurrent
// use; input events and the tick share one mutex so a key-down can never
// race an in-flight dispatch.
type Engine struct {
	mu      sync.Mutex
	mode    Mode
	unitMs  float64
	toneHz  int
	sounder Sounder
	edges   Edges
	logf    func(string, ...any)

	dit      lever
	dah      lever
	straight lever

	queue []morse.Element // pending elements; practically 0-2 deep

	sending    bool
	current    morse.Element
	startedAt  time.Time
	stopAt     time.Time
	lastStop   time.Time
	everSent   bool
	lastElem   morse.Element
	memory     *morse.Element // iambic B one-element memory
	oppTouched bool           // opposite paddle seen pressed during current element

	straightOn bool
	closed     bool
}

// New constructs an engine. An invalid mode falls back to Straight.
func New(cfg Config, sounder Sounder, edges Edges) *Engine {
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	mode := cfg.Mode
	if !mode.Valid() {
		logf("Keyer: unknown mode %d, falling back to straight", int(mode))
		mode = ModeStraight
	}
	wpm := morse.ClampWPM(cfg.WPM)
	e := &Engine{
		mode:     mode,
		unitMs:   morse.UnitMs(wpm),
		toneHz:   cfg.ToneHz,
		sounder:  sounder,
		edges:    edges,
		logf:     logf,
		lastElem: morse.Dah, // squeeze starts with a dit
	}
	if sounder != nil && cfg.ToneHz > 0 {
		sounder.SetTone(cfg.ToneHz)
	}
	return e
}

// Press records a paddle transition. Timestamps are taken on the input
// thread; the actual keying decision waits for the next tick.
func (e *Engine) Press(p Paddle, pressed bool, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	var l *lever
	switch p {
	case PaddleDit:
		l = &e.dit
	case PaddleDah:
		l = &e.dah
	case PaddleStraight:
		l = &e.straight
	default:
		return
	}
	if l.pressed == pressed {
		return
	}
	l.pressed = pressed
	if pressed {
		l.pressedAt = now
	} else {
		l.releasedAt = now
	}
}

// SetWPM recomputes the unit length, clamping to the supported range.
func (e *Engine) SetWPM(wpm int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clamped := morse.ClampWPM(wpm)
	if clamped != wpm {
		e.logf("Keyer: wpm %d clamped to %d", wpm, clamped)
	}
	e.unitMs = morse.UnitMs(clamped)
}

// WPM reports the configured sending speed.
func (e *Engine) WPM() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(morse.WPMFromUnit(e.unitMs) + 0.5)
}

// SetMode switches the keying algorithm. Unknown values fall back to
// Straight rather than failing.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !m.Valid() {
		e.logf("Keyer: unknown mode %d, falling back to straight", int(m))
		m = ModeStraight
	}
	e.mode = m
	e.queue = e.queue[:0]
	e.memory = nil
}

// Mode reports the active keying algorithm.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetTone forwards a sidetone frequency change to the sounder.
func (e *Engine) SetTone(hz int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if hz > 0 {
		e.toneHz = hz
		if e.sounder != nil {
			e.sounder.SetTone(hz)
		}
	}
}

// UnitMs reports the current dit length in milliseconds.
func (e *Engine) UnitMs() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unitMs
}

// Tick runs one scheduler pass: finish an element whose time is up, apply
// mode rules to the paddle state, and dispatch the queue head once the
// inter-element gap has elapsed. Ticks after Close are no-ops.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if e.mode == ModeStraight {
		e.tickStraight(now)
		return
	}

	// Finish the active element once its duration has elapsed.
	if e.sending {
		e.observeOpposite()
		if !now.Before(e.stopAt) {
			e.stopElement(now)
		}
	}

	// Recompute the queue from live paddle state. The queue is rebuilt
	// every tick so releasing both paddles drops any not-yet-started
	// element (iambic A has no trailing memory).
	e.queue = e.queue[:0]
	if next, ok := e.nextElement(); ok {
		e.queue = append(e.queue, next)
	}

	if e.sending || len(e.queue) == 0 {
		return
	}
	// Enforce one unit of silence between elements.
	if e.everSent && millis(now.Sub(e.lastStop)) < e.unitMs {
		return
	}
	e.startElement(e.queue[0], now)
	e.queue = e.queue[:0]
}

// tickStraight keys the tone directly from lever state. In straight mode
// the dit and dah levers both act as straight-key contacts.
func (e *Engine) tickStraight(now time.Time) {
	down := e.straight.pressed || e.dit.pressed || e.dah.pressed
	if down && !e.straightOn {
		e.straightOn = true
		if e.sounder != nil {
			e.sounder.On()
		}
		if e.edges != nil {
			e.edges.KeyOn(now)
		}
	} else if !down && e.straightOn {
		e.straightOn = false
		if e.sounder != nil {
			e.sounder.Off()
		}
		if e.edges != nil {
			e.edges.KeyOff(now)
		}
	}
}

// observeOpposite tracks the iambic B memory: the paddle opposite the
// element being sent, pressed and then released while the element is still
// active, arms exactly one extra element.
func (e *Engine) observeOpposite() {
	if e.mode != ModeIambicB {
		return
	}
	opp := e.oppositeLever()
	if opp.pressed {
		e.oppTouched = true
		return
	}
	if e.oppTouched {
		elem := opposite(e.current)
		e.memory = &elem
	}
}

func (e *Engine) oppositeLever() *lever {
	if e.current == morse.Dit {
		return &e.dah
	}
	return &e.dit
}

// nextElement applies the mode rules to the current paddle state.
func (e *Engine) nextElement() (morse.Element, bool) {
	// An armed memory element goes out before anything else, even while
	// the original paddle is still held; the held paddle resumes after.
	if e.mode == ModeIambicB && e.memory != nil {
		return *e.memory, true
	}
	ditHeld, dahHeld := e.dit.pressed, e.dah.pressed
	switch {
	case ditHeld && dahHeld:
		if e.mode == ModeUltimatic {
			// Most recent press wins and repeats; no alternation.
			if e.dit.pressedAt.After(e.dah.pressedAt) {
				return morse.Dit, true
			}
			return morse.Dah, true
		}
		// Squeeze: strictly alternate against the last sent element.
		return opposite(e.lastElem), true
	case ditHeld:
		return morse.Dit, true
	case dahHeld:
		return morse.Dah, true
	default:
		return 0, false
	}
}

// startElement begins keying one element: tone on, decoder notified, stop
// time scheduled one unit (dit) or three units (dah) ahead.
func (e *Engine) startElement(elem morse.Element, now time.Time) {
	e.sending = true
	e.current = elem
	e.lastElem = elem
	e.startedAt = now
	if e.memory != nil && *e.memory == elem {
		e.memory = nil
	}
	e.oppTouched = false
	dur := e.unitMs
	if elem == morse.Dah {
		dur *= 3
	}
	e.stopAt = now.Add(time.Duration(dur * float64(time.Millisecond)))
	if e.sounder != nil {
		e.sounder.On()
	}
	if e.edges != nil {
		e.edges.KeyOn(now)
	}
}

func (e *Engine) stopElement(now time.Time) {
	e.sending = false
	e.lastStop = now
	e.everSent = true
	if e.sounder != nil {
		e.sounder.Off()
	}
	if e.edges != nil {
		e.edges.KeyOff(now)
	}
}

// Sending reports whether an element is currently on the air.
func (e *Engine) Sending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sending || e.straightOn
}

// Close forces the tone off and turns every later tick or press into a
// guarded no-op. An element still on the air gets its closing edge so the
// decoder sees the full tone before the session flushes. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.queue = nil
	e.memory = nil
	if e.sending || e.straightOn {
		if e.sounder != nil {
			e.sounder.Off()
		}
		if e.edges != nil {
			e.edges.KeyOff(time.Now())
		}
	}
	e.sending = false
	e.straightOn = false
}

func opposite(elem morse.Element) morse.Element {
	if elem == morse.Dit {
		return morse.Dah
	}
	return morse.Dit
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
