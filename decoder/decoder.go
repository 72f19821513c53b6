// Package decoder turns the keyer's on/off edge stream back into characters
// and prosigns. Durations are buffered with their sign (positive tone,
// negative silence), sub-threshold glitches are stitched into their
// neighbors, and the dit/dah and letter/word boundaries are re-estimated
// after every classified element so the decoder tracks the operator's actual
// speed with no external ground truth.
package decoder

import (
	"log"
	"sync"
	"time"

	"cwtrainer/internal/ratelimit"
	"cwtrainer/morse"
)

// Sink receives decoded output. Implementations must not call back into the
// decoder; they run on whichever goroutine delivered the closing edge.
type Sink interface {
	// OnToken delivers a character, a single space, a prosign such as
	// <AR>, or morse.Unrecognized for a pattern the table does not know.
	OnToken(tok string)
	// OnWordBreak fires once when a silence has grown past the word
	// boundary with no further tone.
	OnWordBreak()
}

// Config tunes decoding. Zero values select the defaults used by the daemon.
type Config struct {
	// NoiseThresholdMs absorbs tones or gaps at or below this length into
	// the neighboring entry instead of classifying them. Default 1 ms.
	NoiseThresholdMs float64
	// InitialWPM seeds the dit estimate before any elements arrive.
	// Default 20.
	InitialWPM int
	// HistorySize bounds the adaptive sample ring. Default 30.
	HistorySize int
	// Logf receives throttled diagnostics; nil uses the standard logger.
	Logf func(format string, args ...any)
}

// Decoder is safe for concurrent use, though the keyer normally drives it
// from a single tick goroutine.
type Decoder struct {
	mu    sync.Mutex
	sink  Sink
	model *ditModel

	noiseMs float64
	logf    func(string, ...any)
	unknown ratelimit.Counter

	buf []float64 // signed ms; adjacent entries never share sign

	down         bool
	downAt       time.Time
	upAt         time.Time
	flushed      bool // character already emitted for the current silence
	wordBroken   bool // OnWordBreak already fired for the current silence
	pendingSpace bool // next character gets a leading space
}

// New constructs a decoder feeding the given sink. A nil sink is allowed;
// decoded tokens are then discarded, which the daemon uses while a session
// has no attached client.
func New(cfg Config, sink Sink) *Decoder {
	if cfg.NoiseThresholdMs <= 0 {
		cfg.NoiseThresholdMs = 1
	}
	if cfg.InitialWPM <= 0 {
		cfg.InitialWPM = 20
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Decoder{
		sink:    sink,
		model:   newDitModel(morse.UnitMs(cfg.InitialWPM), cfg.HistorySize),
		noiseMs: cfg.NoiseThresholdMs,
		logf:    logf,
		unknown: ratelimit.NewCounter(10 * time.Second),
	}
}

// KeyOn records a down edge. The silence since the previous up edge is
// pushed as a negative duration and, now that its length is final, settled
// as an intra-character, letter, or word gap.
func (d *Decoder) KeyOn(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return
	}
	d.down = true
	if !d.upAt.IsZero() {
		if gap := millis(now.Sub(d.upAt)); gap > 0 {
			d.push(-gap)
		}
		d.settleSilence()
	}
	d.downAt = now
}

// KeyOff records an up edge and pushes the completed tone duration.
func (d *Decoder) KeyOff(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.down {
		return
	}
	d.down = false
	if dur := millis(now.Sub(d.downAt)); dur > 0 {
		d.push(dur)
	}
	d.upAt = now
	d.flushed = false
	d.wordBroken = false
}

// Idle lets the decoder observe a growing silence between ticks so a
// character is emitted as soon as its letter gap completes instead of
// waiting for the next tone. Safe to call at any frequency.
func (d *Decoder) Idle(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down || d.upAt.IsZero() {
		return
	}
	gap := millis(now.Sub(d.upAt))
	if gap < d.model.ditDah() {
		return
	}
	if !d.flushed {
		d.flushLocked()
		d.flushed = true
	}
	if gap >= d.model.dahSpace() && !d.wordBroken {
		d.wordBroken = true
		d.pendingSpace = true
		if d.sink != nil {
			d.sink.OnWordBreak()
		}
	}
}

// Flush force-emits whatever is buffered, used at session teardown.
// Flushing an empty buffer emits nothing.
func (d *Decoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
	d.flushed = true
}

// Reset drops the timing buffer, calibration, and edge state.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
	d.model.seed(d.model.ditLen())
	d.down = false
	d.downAt = time.Time{}
	d.upAt = time.Time{}
	d.flushed = false
	d.wordBroken = false
	d.pendingSpace = false
}

// SetDitDuration installs an externally calibrated dit length (for example a
// reported adapter timing) and restarts adaptation from it.
func (d *Decoder) SetDitDuration(ms float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model.seed(ms)
}

// WPM reports the live speed estimate derived from the adaptive dit length.
func (d *Decoder) WPM() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return morse.WPMFromUnit(d.model.ditLen())
}

// DitLen reports the current adaptive dit estimate in milliseconds.
func (d *Decoder) DitLen() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.ditLen()
}

// push inserts a signed duration, merging same-sign neighbors and absorbing
// glitches at or below the noise threshold into the previous entry.
func (d *Decoder) push(v float64) {
	n := len(d.buf)
	mag := v
	if mag < 0 {
		mag = -mag
	}
	if mag <= d.noiseMs {
		if n == 0 {
			return
		}
		// A glitch is part of whatever surrounds it: credit its length
		// to the previous entry and let the next push merge through.
		if d.buf[n-1] > 0 {
			d.buf[n-1] += mag
		} else {
			d.buf[n-1] -= mag
		}
		return
	}
	if n > 0 && (d.buf[n-1] > 0) == (v > 0) {
		d.buf[n-1] += v
		return
	}
	d.buf = append(d.buf, v)
}

// settleSilence classifies the trailing silence now that a new tone bounds
// it. Letter-sized gaps flush the character; word-sized gaps additionally
// arm a leading space for the next one. Intra-character gaps stay buffered.
func (d *Decoder) settleSilence() {
	n := len(d.buf)
	if n == 0 || d.buf[n-1] > 0 {
		return
	}
	gap := -d.buf[n-1]
	if gap < d.model.ditDah() {
		return
	}
	if !d.flushed {
		d.flushLocked()
	}
	if gap >= d.model.dahSpace() {
		d.pendingSpace = true
	}
	d.buf = d.buf[:0]
	d.flushed = false
}

// flushLocked classifies buffered entries into a dot-dash pattern, feeds the
// adaptive model, and emits exactly one token. Silence at or past the letter
// boundary never reaches here; settleSilence consumes it first.
func (d *Decoder) flushLocked() {
	var pat []byte
	for _, v := range d.buf {
		if v > 0 {
			if v < d.model.ditDah() {
				pat = append(pat, '.')
				d.model.add(v)
			} else {
				pat = append(pat, '-')
				d.model.add(v / 3)
			}
			continue
		}
		if gap := -v; gap < d.model.ditDah() {
			d.model.add(gap)
		}
	}
	d.buf = d.buf[:0]
	if len(pat) == 0 {
		return
	}
	tok, ok := morse.Decode(string(pat))
	if !ok {
		tok = morse.Unrecognized
		if total, allowed := d.unknown.Inc(); allowed {
			d.logf("Decoder: unrecognized pattern %q (%d total)", pat, total)
		}
	}
	if d.sink == nil {
		return
	}
	if d.pendingSpace {
		d.pendingSpace = false
		d.sink.OnToken(" ")
	}
	d.sink.OnToken(tok)
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
