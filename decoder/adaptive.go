package decoder

import "cwtrainer/morse"

// ditModel tracks the operator's true dit length from classified elements.
// Samples are normalized to one unit before insertion (dah/3, dit as-is) and
// averaged with linear recency weighting so the estimate follows speed drift
// without jumping on a single rushed element.
type ditModel struct {
	samples []float64
	size    int
	next    int
	count   int
	est     float64
}

func newDitModel(initialDitMs float64, size int) *ditModel {
	if size <= 0 {
		size = 30
	}
	if initialDitMs <= 0 {
		initialDitMs = morse.UnitMs(20)
	}
	return &ditModel{
		samples: make([]float64, size),
		size:    size,
		est:     initialDitMs,
	}
}

// add inserts a normalized dit sample and recomputes the estimate. The
// weighted average ranks samples oldest to newest, weight equal to rank, so
// the most recent sample counts size times as much as the oldest.
func (m *ditModel) add(sample float64) {
	if sample <= 0 {
		return
	}
	m.samples[m.next] = sample
	m.next = (m.next + 1) % m.size
	if m.count < m.size {
		m.count++
	}
	var sum, den float64
	for i := 0; i < m.count; i++ {
		idx := (m.next - m.count + i + m.size) % m.size
		w := float64(i + 1)
		sum += w * m.samples[idx]
		den += w
	}
	est := sum / den
	// Keep the estimate inside the supported speed range so one garbage
	// burst cannot push the thresholds somewhere unrecoverable.
	if min := morse.UnitMs(morse.MaxWPM); est < min {
		est = min
	}
	if max := morse.UnitMs(morse.MinWPM); est > max {
		est = max
	}
	m.est = est
}

// seed replaces the estimate with an externally supplied dit length and
// discards accumulated samples so adaptation restarts from the new value.
func (m *ditModel) seed(ditMs float64) {
	if ditMs <= 0 {
		return
	}
	m.est = ditMs
	m.next = 0
	m.count = 0
}

func (m *ditModel) ditLen() float64 { return m.est }

// ditDah is the tone boundary: shorter is a dit, longer is a dah. The same
// boundary separates intra-character gaps from letter gaps.
func (m *ditModel) ditDah() float64 { return 2 * m.est }

// dahSpace is the silence boundary between a letter gap and a word gap.
func (m *ditModel) dahSpace() float64 { return 5 * m.est }
