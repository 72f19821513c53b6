package morse

// UnitMs returns the dit duration in milliseconds at the given speed using
// PARIS timing (50 units per word, so one unit is 1200/wpm ms). Speeds are
// clamped to the supported range before conversion.
func UnitMs(wpm int) float64 {
	return 60000.0 / (float64(ClampWPM(wpm)) * 50.0)
}

// WPMFromUnit is the inverse of UnitMs, used to report decoder speed.
func WPMFromUnit(unitMs float64) float64 {
	if unitMs <= 0 {
		return 0
	}
	return 1200.0 / unitMs
}

// MinWPM and MaxWPM bound the usable speed range.
const (
	MinWPM = 5
	MaxWPM = 60
)

// ClampWPM forces a speed into [MinWPM, MaxWPM].
func ClampWPM(wpm int) int {
	if wpm < MinWPM {
		return MinWPM
	}
	if wpm > MaxWPM {
		return MaxWPM
	}
	return wpm
}

// Schedule converts text into an idealized signed-duration stream: positive
// values are tone, negative values are silence, in milliseconds. Elements are
// keyed at unitMs while letter and word gaps are stretched by spacingMs
// (Farnsworth timing); pass spacingMs equal to unitMs for standard spacing.
// A nil result means the text contained nothing sendable.
func Schedule(text string, unitMs, spacingMs float64) []float64 {
	if unitMs <= 0 {
		return nil
	}
	if spacingMs < unitMs {
		spacingMs = unitMs
	}
	var out []float64
	pendingGap := 0.0
	for _, tok := range Tokenize(text) {
		if tok == " " {
			pendingGap = 7 * spacingMs
			continue
		}
		pat, ok := Pattern(tok)
		if !ok {
			continue
		}
		if len(out) > 0 {
			gap := pendingGap
			if gap == 0 {
				gap = 3 * spacingMs
			}
			out = append(out, -gap)
		}
		pendingGap = 0
		for i, c := range pat {
			if i > 0 {
				out = append(out, -unitMs)
			}
			if c == '-' {
				out = append(out, 3*unitMs)
			} else {
				out = append(out, unitMs)
			}
		}
	}
	return out
}
