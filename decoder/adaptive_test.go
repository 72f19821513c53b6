package decoder

import (
	"math"
	"testing"

	"cwtrainer/morse"
)

func TestDitModelThresholdRatios(t *testing.T) {
	m := newDitModel(60, 30)
	if m.ditDah() != 120 {
		t.Fatalf("ditDah = %v, want 2x dit", m.ditDah())
	}
	if m.dahSpace() != 300 {
		t.Fatalf("dahSpace = %v, want 5x dit", m.dahSpace())
	}
	m.add(80)
	if m.ditDah() != 2*m.ditLen() || m.dahSpace() != 5*m.ditLen() {
		t.Fatalf("thresholds must rederive from the estimate after every update")
	}
}

func TestDitModelRecencyWeighting(t *testing.T) {
	m := newDitModel(60, 30)
	m.add(60)
	m.add(30)
	// Weights 1 and 2: (1*60 + 2*30) / 3 = 40.
	if math.Abs(m.ditLen()-40) > 1e-9 {
		t.Fatalf("ditLen = %v, want 40", m.ditLen())
	}
}

func TestDitModelRingBounds(t *testing.T) {
	m := newDitModel(60, 3)
	for _, s := range []float64{100, 100, 100, 40, 40, 40} {
		m.add(s)
	}
	// The three old samples fell off the ring.
	if m.ditLen() != 40 {
		t.Fatalf("ditLen = %v, want 40 after ring wrap", m.ditLen())
	}
}

func TestDitModelClampsToSpeedRange(t *testing.T) {
	m := newDitModel(60, 30)
	m.add(1)
	if m.ditLen() < morse.UnitMs(morse.MaxWPM) {
		t.Fatalf("estimate %v below the 60 wpm floor", m.ditLen())
	}
	m = newDitModel(60, 30)
	m.add(100000)
	if m.ditLen() > morse.UnitMs(morse.MinWPM) {
		t.Fatalf("estimate %v above the 5 wpm ceiling", m.ditLen())
	}
}

func TestDitModelIgnoresNonPositive(t *testing.T) {
	m := newDitModel(60, 30)
	m.add(0)
	m.add(-5)
	if m.ditLen() != 60 {
		t.Fatalf("non-positive samples moved the estimate to %v", m.ditLen())
	}
}

func TestDitModelSeedRestartsAdaptation(t *testing.T) {
	m := newDitModel(60, 30)
	m.add(100)
	m.seed(40)
	if m.ditLen() != 40 {
		t.Fatalf("seed did not install estimate: %v", m.ditLen())
	}
	m.add(40)
	if m.ditLen() != 40 {
		t.Fatalf("old samples leaked past seed: %v", m.ditLen())
	}
}
