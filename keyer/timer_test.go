package keyer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresAndStops(t *testing.T) {
	var ticks atomic.Int64
	tm := NewTimer(time.Millisecond, func(time.Time) { ticks.Add(1) })
	tm.Start()
	time.Sleep(100 * time.Millisecond)
	tm.Stop()
	got := ticks.Load()
	if got < 10 {
		t.Fatalf("only %d ticks in 100ms at 1ms interval", got)
	}
	// No callback after Stop returns.
	time.Sleep(20 * time.Millisecond)
	if after := ticks.Load(); after != got {
		t.Fatalf("timer fired %d more times after Stop", after-got)
	}
}

func TestTimerStartStopIdempotent(t *testing.T) {
	var ticks atomic.Int64
	tm := NewTimer(0, func(time.Time) { ticks.Add(1) }) // 0 selects the default
	tm.Start()
	tm.Start() // second Start is a no-op
	time.Sleep(20 * time.Millisecond)
	tm.Stop()
	tm.Stop() // second Stop is a no-op
	if ticks.Load() == 0 {
		t.Fatalf("timer never fired")
	}
}

func TestTimerRestart(t *testing.T) {
	var ticks atomic.Int64
	tm := NewTimer(time.Millisecond, func(time.Time) { ticks.Add(1) })
	tm.Start()
	time.Sleep(10 * time.Millisecond)
	tm.Stop()
	first := ticks.Load()
	tm.Start()
	time.Sleep(10 * time.Millisecond)
	tm.Stop()
	if ticks.Load() <= first {
		t.Fatalf("timer did not fire after restart")
	}
}
