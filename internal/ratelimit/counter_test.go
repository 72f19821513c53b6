package ratelimit

import (
	"testing"
	"time"
)

func TestCounterThrottles(t *testing.T) {
	c := NewCounter(time.Hour)
	total, ok := c.Inc()
	if total != 1 || !ok {
		t.Fatalf("first Inc = %d, %v; want 1, true", total, ok)
	}
	for i := 0; i < 5; i++ {
		total, ok = c.Inc()
		if ok {
			t.Fatalf("Inc %d allowed inside the interval", i)
		}
	}
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}
	if c.Total() != 6 {
		t.Fatalf("Total() = %d, want 6", c.Total())
	}
}

func TestCounterZeroIntervalAlwaysLogs(t *testing.T) {
	c := NewCounter(0)
	for i := 1; i <= 3; i++ {
		total, ok := c.Inc()
		if !ok || total != uint64(i) {
			t.Fatalf("Inc %d = %d, %v", i, total, ok)
		}
	}
}

func TestNilCounter(t *testing.T) {
	var c *Counter
	if total, ok := c.Inc(); total != 0 || ok {
		t.Fatalf("nil Inc = %d, %v", total, ok)
	}
	if c.Total() != 0 {
		t.Fatalf("nil Total = %d", c.Total())
	}
}
