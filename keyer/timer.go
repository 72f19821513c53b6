package keyer

import (
	"sync"
	"time"
)

// defaultTickInterval keeps scheduling jitter at or below one millisecond.
const defaultTickInterval = time.Millisecond

// Timer drives a tick function on a fixed short interval. It models the
// continuously-polling cooperative loop the keyer depends on: the tick must
// fire frequently and never block.
type Timer struct {
	interval time.Duration
	tick     func(now time.Time)
	mu       sync.Mutex
	quit     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewTimer constructs a stopped timer. A non-positive interval selects the
// 1 ms default.
func NewTimer(interval time.Duration, tick func(now time.Time)) *Timer {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Timer{interval: interval, tick: tick}
}

// Start launches the tick goroutine. Starting a running timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quit != nil {
		return
	}
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.run(t.quit, t.done)
}

// Stop cancels the periodic tick and waits for the loop to exit, so no
// callback can fire after Stop returns. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit = nil
	t.done = nil
	t.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
}

func (t *Timer) run(quit, done chan struct{}) {
	defer t.wg.Done()
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			t.tick(now)
		case <-quit:
			return
		}
	}
}
