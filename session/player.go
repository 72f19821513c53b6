package session

import (
	"sync"
	"time"

	"cwtrainer/keyer"
)

// player walks an idealized signed-duration schedule through the sounder on
// its own goroutine. Positive entries key the tone on for that many
// milliseconds, negative entries rest. stop cancels mid-element and forces
// the tone off.
type player struct {
	sounder keyer.Sounder
	mu      sync.Mutex
	cancel  chan struct{}
}

func newPlayer(sounder keyer.Sounder) *player {
	return &player{sounder: sounder}
}

func (p *player) play(schedule []float64) {
	p.stop()
	if len(schedule) == 0 || p.sounder == nil {
		return
	}
	cancel := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	go p.run(schedule, cancel)
}

func (p *player) run(schedule []float64, cancel chan struct{}) {
	for _, d := range schedule {
		ms := d
		if ms < 0 {
			ms = -ms
		} else {
			p.sounder.On()
		}
		timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
		select {
		case <-timer.C:
		case <-cancel:
			timer.Stop()
			p.sounder.Off()
			return
		}
		if d > 0 {
			p.sounder.Off()
		}
	}
}

func (p *player) stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		close(cancel)
	}
}
