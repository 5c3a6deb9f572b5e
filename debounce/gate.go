// Package debounce coalesces bursts of values into one delayed delivery.
package debounce

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultDelay is the quiet period used when none is given.
const DefaultDelay = time.Second

// Gate delivers the last pushed value once no push has happened for the
// configured delay. Earlier values in a burst are dropped, not queued.
type Gate struct {
	delay     time.Duration
	onFire    func(string)
	debounced func(func())

	mu      sync.Mutex
	latest  string
	seq     uint64
	stopped bool
}

// New creates a gate that calls onFire on its own goroutine.
// A delay <= 0 selects DefaultDelay.
func New(delay time.Duration, onFire func(string)) *Gate {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Gate{
		delay:     delay,
		onFire:    onFire,
		debounced: debounce.New(delay),
	}
}

// Delay returns the quiet period.
func (g *Gate) Delay() time.Duration { return g.delay }

// Push records v and restarts the quiet period.
func (g *Gate) Push(v string) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.latest = v
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	g.debounced(func() { g.fire(seq) })
}

// fire delivers the latest value if no push superseded seq.
// A timer that already fired can still be running when a new push arrives.
func (g *Gate) fire(seq uint64) {
	g.mu.Lock()
	if g.stopped || seq != g.seq {
		g.mu.Unlock()
		return
	}
	v := g.latest
	g.mu.Unlock()

	g.onFire(v)
}

// Latest returns the most recently pushed value.
func (g *Gate) Latest() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest
}

// Stop drops any pending delivery. Pushes after Stop are ignored.
func (g *Gate) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()

	g.debounced(func() {})
}
