package interact

import (
	"sync"
	"time"
)

// DefaultDoubleTapWindow is the maximum delay between two taps of a double
// activation.
const DefaultDoubleTapWindow = 300 * time.Millisecond

// DoubleTap turns taps into double activations. A second tap on the same
// target before the window elapses fires onDouble once and clears the
// pending state; a tap on another target re-arms the window for it.
type DoubleTap struct {
	mu       sync.Mutex
	window   time.Duration
	clock    Clock
	onDouble func(target string)

	last    string
	pending bool
	timer   Timer
	gen     uint64
	closed  bool
}

// NewDoubleTap creates a detector. onDouble runs on the caller's goroutine
// of the completing Tap.
func NewDoubleTap(window time.Duration, clock Clock, onDouble func(target string)) *DoubleTap {
	if window <= 0 {
		window = DefaultDoubleTapWindow
	}
	return &DoubleTap{window: window, clock: clock, onDouble: onDouble}
}

// Tap records an activation of target. The empty target stands for the
// background.
func (d *DoubleTap) Tap(target string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if d.pending && d.last == target {
		d.pending = false
		d.last = ""
		d.gen++
		d.mu.Unlock()
		if d.onDouble != nil {
			d.onDouble(target)
		}
		return
	}

	d.gen++
	gen := d.gen
	d.last = target
	d.pending = true
	d.timer = d.clock.AfterFunc(d.window, func() { d.expire(gen) })
	d.mu.Unlock()
}

func (d *DoubleTap) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A tap after this timer was armed owns the state now.
	if gen != d.gen {
		return
	}
	d.pending = false
	d.last = ""
	d.timer = nil
}

// Close cancels the pending window. Further taps are ignored.
func (d *DoubleTap) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
