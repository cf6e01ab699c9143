package interact

import (
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of triggers, wait after the
// final one.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	clock   Clock
	timer   Timer
	gen     uint64
	stopped bool
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer(wait time.Duration, clock Clock) *Debouncer {
	return &Debouncer{wait: wait, clock: clock}
}

// Trigger (re)arms the debouncer with f, replacing any pending call.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() {
		d.mu.Lock()
		if gen != d.gen || d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Stop cancels any pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
