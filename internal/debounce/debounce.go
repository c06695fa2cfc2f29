// Package debounce coalesces bursts of triggers into a single callback after
// a quiet period.
package debounce

import (
	"sync"
	"time"
)

// afterFunc is swapped out in tests to control timer firing.
var afterFunc = time.AfterFunc

type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
	seq   uint64
}

func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)arms the timer. The callback runs once the full delay passes
// without another Trigger.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = afterFunc(d.delay, func() {
		d.mu.Lock()
		stale := seq != d.seq
		d.mu.Unlock()
		// A stopped timer may already have fired its callback; only the
		// latest scheduled one is allowed to run.
		if !stale {
			d.fn()
		}
	})
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Ensure initializes *d with the given delay and handler when unset and
// returns the stored debouncer.
func Ensure(d **Debouncer, delay time.Duration, fn func()) *Debouncer {
	if *d == nil {
		*d = New(delay, fn)
	}
	return *d
}
