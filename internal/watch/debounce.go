// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// debouncer collects paths and calls fn once the stream has been quiet for
// delay. A burst that arrives while fn is still running is rescheduled, so
// fn never runs concurrently with itself and no change is dropped.
type debouncer struct {
	delay  time.Duration
	fn     func(changed []string)
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running atomic.Bool
	stopped bool
}

func newDebouncer(delay time.Duration, fn func([]string), logger *slog.Logger) *debouncer {
	return &debouncer{
		delay:   delay,
		fn:      fn,
		logger:  logger,
		pending: make(map[string]struct{}),
	}
}

// add records path and restarts the quiet period.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *debouncer) fire() {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Debug("rebuild still running, rescheduling")
		d.mu.Lock()
		if !d.stopped && d.timer != nil {
			d.timer.Reset(d.delay)
		}
		d.mu.Unlock()
		return
	}
	defer d.running.Store(false)

	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(d.pending))
	for p := range d.pending {
		changed = append(changed, p)
	}
	clear(d.pending)
	d.mu.Unlock()

	slices.Sort(changed)
	d.fn(changed)
}

// stop cancels any scheduled call. A call already running completes.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
