// Package inflight collapses bursts of input into single requests and drops
// responses that arrive after a newer request was issued.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Sequencer hands out increasing request tags. Only the most recent tag is
// current; responses carrying an older tag are stale.
type Sequencer struct {
	last atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

func (s *Sequencer) IsLatest(tag uint64) bool {
	return s.last.Load() == tag
}

// Debouncer runs the most recently submitted function once the input has
// been quiet for the configured delay. A newer Trigger cancels the context
// of a run still in progress.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Trigger(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	if d.cancel != nil {
		d.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		defer cancel()
		fn(ctx)
	})
}

// Flush waits for the pending run, if any, to finish.
func (d *Debouncer) Flush() {
	d.wg.Wait()
}

// Stop drops any pending run, cancels a running one, and waits for it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()
}
