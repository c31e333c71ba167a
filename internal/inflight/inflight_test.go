package inflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSequencer_onlyLatestTagIsCurrent(t *testing.T) {
	var s Sequencer

	first := s.Next()
	assert.True(t, s.IsLatest(first))

	second := s.Next()
	assert.Greater(t, second, first)
	assert.False(t, s.IsLatest(first))
	assert.True(t, s.IsLatest(second))
}

func TestSequencer_concurrentTagsAreUnique(t *testing.T) {
	var s Sequencer
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag := s.Next()
			mu.Lock()
			seen[tag] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	assert.True(t, s.IsLatest(50))
}

func TestDebouncer_collapsesBurstIntoLastCall(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var got atomic.Value
	for _, q := range []string{"l", "la", "lap", "lapt", "laptop"} {
		q := q
		d.Trigger(func(ctx context.Context) {
			calls.Add(1)
			got.Store(q)
		})
	}
	d.Flush()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "laptop", got.Load())
}

func TestDebouncer_newTriggerCancelsRunningCall(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	defer d.Stop()

	started := make(chan struct{})
	canceled := make(chan struct{})
	d.Trigger(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(canceled)
	})
	<-started

	d.Trigger(func(ctx context.Context) {})

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("running call was not canceled")
	}
	d.Flush()
}

func TestDebouncer_stopDropsPendingCall(t *testing.T) {
	d := NewDebouncer(time.Hour)

	var called atomic.Bool
	d.Trigger(func(ctx context.Context) { called.Store(true) })
	d.Stop()

	d.Trigger(func(ctx context.Context) { called.Store(true) })
	d.Flush()

	assert.False(t, called.Load())
}
