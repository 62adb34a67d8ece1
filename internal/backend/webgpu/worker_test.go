package webgpu

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerEnqueueSyncReturnsResult(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	result, err := EnqueueSync(w, func() int { return 42 })
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestWorkerFIFOOrdering(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	var order []int
	done := make(chan struct{})
	for i := range 5 {
		i := i
		if i == 4 {
			require.NoError(t, w.EnqueueAsync(func() {
				order = append(order, i)
				close(done)
			}))
			continue
		}
		require.NoError(t, w.EnqueueAsync(func() {
			order = append(order, i)
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tasks to drain")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerStopDrainsPendingThenRejectsNewWork(t *testing.T) {
	w := NewWorker()

	var ran atomic.Bool
	require.NoError(t, w.EnqueueAsync(func() { ran.Store(true) }))
	w.Stop()

	assert.True(t, ran.Load())
	assert.False(t, w.Running())

	err := w.EnqueueAsync(func() {})
	assert.ErrorIs(t, err, ErrWorkerStopped)

	_, err = EnqueueSync(w, func() int { return 0 })
	assert.ErrorIs(t, err, ErrWorkerStopped)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewWorker()
	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerSharedMuSerializesWritesAndDispatches(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	var counter int
	var wg atomic.Int32
	wg.Add(2)

	critical := func() {
		w.SharedMu.Lock()
		defer w.SharedMu.Unlock()
		before := counter
		counter = before + 1
		wg.Add(-1)
	}

	go critical()
	go critical()

	deadline := time.After(time.Second)
	for wg.Load() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for critical sections")
		default:
		}
	}
	assert.Equal(t, 2, counter)
}
