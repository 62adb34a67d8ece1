package webgpu

import (
	"sync"
	"sync/atomic"
)

// Worker is the single dedicated goroutine that owns every call into the
// driver: buffer creation, queue submit, map, and release of WebGPU
// objects. It generalizes the per-worker queue shape of a multi-worker
// pool (chan func(), a done channel, Submit/ExecuteAsync) down to exactly
// one worker with plain FIFO delivery — no work-stealing, since there is
// nothing to steal from.
//
// SharedMu serializes writes against dispatches even among tasks running
// on this same worker, so a write never interleaves with a concurrent
// dispatch reading the same buffer.
type Worker struct {
	queue   chan task
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	SharedMu sync.Mutex
}

type task struct {
	fn   func()
	done chan struct{}
}

const workerQueueSize = 64

// NewWorker starts the worker goroutine and returns immediately.
func NewWorker() *Worker {
	w := &Worker{
		queue: make(chan task, workerQueueSize),
		done:  make(chan struct{}),
	}
	w.running.Store(true)
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case t := <-w.queue:
			w.exec(t)
		case <-w.done:
			w.drain()
			return
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case t := <-w.queue:
			w.exec(t)
		default:
			return
		}
	}
}

func (w *Worker) exec(t task) {
	t.fn()
	if t.done != nil {
		close(t.done)
	}
}

// EnqueueAsync queues fn to run on the worker and returns immediately
// without waiting for it to run (fire-and-forget). Returns ErrWorkerStopped
// if the worker has already been stopped.
func (w *Worker) EnqueueAsync(fn func()) error {
	if !w.running.Load() {
		return newErr("enqueue_async", KindWorkerStopped, nil)
	}
	select {
	case w.queue <- task{fn: fn}:
		return nil
	case <-w.done:
		return newErr("enqueue_async", KindWorkerStopped, nil)
	}
}

// EnqueueSync queues fn on the worker and blocks until it has run,
// returning fn's result. Returns ErrWorkerStopped if the worker has
// already been stopped.
func EnqueueSync[T any](w *Worker, fn func() T) (T, error) {
	var zero T
	if !w.running.Load() {
		return zero, newErr("enqueue_sync", KindWorkerStopped, nil)
	}

	result := make(chan T, 1)
	done := make(chan struct{})
	t := task{
		fn: func() {
			result <- fn()
		},
		done: done,
	}

	select {
	case w.queue <- t:
	case <-w.done:
		return zero, newErr("enqueue_sync", KindWorkerStopped, nil)
	}

	<-done
	return <-result, nil
}

// Stop drains the queue, lets pending tasks complete, and stops the
// worker goroutine. Enqueues after Stop fail with ErrWorkerStopped. Stop
// is safe to call more than once.
func (w *Worker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.done)
	w.wg.Wait()
}

// Running reports whether the worker is still accepting enqueues.
func (w *Worker) Running() bool {
	return w.running.Load()
}
