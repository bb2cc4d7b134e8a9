package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is anything the worker can run, typically an assembled observer
type Task interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Handle resolves when a submitted lifecycle call finishes on the loop
type Handle struct {
	done chan struct{}
	err  error
}

// Done is closed when the call has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the call's result, blocking until it completes
func (h *Handle) Err() error {
	<-h.done
	return h.err
}

// Wait blocks until the call finishes or ctx expires
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type call struct {
	fn     func(ctx context.Context) error
	handle *Handle
}

// Worker runs task lifecycle calls on one dedicated goroutine, keeping
// the core's start/stop work off the caller's thread. Embedders with
// their own main loop submit from wherever and wait on the handle.
type Worker struct {
	calls chan *call
	ready chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
}

// New spawns the worker loop. Submissions block until the loop has
// signalled readiness.
func New() *Worker {
	w := &Worker{
		calls: make(chan *call),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.done)
	close(w.ready)
	for c := range w.calls {
		c.handle.err = c.fn(context.Background())
		close(c.handle.done)
	}
	log.Debug().Msg("worker loop exited")
}

// StartTask submits task.Start to the loop
func (w *Worker) StartTask(t Task) (*Handle, error) {
	return w.submit(t.Start)
}

// StopTask submits task.Stop to the loop
func (w *Worker) StopTask(t Task) (*Handle, error) {
	return w.submit(t.Stop)
}

func (w *Worker) submit(fn func(ctx context.Context) error) (*Handle, error) {
	<-w.ready

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil, errors.New("worker loop stopped")
	}

	h := &Handle{done: make(chan struct{})}
	w.calls <- &call{fn: fn, handle: h}
	return h, nil
}

// StopLoop stops the worker once queued calls have drained and waits
// for the loop to exit. Safe only after all submitted tasks have been
// stopped; later submissions fail.
func (w *Worker) StopLoop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.calls)
	}
	w.mu.Unlock()
	<-w.done
}
