package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTask records lifecycle calls in execution order
type fakeTask struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
}

func (t *fakeTask) Start(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, "start")
	return t.startErr
}

func (t *fakeTask) Stop(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, "stop")
	return t.stopErr
}

func (t *fakeTask) log() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

type taskFunc func()

func (f taskFunc) Start(context.Context) error { f(); return nil }
func (f taskFunc) Stop(context.Context) error  { f(); return nil }

func TestWorker_StartStopRoundTrip(t *testing.T) {
	w := New()
	task := &fakeTask{}

	startHandle, err := w.StartTask(task)
	require.NoError(t, err)
	require.NoError(t, startHandle.Err())

	stopHandle, err := w.StopTask(task)
	require.NoError(t, err)
	require.NoError(t, stopHandle.Err())

	w.StopLoop()
	assert.Equal(t, []string{"start", "stop"}, task.log())
}

func TestWorker_PropagatesTaskError(t *testing.T) {
	w := New()
	defer w.StopLoop()

	task := &fakeTask{startErr: errors.New("dial failed")}
	h, err := w.StartTask(task)
	require.NoError(t, err)
	assert.EqualError(t, h.Err(), "dial failed")

	select {
	case <-h.Done():
	default:
		t.Fatal("handle not done after Err returned")
	}
}

func TestWorker_RejectsAfterStop(t *testing.T) {
	w := New()
	w.StopLoop()

	_, err := w.StartTask(&fakeTask{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker loop stopped")

	w.StopLoop() // second stop is a no-op
}

func TestWorker_WaitHonorsContext(t *testing.T) {
	w := New()
	h, err := w.StartTask(taskFunc(func() { time.Sleep(500 * time.Millisecond) }))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)

	// the call still completes on the loop
	require.NoError(t, h.Err())
	w.StopLoop()
}

func TestWorker_SerializesCalls(t *testing.T) {
	w := New()
	defer w.StopLoop()

	var active atomic.Int32
	var overlapped atomic.Bool
	work := func() {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := w.StartTask(taskFunc(work))
			if err != nil {
				errCh <- err
				return
			}
			errCh <- h.Err()
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	assert.False(t, overlapped.Load())
}
