// Package task runs blocking work on a bounded pool and hands back typed
// futures.
package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is the pending result of a submitted function.
type Task[T any] struct {
	done   chan struct{}
	result T
	err    error
	cancel context.CancelFunc
}

// Done is closed once the function has returned.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done. Giving up on ctx does
// not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a finished task. It must only be called
// after Done is closed.
func (t *Task[T]) Result() (T, error) {
	return t.result, t.err
}

// Cancel cancels the context passed to the task function. It is safe to call
// more than once and after completion.
func (t *Task[T]) Cancel() { t.cancel() }

// Pool bounds how many submitted functions run at once.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool running at most size functions concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit schedules fn on p. Every submitted fn runs exactly once; one that
// is cancelled while queued still runs and sees a cancelled context.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(t.done)
		defer cancel()

		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		t.result, t.err = fn(ctx)
	}()
	return t
}

// Wait blocks until every submitted function has returned.
func (p *Pool) Wait() { p.wg.Wait() }
