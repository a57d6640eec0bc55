// Package task provides a cancellable future used for every asynchronous
// record operation.
package task

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// Task is the handle of one operation running in its own goroutine.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	settled   bool
	cancelled bool
	val       T
	err       error
}

// Run starts fn in a new goroutine. The context passed to fn is cancelled by
// Cancel, so transport calls inside it abort.
func Run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()
		val, err := fn(ctx)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		t.settle(val, err)
	}()

	return t
}

func (t *Task[T]) settle(val T, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return
	}
	t.settled = true
	if t.cancelled {
		err = common.Wrap(common.ErrCancelled, context.Canceled)
	} else if isContextErr(err) {
		err = common.Wrap(common.ErrCancelled, err)
	}
	if err == nil {
		t.val = val
	}
	t.err = err
	close(t.done)
}

// Cancel requests cancellation. If the task has not completed yet it will
// finish with ErrCancelled regardless of what fn returns.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	if !t.settled {
		t.cancelled = true
	}
	t.mu.Unlock()
	t.cancel()
}

// Done is closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task settles or ctx ends.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, common.Wrap(common.ErrCancelled, ctx.Err())
	}
}

func isContextErr(err error) bool {
	if err == nil || errors.Is(err, common.ErrCancelled) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
