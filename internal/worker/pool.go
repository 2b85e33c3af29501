// Package worker runs units of work on a bounded pool of goroutines and hands
// results back through typed futures.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"fjacquet/kakeibo/internal/logging"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool bounds the number of tasks running at once.
type Pool struct {
	sem     *semaphore.Weighted
	size    int
	timeout time.Duration
	logger  logging.Logger

	mu     sync.Mutex // guards closed and wg.Add against Close
	wg     sync.WaitGroup
	closed bool
}

// NewPool creates a pool running at most size tasks concurrently. A size
// below 1 uses the number of CPUs. A positive timeout bounds every task.
func NewPool(size int, timeout time.Duration, logger logging.Logger) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		timeout: timeout,
		logger:  logging.OrDefault(logger),
	}
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int {
	return p.size
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx is done. Only the caller waits;
// the pool keeps serving other tasks.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Submit schedules fn on the pool. The task context is derived from ctx, so
// cancelling the caller also cancels work that has not committed yet.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		f.resolve(zero, ErrPoolClosed)
		return f
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.resolve(zero, err)
			return
		}
		defer p.sem.Release(1)

		taskCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		value, err := run(taskCtx, fn)
		if err != nil {
			p.logger.WithError(err).Debug("Task finished with error")
		}
		f.resolve(value, err)
	}()

	return f
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	return Submit(ctx, p, fn).Await(ctx)
}

func run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
