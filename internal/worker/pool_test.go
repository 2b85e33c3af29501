package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fjacquet/kakeibo/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p := NewPool(0, 0, logging.NewMockLogger())
	assert.Equal(t, runtime.NumCPU(), p.Size())

	p = NewPool(3, time.Second, nil)
	assert.Equal(t, 3, p.Size())
}

func TestSubmit_ReturnsValue(t *testing.T) {
	p := NewPool(2, 0, logging.NewMockLogger())
	defer p.Close()

	f := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmit_PropagatesError(t *testing.T) {
	p := NewPool(2, 0, logging.NewMockLogger())
	defer p.Close()

	boom := errors.New("boom")
	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	p := NewPool(1, 0, logging.NewMockLogger())
	defer p.Close()

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		panic("bad")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked")
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := NewPool(size, 0, logging.NewMockLogger())
	defer p.Close()

	var running, peak int32
	futures := make([]*Future[struct{}], 0, 20)
	for i := 0; i < 20; i++ {
		futures = append(futures, Submit(context.Background(), p, func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}))
	}

	for _, f := range futures {
		_, err := f.Await(context.Background())
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestAwait_CallerCancellation(t *testing.T) {
	p := NewPool(1, 0, logging.NewMockLogger())
	defer p.Close()

	release := make(chan struct{})
	f := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSubmit_TaskContextCancelled(t *testing.T) {
	p := NewPool(1, 0, logging.NewMockLogger())
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	f := Submit(ctx, p, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	cancel()
	<-f.Done()
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmit_OperationTimeout(t *testing.T) {
	p := NewPool(1, 10*time.Millisecond, logging.NewMockLogger())
	defer p.Close()

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_RejectsNewWork(t *testing.T) {
	p := NewPool(1, 0, logging.NewMockLogger())
	p.Close()
	p.Close()

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestClose_ConcurrentSubmitNeverOutlivesClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		p := NewPool(4, 0, logging.NewMockLogger())
		var (
			ran     atomic.Int64
			wg      sync.WaitGroup
			mu      sync.Mutex
			futures []*Future[int]
		)
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 25; j++ {
					f := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
						ran.Add(1)
						return 1, nil
					})
					mu.Lock()
					futures = append(futures, f)
					mu.Unlock()
				}
			}()
		}

		close(start)
		p.Close()
		ranAtClose := ran.Load()
		wg.Wait()

		accepted := 0
		for _, f := range futures {
			v, err := f.Await(context.Background())
			if err != nil {
				require.ErrorIs(t, err, ErrPoolClosed)
				continue
			}
			assert.Equal(t, 1, v)
			accepted++
		}
		assert.Equal(t, int64(accepted), ranAtClose, "round %d: accepted work ran after Close returned", round)
		assert.Equal(t, ranAtClose, ran.Load())
	}
}
