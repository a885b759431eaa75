package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/stepflow/stepflow/pkg/errors"
)

func TestLocalExecutor_ExecuteTask(t *testing.T) {
	e := NewLocalExecutor()

	out, err := e.ExecuteTask(context.Background(), Task{
		StepID: "double",
		Fn:     func(ctx context.Context, v any) (any, error) { return v.(int) * 2, nil },
		Input:  21,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestLocalExecutor_WrapsTaskError(t *testing.T) {
	e := NewLocalExecutor()

	_, err := e.ExecuteTask(context.Background(), Task{
		StepID: "bad",
		Fn:     func(ctx context.Context, v any) (any, error) { return nil, fmt.Errorf("nope") },
	})
	require.Error(t, err)
	assert.True(t, errors.IsExecution(err))
	assert.Contains(t, err.Error(), "task bad failed")
}

func TestLocalExecutor_NilFunction(t *testing.T) {
	_, err := NewLocalExecutor().ExecuteTask(context.Background(), Task{StepID: "empty"})
	require.Error(t, err)
	assert.True(t, errors.IsExecution(err))
}

func TestLocalExecutor_ConcurrencyLimit(t *testing.T) {
	e := NewLocalExecutor(WithConcurrencyLimit(2))

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	fn := func(ctx context.Context, v any) (any, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return nil, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ExecuteTask(context.Background(), Task{StepID: "probe", Fn: fn})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 2, "semaphore must bound concurrent tasks")
}

func TestLocalExecutor_CancelledContext(t *testing.T) {
	// Saturate the semaphore so the next task blocks on acquisition.
	e := NewLocalExecutor(WithConcurrencyLimit(1))
	release := make(chan struct{})

	go e.ExecuteTask(context.Background(), Task{
		StepID: "holder",
		Fn: func(ctx context.Context, v any) (any, error) {
			<-release
			return nil, nil
		},
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExecuteTask(ctx, Task{
		StepID: "waiter",
		Fn:     func(ctx context.Context, v any) (any, error) { return nil, nil },
	})
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestRateLimitedExecutor(t *testing.T) {
	var count atomic.Int32
	inner := NewLocalExecutor()
	e := NewRateLimitedExecutor(inner, rate.Every(30*time.Millisecond), 1)

	fn := func(ctx context.Context, v any) (any, error) {
		count.Add(1)
		return nil, nil
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := e.ExecuteTask(context.Background(), Task{StepID: "limited", Fn: fn})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), count.Load())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"second and third tasks must wait for tokens")
}

func TestRateLimitedExecutor_ContextCancelled(t *testing.T) {
	e := NewRateLimitedExecutor(NewLocalExecutor(), rate.Every(time.Hour), 1)

	// First call consumes the burst token.
	_, err := e.ExecuteTask(context.Background(), Task{
		StepID: "first",
		Fn:     func(ctx context.Context, v any) (any, error) { return nil, nil },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.ExecuteTask(ctx, Task{
		StepID: "starved",
		Fn:     func(ctx context.Context, v any) (any, error) { return nil, nil },
	})
	assert.Error(t, err)
}

func TestLoggingExecutor_Delegates(t *testing.T) {
	e := NewLoggingExecutor(NewLocalExecutor(), nil)

	out, err := e.ExecuteTask(context.Background(), Task{
		StepID: "ok",
		Fn:     func(ctx context.Context, v any) (any, error) { return "done", nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	_, err = e.ExecuteTask(context.Background(), Task{
		StepID: "bad",
		Fn:     func(ctx context.Context, v any) (any, error) { return nil, fmt.Errorf("x") },
	})
	assert.Error(t, err)
}
