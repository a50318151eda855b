package fetchcache

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

func TestSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New("test_single", func(ctx context.Context, k int) (*string, error) {
		calls.Add(1)
		<-release
		v := "map-50"
		return &v, nil
	})

	const callers = 32
	results := make([]*string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), 50)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	require.Eventually(t, func() bool { return c.Contains(50) }, time.Second, time.Millisecond)
	assert.False(t, c.IsComplete(50))
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.True(t, c.IsComplete(50))

	// 已完成的条目直接返回，不再调用取数函数
	_, err := c.Get(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	var calls atomic.Int32
	c := New("test_keys", func(ctx context.Context, k int) (int, error) {
		calls.Add(1)
		return k * 2, nil
	})
	for k := 1; k <= 5; k++ {
		v, err := c.Get(context.Background(), k)
		require.NoError(t, err)
		assert.Equal(t, k*2, v)
	}
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 5, c.Len())
}

func TestFailureReplayAndRemove(t *testing.T) {
	boom := errors.New("upstream unavailable")
	var calls atomic.Int32
	release := make(chan struct{})
	c := New("test_fail", func(ctx context.Context, k string) (int, error) {
		n := calls.Add(1)
		<-release
		if n == 1 {
			return 0, boom
		}
		return 7, nil
	})

	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), "k")
		}(i)
	}
	require.Eventually(t, func() bool { return c.Contains("k") }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}

	// 失败结果常驻
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())

	_, ok := c.Remove("k")
	assert.False(t, ok)
	assert.False(t, c.Contains("k"))

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), calls.Load())

	last, ok := c.Remove("k")
	assert.True(t, ok)
	assert.Equal(t, 7, last)

	_, ok = c.Remove("missing")
	assert.False(t, ok)
}

func TestCallerCancellationDoesNotPoisonEntry(t *testing.T) {
	release := make(chan struct{})
	c := New("test_cancel", func(ctx context.Context, k int) (string, error) {
		select {
		case <-release:
			return "ok", ctx.Err()
		case <-time.After(5 * time.Second):
			return "", errors.New("timeout")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return c.Contains(1) }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	v, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestProducerPanicBecomesError(t *testing.T) {
	c := New("test_panic", func(ctx context.Context, k int) (int, error) {
		panic("bad geometry")
	})
	_, err := c.Get(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad geometry")
	assert.True(t, c.IsComplete(3))
}
