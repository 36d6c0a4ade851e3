package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRunJob_ConcurrencyBound(t *testing.T) {
	const (
		n = 50
		k = 4
	)
	pool := New(k)

	var running, peak atomic.Int64
	tasks := make([]int, n)
	for i := range tasks {
		tasks[i] = i
	}

	results, err := RunJob(context.Background(), pool, tasks, func(_ context.Context, i int) (int, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Duration(i%3) * time.Millisecond)
		running.Add(-1)
		return i * 2, nil
	})
	require.NoError(t, err)

	want := make([]int, n)
	for i := range want {
		want[i] = i * 2
	}
	assert.ElementsMatch(t, want, results)
	assert.LessOrEqual(t, peak.Load(), int64(k))
	assert.LessOrEqual(t, pool.Stats().PeakOutstanding, k)
	assert.Equal(t, 0, pool.Stats().Outstanding)
	assert.Equal(t, 0, pool.Stats().QueuedJobs)
}

func TestRunJob_CompletionOrder(t *testing.T) {
	pool := New(2)
	tasks := []time.Duration{30 * time.Millisecond, 0}

	results, err := RunJob(context.Background(), pool, tasks, func(_ context.Context, d time.Duration) (time.Duration, error) {
		time.Sleep(d)
		return d, nil
	})
	require.NoError(t, err)
	// The fast task finishes first and is aggregated first.
	assert.Equal(t, []time.Duration{0, 30 * time.Millisecond}, results)
}

func TestRunJob_Empty(t *testing.T) {
	results, err := RunJob(context.Background(), New(0), []int(nil), func(context.Context, int) (int, error) {
		t.Fatal("worker must not run")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestNew_Default(t *testing.T) {
	assert.Equal(t, DefaultMaxOutstanding, New(0).MaxOutstanding())
	assert.Equal(t, DefaultMaxOutstanding, New(-3).MaxOutstanding())
	assert.Equal(t, 7, New(7).MaxOutstanding())
}

func TestRunJob_FailureIsolated(t *testing.T) {
	pool := New(1)
	boom := errors.New("boom")

	var (
		wg        sync.WaitGroup
		errA      error
		resultsB  []int
		errB      error
		ranAfterA atomic.Int64
	)
	release := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = RunJob(context.Background(), pool, []int{0, 1, 2, 3}, func(_ context.Context, i int) (int, error) {
			if i == 0 {
				<-release
				return 0, boom
			}
			ranAfterA.Add(1)
			return i, nil
		})
	}()

	// Make sure job A holds the only slot before B is queued.
	require.Eventually(t, func() bool { return pool.Stats().Outstanding == 1 }, time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		resultsB, errB = RunJob(context.Background(), pool, []int{10, 20}, func(_ context.Context, i int) (int, error) {
			return i, nil
		})
	}()
	require.Eventually(t, func() bool { return pool.Stats().QueuedJobs == 2 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	require.ErrorIs(t, errA, boom)
	assert.Same(t, boom, errA, "task error must be returned verbatim")
	assert.Equal(t, int64(0), ranAfterA.Load(), "unscheduled tasks of a failed job are discarded")

	require.NoError(t, errB)
	assert.ElementsMatch(t, []int{10, 20}, resultsB)
}

func TestRunJob_EarliestJobFirst(t *testing.T) {
	pool := New(1)
	release := make(chan struct{})

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = RunJob(context.Background(), pool, []string{"a1", "a2"}, func(_ context.Context, s string) (string, error) {
			if s == "a1" {
				<-release
			}
			record(s)
			return s, nil
		})
	}()
	require.Eventually(t, func() bool { return pool.Stats().Outstanding == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = RunJob(context.Background(), pool, []string{"b1"}, func(_ context.Context, s string) (string, error) {
			record(s)
			return s, nil
		})
	}()
	require.Eventually(t, func() bool { return pool.Stats().QueuedJobs == 2 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	assert.Equal(t, []string{"a1", "a2", "b1"}, order)
}

func TestRunJob_RunningTasksNotCancelled(t *testing.T) {
	pool := New(2)
	boom := errors.New("boom")
	slowDone := make(chan struct{})

	_, err := RunJob(context.Background(), pool, []int{0, 1}, func(ctx context.Context, i int) (int, error) {
		if i == 0 {
			return 0, boom
		}
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, ctx.Err())
		close(slowDone)
		return 1, nil
	})
	require.ErrorIs(t, err, boom)

	select {
	case <-slowDone:
	case <-time.After(time.Second):
		t.Fatal("running task did not complete")
	}
	require.Eventually(t, func() bool { return pool.Stats().Outstanding == 0 }, time.Second, time.Millisecond)
}

func TestRunJob_ContextCancelled(t *testing.T) {
	pool := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := RunJob(ctx, pool, []int{0, 1, 2}, func(_ context.Context, i int) (int, error) {
			if i == 0 {
				close(started)
				<-release
			}
			return i, nil
		})
		errc <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	close(release)

	_, err := RunJob(ctx, pool, []int{1}, func(context.Context, int) (int, error) { return 1, nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunJobIgnoreNull(t *testing.T) {
	type item struct{ v int }

	ptrs, err := Run(context.Background(), 3, []int{0, 1, 2, 3}, func(_ context.Context, i int) (*item, error) {
		if i%2 == 0 {
			return nil, nil
		}
		return &item{v: i}, nil
	})
	require.NoError(t, err)
	assert.Len(t, ptrs, 4, "RunJob keeps nil results")

	ptrs, err = RunIgnoreNull(context.Background(), 3, []int{0, 1, 2, 3}, func(_ context.Context, i int) (*item, error) {
		if i%2 == 0 {
			return nil, nil
		}
		return &item{v: i}, nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []*item{{v: 1}, {v: 3}}, ptrs)

	strs, err := RunJobIgnoreNull(context.Background(), New(2), []string{"", "a", "", "b"}, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, strs)

	slices, err := RunJobIgnoreNull(context.Background(), New(2), []int{0, 1, 2}, func(_ context.Context, n int) ([]int, error) {
		return make([]int, n), nil
	})
	require.NoError(t, err)
	assert.Len(t, slices, 2)
}

func TestIsEmpty(t *testing.T) {
	var nilMap map[string]int
	var nilIface error
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"nil iface", nilIface, true},
		{"nil map", nilMap, true},
		{"empty map", map[string]int{}, true},
		{"map", map[string]int{"a": 1}, false},
		{"empty string", "", true},
		{"string", "x", false},
		{"zero int", 0, false},
		{"false", false, false},
		{"struct", struct{}{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmpty(tt.v))
		})
	}
}

func TestWithRateLimit(t *testing.T) {
	pool := New(4, WithRateLimit(rate.Limit(1000), 1))
	results, err := RunJob(context.Background(), pool, []int{1, 2, 3}, func(_ context.Context, i int) (int, error) {
		return i, nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, results)
}
