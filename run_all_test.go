package jobpool_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/jobpool"
)

func TestRunAll(t *testing.T) {
	errOdd := errors.New("odd")

	tests := []struct {
		name      string
		size      uint
		jobs      int
		failOdd   bool
		wantRuns  int64
		wantFails int
	}{
		{name: "all succeed", size: 4, jobs: 40, wantRuns: 40},
		{name: "single worker", size: 1, jobs: 10, wantRuns: 10},
		{name: "more workers than jobs", size: 8, jobs: 3, wantRuns: 3},
		{name: "failures are joined", size: 3, jobs: 10, failOdd: true, wantRuns: 10, wantFails: 5},
		{name: "no jobs", size: 2, jobs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs atomic.Int64
			jobs := make([]func() error, tt.jobs)
			for i := range jobs {
				i := i
				jobs[i] = func() error {
					runs.Add(1)
					if tt.failOdd && i%2 == 1 {
						return fmt.Errorf("job %d: %w", i, errOdd)
					}
					return nil
				}
			}

			err := jobpool.RunAll(context.Background(), tt.size, jobs, quietLogger())
			require.Equal(t, tt.wantRuns, runs.Load())

			if tt.wantFails == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errOdd)
			require.ErrorIs(t, err, jobpool.ErrJobFailed)
			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok)
			require.Len(t, joined.Unwrap(), tt.wantFails)
		})
	}
}

func TestRunAll_PanicIsReported(t *testing.T) {
	jobs := []func() error{
		func() error { return nil },
		func() error { panic("bad job") },
		nil,
	}
	err := jobpool.RunAll(context.Background(), 2, jobs, quietLogger())
	require.ErrorIs(t, err, jobpool.ErrJobPanicked)

	seq, ok := jobpool.ExtractJobSeq(err)
	require.True(t, ok)
	require.Equal(t, uint64(2), seq)
}

func TestRunAll_InvalidSize(t *testing.T) {
	err := jobpool.RunAll(context.Background(), 0, []func() error{func() error { return nil }})
	require.ErrorIs(t, err, jobpool.ErrInvalidConfig)
}

func TestRunAll_CancelledContextStopsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int64
	jobs := make([]func() error, 20)
	for i := range jobs {
		jobs[i] = func() error { runs.Add(1); return nil }
	}

	cancel()
	err := jobpool.RunAll(ctx, 2, jobs, quietLogger())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, runs.Load())
}

func TestRunAll_BoundedQueueCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gate := make(chan struct{})
	started := make(chan struct{})

	var runs atomic.Int64
	jobs := []func() error{
		func() error { close(started); <-gate; runs.Add(1); return nil },
		func() error { runs.Add(1); return nil },
		func() error { runs.Add(1); return nil },
		func() error { runs.Add(1); return nil },
	}

	go func() {
		<-started
		cancel()
		close(gate)
	}()

	err := jobpool.RunAll(ctx, 1, jobs, quietLogger(), jobpool.WithQueueCapacity(1))
	require.ErrorIs(t, err, context.Canceled)
	// the last job is never submitted: ctx is checked before it
	require.GreaterOrEqual(t, runs.Load(), int64(1))
	require.LessOrEqual(t, runs.Load(), int64(3))
}

func TestForEach(t *testing.T) {
	items := []string{"alpha", "beta", "gamma", "delta"}

	var mu sync.Mutex
	var got []string
	err := jobpool.ForEach(context.Background(), 2, items, func(s string) error {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
		return nil
	}, quietLogger())
	require.NoError(t, err)

	sort.Strings(got)
	require.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, got)
}

func TestForEach_ErrorsAreJoined(t *testing.T) {
	errNegative := errors.New("negative")
	err := jobpool.ForEach(context.Background(), 3, []int{1, -2, 3, -4}, func(n int) error {
		if n < 0 {
			return fmt.Errorf("%d: %w", n, errNegative)
		}
		return nil
	}, quietLogger())

	require.ErrorIs(t, err, errNegative)
	require.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 2)
}

func TestForEach_Empty(t *testing.T) {
	called := false
	err := jobpool.ForEach(context.Background(), 1, []int(nil), func(int) error { called = true; return nil })
	require.NoError(t, err)
	require.False(t, called)
}
