package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleCron(t *testing.T) {
	t.Run("returns job id for valid cron", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleCron("rebuild", "0 */4 * * *", func(context.Context) {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects invalid cron", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleCron("rebuild", "this is not a cron", func(context.Context) {})
		require.Error(t, err)
	})
}

func TestScheduleEvery(t *testing.T) {
	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("rebuild", 0, func(context.Context) {})
		require.Error(t, err)
	})

	t.Run("runs repeatedly once started", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)

		var runs atomic.Int32
		_, err = s.ScheduleEvery("rebuild", 50*time.Millisecond, func(context.Context) { runs.Add(1) })
		require.NoError(t, err)
		s.Start()
		require.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
		require.NoError(t, s.Stop())
	})
}

func TestStopCancelsTaskContext(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	started := make(chan struct{})
	canceled := make(chan struct{})
	_, err = s.ScheduleEvery("slow", 20*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		close(canceled)
	})
	require.NoError(t, err)
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not start")
	}
	require.NoError(t, s.Stop())
	select {
	case <-canceled:
	case <-time.After(3 * time.Second):
		t.Fatal("task context not canceled")
	}
}

func TestJobsNeverRunConcurrently(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		running int
		peak    int
		runs    atomic.Int32
	)
	task := func(ctx context.Context) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		select {
		case <-time.After(150 * time.Millisecond):
		case <-ctx.Done():
		}
		mu.Lock()
		running--
		mu.Unlock()
		runs.Add(1)
	}
	_, err = s.ScheduleEvery("rebuild", 20*time.Millisecond, task)
	require.NoError(t, err)
	_, err = s.ScheduleEvery("rebuild-other", 20*time.Millisecond, task)
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, peak)
}
