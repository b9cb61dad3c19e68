package livesync

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochStream(t *testing.T) {
	var s EpochStream
	assert.Equal(t, uint64(0), s.Current())

	var prev uint64
	epochs := make([]uint64, 0, 5)
	for i := 0; i < 5; i++ {
		e := s.Begin()
		assert.Greater(t, e, prev)
		prev = e
		epochs = append(epochs, e)
	}
	for _, e := range epochs[:4] {
		assert.False(t, s.IsCurrent(e))
	}
	assert.True(t, s.IsCurrent(epochs[4]))
	assert.Equal(t, epochs[4], s.Current())
}

func TestEpochStream_ConcurrentBeginIsUnique(t *testing.T) {
	var s EpochStream
	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := s.Begin()
			mu.Lock()
			seen[e] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.Equal(t, uint64(50), s.Current())
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)

	var mu sync.Mutex
	var got []int
	for i := 1; i <= 5; i++ {
		arg := i
		d.Schedule(func() {
			mu.Lock()
			got = append(got, arg)
			mu.Unlock()
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, got)
	assert.False(t, d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var ran atomic.Bool
	d.Schedule(func() { ran.Store(true) })
	assert.True(t, d.Pending())
	assert.True(t, d.Stop())
	time.Sleep(60 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.False(t, d.Stop())
}

func TestSupervisor_TicksImmediatelyAndPeriodically(t *testing.T) {
	var ticks atomic.Int32
	s := NewSupervisor(20*time.Millisecond, func(context.Context) { ticks.Add(1) })

	s.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, 200*time.Millisecond, time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())
	after := ticks.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks after Stop")
}

func TestSupervisor_StartIsIdempotent(t *testing.T) {
	var active, maxActive atomic.Int32
	s := NewSupervisor(10*time.Millisecond, func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
	})

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	s.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxActive.Load(), "only one loop may run at a time")
}

func TestSupervisor_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	s := NewSupervisor(10*time.Millisecond, func(context.Context) { ticks.Add(1) })
	s.Start(ctx)
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	n := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, ticks.Load())
	s.Stop()
}
