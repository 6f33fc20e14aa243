package apartment

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThreadPool_SchedulesAllCallbacks(t *testing.T) {
	a := NewThreadPool("pool", 4)
	a.Start()
	defer a.AsyncStop()

	var n atomic.Int64
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		_, err := a.Schedule(func() {
			n.Add(1)
			wg.Done()
		}, PriorityNormal)
		require.NoError(t, err)
	}
	wg.Wait()
	require.EqualValues(t, 100, n.Load())
}

func TestSingleThreaded_RunsStrictlyFIFO(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()
	defer a.AsyncStop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(50)
	for i := 0; i < 50; i++ {
		i := i
		_, err := a.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}, PriorityNormal)
		require.NoError(t, err)
	}
	wg.Wait()

	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestCore_HighPriorityRunsBeforeNormal(t *testing.T) {
	a := NewSingleThreaded("sta")

	var mu sync.Mutex
	var order []string

	block := make(chan struct{})
	started := make(chan struct{})
	a.Start()
	defer a.AsyncStop()

	// occupy the single worker so both subsequent schedules queue up
	// before either can run.
	_, err := a.Schedule(func() {
		close(started)
		<-block
	}, PriorityNormal)
	require.NoError(t, err)
	<-started

	_, err = a.Schedule(func() {
		mu.Lock()
		order = append(order, "normal")
		mu.Unlock()
	}, PriorityNormal)
	require.NoError(t, err)

	_, err = a.Schedule(func() {
		mu.Lock()
		order = append(order, "high")
		mu.Unlock()
	}, PriorityHigh)
	require.NoError(t, err)

	close(block)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"high", "normal"}, order)
}

func TestCore_TryUnscheduleRemovesNotYetStarted(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()
	defer a.AsyncStop()

	block := make(chan struct{})
	started := make(chan struct{})
	_, err := a.Schedule(func() {
		close(started)
		<-block
	}, PriorityNormal)
	require.NoError(t, err)
	<-started

	var ran atomic.Bool
	id, err := a.Schedule(func() { ran.Store(true) }, PriorityIdle)
	require.NoError(t, err)

	require.True(t, a.TryUnschedule(id))
	close(block)

	time.Sleep(20 * time.Millisecond)
	require.False(t, ran.Load())
}

func TestCore_ScheduleDelayed_RunsAfterDelay(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()
	defer a.AsyncStop()

	done := make(chan time.Time, 1)
	start := time.Now()
	_, err := a.ScheduleDelayed(func() {
		done <- time.Now()
	}, PriorityNormal, 30*time.Millisecond)
	require.NoError(t, err)

	select {
	case when := <-done:
		require.GreaterOrEqual(t, when.Sub(start), 25*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("delayed callback never ran")
	}
}

func TestCore_PanicInCallbackDoesNotKillWorker(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()
	defer a.AsyncStop()

	_, err := a.Schedule(func() { panic("boom") }, PriorityNormal)
	require.NoError(t, err)

	var ran atomic.Bool
	done := make(chan struct{})
	_, err = a.Schedule(func() {
		ran.Store(true)
		close(done)
	}, PriorityNormal)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking callback")
	}
	require.True(t, ran.Load())
}

func TestCore_ScheduleBeforeStartFails(t *testing.T) {
	a := NewSingleThreaded("sta")
	_, err := a.Schedule(func() {}, PriorityNormal)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestCore_ScheduleAfterStopFails(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()
	a.AsyncStop()
	a.Wait()

	_, err := a.Schedule(func() {}, PriorityNormal)
	require.ErrorIs(t, err, ErrStoppingOrStopped)
	require.True(t, a.IsStopped())
}

func TestCore_AsyncStopDrainsReadyQueueThenStops(t *testing.T) {
	a := NewSingleThreaded("sta")
	a.Start()

	var ran atomic.Int64
	for i := 0; i < 10; i++ {
		_, err := a.Schedule(func() { ran.Add(1) }, PriorityNormal)
		require.NoError(t, err)
	}
	a.AsyncStop()
	a.Wait()
	require.EqualValues(t, 10, ran.Load())
	require.True(t, a.IsStopped())
}
