package apartment

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSingleThreaded_SupportsNestedPump(t *testing.T) {
	a := NewSingleThreaded("sta")
	require.True(t, a.Features().Has(NestedPump))
	a.Start()
	defer a.AsyncStop()

	var innerRan atomic.Bool
	var done atomic.Bool

	_, err := a.Schedule(func() {
		// simulate a callback body blocking on a future: it re-enters the
		// apartment's own dispatch loop instead of deadlocking it.
		_, _ = a.Schedule(func() { innerRan.Store(true); done.Store(true) }, PriorityNormal)
		_ = a.RunNestedPumpLoop(func() bool { return done.Load() })
	}, PriorityNormal)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return innerRan.Load() }, time.Second, time.Millisecond)
}

func TestThreadPool_NestedPumpUnsupported(t *testing.T) {
	a := NewThreadPool("pool", 2)
	require.False(t, a.Features().Has(NestedPump))
	a.Start()
	defer a.AsyncStop()

	err := a.RunNestedPumpLoop(func() bool { return true })
	require.ErrorIs(t, err, ErrNestedPumpUnsupported)
}
