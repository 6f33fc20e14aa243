package future_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncctx"
	"github.com/go-asyncflow/asyncflow/asyncresult"
	"github.com/go-asyncflow/asyncflow/future"
)

func TestPromise_ResolveCompletesFuture(t *testing.T) {
	p := future.New[int]()
	require.False(t, p.Future().IsCompleted())
	p.Resolve(42)
	require.True(t, p.Future().IsCompleted())

	r := future.Wait(p.Future())
	v, err := r.Unwrap()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestPromise_SecondCompletionIgnored(t *testing.T) {
	p := future.New[int]()
	p.Resolve(1)
	p.Resolve(2)
	v, _ := future.Wait(p.Future()).Unwrap()
	require.Equal(t, 1, v)
}

func TestPromise_Reject(t *testing.T) {
	p := future.New[int]()
	boom := asyncresult.New(asyncresult.Unexpected, "boom")
	p.Reject(boom)
	r := future.Wait(p.Future())
	require.True(t, r.IsError())
	require.ErrorIs(t, r.Err(), boom)
}

func TestThen_RunsOnSuccessAndCanChangeTypeAndOutcome(t *testing.T) {
	p := future.New[int]()
	out := future.Then(p.Future(), func(v int) asyncresult.Result[string] {
		if v < 0 {
			return asyncresult.Error[string](asyncresult.New(asyncresult.Unexpected, "negative"))
		}
		return asyncresult.Value("n")
	})
	p.Resolve(7)
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, "n", v)
}

func TestThen_FnCanTurnSuccessIntoFailure(t *testing.T) {
	p := future.New[int]()
	out := future.Then(p.Future(), func(v int) asyncresult.Result[string] {
		return asyncresult.Error[string](asyncresult.New(asyncresult.Unexpected, "negative"))
	})
	p.Resolve(-1)
	r := future.Wait(out)
	require.True(t, r.IsError())
}

func TestThen_SkipsFnOnUpstreamFailure(t *testing.T) {
	p := future.New[int]()
	var ran bool
	out := future.Then(p.Future(), func(v int) asyncresult.Result[string] {
		ran = true
		return asyncresult.Value("n")
	})
	p.Reject(asyncresult.New(asyncresult.Unexpected, "boom"))
	r := future.Wait(out)
	require.True(t, r.IsError())
	require.False(t, ran)
}

func TestTrap_RecoversFromFailure(t *testing.T) {
	p := future.New[int]()
	out := p.Future().Trap(func(err error) int { return -1 })
	p.Reject(asyncresult.New(asyncresult.Unexpected, "fail"))
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, -1, v)
}

func TestTransform_AlwaysRunsAndCanRecoverFailure(t *testing.T) {
	p := future.New[int]()
	out := future.Transform(p.Future(), func(r asyncresult.Result[int]) asyncresult.Result[string] {
		if r.IsError() {
			return asyncresult.Value("recovered")
		}
		return asyncresult.Value("n")
	})
	p.Reject(asyncresult.New(asyncresult.Unexpected, "boom"))
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, "recovered", v)
}

func TestTransform_CanTurnSuccessIntoFailure(t *testing.T) {
	p := future.New[int]()
	out := future.Transform(p.Future(), func(r asyncresult.Result[int]) asyncresult.Result[string] {
		return asyncresult.Error[string](asyncresult.New(asyncresult.Unexpected, "rejected"))
	})
	p.Resolve(3)
	r := future.Wait(out)
	require.True(t, r.IsError())
}

func TestFlatTransform_FlattensNestedFuture(t *testing.T) {
	p := future.New[int]()
	out := future.FlatTransform(p.Future(), func(r asyncresult.Result[int]) future.Future[string] {
		inner := future.New[string]()
		inner.Resolve("inner")
		return inner.Future()
	})
	p.Resolve(1)
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, "inner", v)
}

func TestFlatThen_SkipsFnOnUpstreamFailure(t *testing.T) {
	p := future.New[int]()
	var ran bool
	out := future.FlatThen(p.Future(), func(v int) future.Future[int] {
		ran = true
		inner := future.New[int]()
		inner.Resolve(v)
		return inner.Future()
	})
	p.Reject(asyncresult.New(asyncresult.Unexpected, "boom"))
	r := future.Wait(out)
	require.True(t, r.IsError())
	require.False(t, ran)
}

func TestAll_CollectsInOrder(t *testing.T) {
	a := future.New[int]()
	b := future.New[int]()
	c := future.New[int]()
	out := future.All([]future.Future[int]{a.Future(), b.Future(), c.Future()})

	c.Resolve(3)
	a.Resolve(1)
	b.Resolve(2)

	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, v)
}

func TestAll_FirstFailureWins(t *testing.T) {
	a := future.New[int]()
	b := future.New[int]()
	out := future.All([]future.Future[int]{a.Future(), b.Future()})

	boom := asyncresult.New(asyncresult.Unexpected, "boom")
	a.Reject(boom)
	b.Resolve(2)

	r := future.Wait(out)
	require.True(t, r.IsError())
}

func TestAllCompleted_NeverShortCircuits(t *testing.T) {
	a := future.New[int]()
	b := future.New[int]()
	out := future.AllCompleted([]future.Future[int]{a.Future(), b.Future()})

	a.Reject(asyncresult.New(asyncresult.Unexpected, "boom"))
	b.Resolve(2)

	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Len(t, v, 2)
	require.True(t, v[0].IsError())
	require.True(t, v[1].IsValue())
}

func TestAny_FirstToSettleWins(t *testing.T) {
	a := future.New[int]()
	b := future.New[int]()
	out := future.Any([]future.Future[int]{a.Future(), b.Future()})

	b.Resolve(2)
	a.Resolve(1)

	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestAny_TieBreaksByIndexWhenAlreadyResolved(t *testing.T) {
	a := future.Completed(1)
	b := future.Completed(2)
	out := future.Any([]future.Future[int]{a, b})

	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestAny_PrefersSuccessOverAnEarlierFailure(t *testing.T) {
	a := future.Failed[int](asyncresult.New(asyncresult.Unexpected, "instant failure"))
	b := future.New[int]()
	out := future.Any([]future.Future[int]{a, b.Future()})

	b.Resolve(9)

	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 9, v)
}

func TestAny_FallsBackToFirstIndexErrorWhenEverythingFails(t *testing.T) {
	a := future.New[int]()
	b := future.New[int]()
	out := future.Any([]future.Future[int]{a.Future(), b.Future()})

	boomB := asyncresult.New(asyncresult.Unexpected, "b failed")
	b.Reject(boomB)
	boomA := asyncresult.New(asyncresult.Unexpected, "a failed")
	a.Reject(boomA)

	r := future.Wait(out)
	require.True(t, r.IsError())
	require.ErrorIs(t, r.Err(), boomA)
}

func TestPost_SchedulesOnDefaultApartmentByDefault(t *testing.T) {
	out := future.Post(func() (int, error) { return 9, nil })
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 9, v)
}

func TestPost_RunsInlineWithInlinePriorityAndNoApartment(t *testing.T) {
	var ranOnCallingGoroutine bool
	ctx := asyncctx.Empty.WithPriority(asyncctx.InlinePriority)
	out := future.Post(func() (int, error) {
		ranOnCallingGoroutine = true
		return 1, nil
	}, future.WithContext(ctx))
	require.True(t, ranOnCallingGoroutine, "InlinePriority with no apartment must run synchronously before Post returns")
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestPost_RecoversPanicAsError(t *testing.T) {
	out := future.Post(func() (int, error) { panic("boom") })
	r := future.Wait(out)
	require.True(t, r.IsError())
}

func TestPostDelayed_RunsAfterDelay(t *testing.T) {
	start := time.Now()
	out := future.PostDelayed(func() (int, error) { return 1, nil }, 30*time.Millisecond)
	v, ok := future.WaitTimeout(out, time.Second)
	require.True(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	n, err := v.Unwrap()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestWithTimeout_FiresWhenUpstreamNeverResolves(t *testing.T) {
	p := future.New[int]()
	out := future.WithTimeout(p.Future(), 20*time.Millisecond, nil)
	r := future.Wait(out)
	require.True(t, r.IsError())
	require.Equal(t, asyncresult.Timeout, r.Code())
}

func TestWithTimeout_UpstreamWinsWhenFaster(t *testing.T) {
	p := future.New[int]()
	out := future.WithTimeout(p.Future(), time.Second, nil)
	p.Resolve(5)
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestWithTimeout_CancelsUpstreamOnFire(t *testing.T) {
	p := future.New[int]()
	out := future.WithTimeout(p.Future(), 10*time.Millisecond, nil)
	r := future.Wait(out)
	require.True(t, r.IsError())
	require.Eventually(t, func() bool { return p.Future().IsCancelled() }, time.Second, time.Millisecond)
}

func TestTryCancel_SkipsAPostedTaskNotYetStarted(t *testing.T) {
	apt := apartment.NewThreadPool("pool", 1)
	apt.Start()
	defer apt.AsyncStop()

	block := make(chan struct{})
	occupy := future.Post(func() (int, error) {
		<-block
		return 0, nil
	}, future.On(apt))

	var ran bool
	out := future.Post(func() (int, error) {
		ran = true
		return 1, nil
	}, future.On(apt))

	out.TryCancel(false)
	close(block)
	future.Wait(occupy)

	r := future.Wait(out)
	require.True(t, r.IsError())
	require.Equal(t, asyncresult.Cancelled, r.Code())
	require.False(t, ran)
}

func TestTryCancel_BacktracksThroughAPipeChain(t *testing.T) {
	p := future.New[int]()
	mapped := future.Transform(p.Future(), func(r asyncresult.Result[int]) asyncresult.Result[string] {
		return asyncresult.Value("n")
	})
	mapped.TryCancel(true)
	require.True(t, p.Future().IsCancelled())
}
