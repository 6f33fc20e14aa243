package future

import (
	"time"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// Wait blocks the calling goroutine until f resolves and returns its
// result. It is a plain channel receive — safe to call from any goroutine
// that is not itself servicing an apartment f's chain depends on.
func Wait[T any](f Future[T]) asyncresult.Result[T] {
	<-f.n.done
	r, _ := f.Peek()
	return r
}

// WaitOn blocks like Wait, but if apt supports nested pumping (an STA),
// it re-enters apt's own dispatch loop instead of parking, so a callback
// body already running on apt can wait on a future it scheduled onto apt
// itself without deadlocking.
func WaitOn[T any](f Future[T], apt apartment.Apartment) asyncresult.Result[T] {
	if apt != nil && apt.Features().Has(apartment.NestedPump) {
		_ = apt.RunNestedPumpLoop(func() bool { return f.IsCompleted() })
		r, _ := f.Peek()
		return r
	}
	return Wait(f)
}

// WaitTimeout blocks until f resolves or timeout elapses, reporting false
// in the latter case.
func WaitTimeout[T any](f Future[T], timeout time.Duration) (asyncresult.Result[T], bool) {
	select {
	case <-f.n.done:
		r, _ := f.Peek()
		return r, true
	case <-time.After(timeout):
		var zero asyncresult.Result[T]
		return zero, false
	}
}
