package future

import (
	"sync/atomic"
	"time"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// WithTimeout returns a future that adopts f's result if it arrives within
// d, or fails with a CodedError(Timeout) otherwise. If apt is non-nil, the
// timeout is scheduled through it (ScheduleDelayed); otherwise a plain timer
// is used. Whichever settles first wins: if f wins, the pending timeout is
// cancelled (TryUnschedule, or the timer is stopped); if the timeout wins,
// f is cooperatively cancelled with backtrack so its chain unwinds instead
// of continuing to run for a result nobody will read.
func WithTimeout[T any](f Future[T], d time.Duration, apt apartment.Apartment) Future[T] {
	out := newNode[T]()
	backtrackTo(f, out)

	var settled atomic.Bool
	var timer *time.Timer
	var aptID uint64

	fireTimeout := func() {
		if settled.CompareAndSwap(false, true) {
			out.complete(asyncresult.Error[T](asyncresult.New(asyncresult.Timeout, "future: timed out waiting for result")))
			f.n.tryCancel(true)
		}
	}

	if apt != nil {
		aptID, _ = apt.ScheduleDelayed(fireTimeout, apartment.PriorityNormal, d)
	} else {
		timer = time.AfterFunc(d, fireTimeout)
	}

	f.n.subscribe(func(r asyncresult.Result[T]) {
		if settled.CompareAndSwap(false, true) {
			out.complete(r)
			if apt != nil {
				apt.TryUnschedule(aptID)
			} else {
				timer.Stop()
			}
		}
	})

	return Future[T]{n: out}
}
