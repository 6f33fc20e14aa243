package future

import (
	"sync"
	"sync/atomic"

	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// All waits for every future to succeed, collecting their values in input
// order. The first failure to arrive completes the aggregate with that
// error; later results (success or failure) are discarded. This mirrors the
// per-index result buffering the teacher corpus uses to reassemble
// out-of-order worker output before handing it back in submission order.
func All[T any](futures []Future[T], opts ...PostOption) Future[[]T] {
	cfg := buildPostConfig(opts)
	out := newNode[[]T]()

	n := len(futures)
	if n == 0 {
		out.complete(asyncresult.Value([]T{}))
		return Future[[]T]{n: out}
	}

	results := make([]T, n)
	var mu sync.Mutex
	remaining := n
	var failed atomic.Bool

	for i, f := range futures {
		i, f := i, f
		f.n.subscribe(func(r asyncresult.Result[T]) {
			dispatch(cfg, func() {
				if r.IsError() {
					if failed.CompareAndSwap(false, true) {
						out.complete(asyncresult.Error[[]T](r.Err()))
						cancelOthers(futures, i)
					}
					return
				}
				v, _ := r.ValueOK()
				mu.Lock()
				results[i] = v
				remaining--
				done := remaining == 0
				mu.Unlock()
				if done && !failed.Load() {
					out.complete(asyncresult.Value(append([]T(nil), results...)))
				}
			})
		})
	}
	return Future[[]T]{n: out}
}

// cancelOthers requests cooperative cancellation (with backtrack) of every
// future in futures except the one at index keep — used once an
// aggregate's settlement rule is satisfied and the remaining inputs' work is
// no longer needed.
func cancelOthers[T any](futures []Future[T], keep int) {
	for j, other := range futures {
		if j != keep {
			other.TryCancel(true)
		}
	}
}

// AllCompleted waits for every future to settle, success or failure, and
// collects their Results in input order. Unlike All, it never short-circuits
// on a failure.
func AllCompleted[T any](futures []Future[T], opts ...PostOption) Future[[]asyncresult.Result[T]] {
	cfg := buildPostConfig(opts)
	out := newNode[[]asyncresult.Result[T]]()

	n := len(futures)
	if n == 0 {
		out.complete(asyncresult.Value([]asyncresult.Result[T]{}))
		return Future[[]asyncresult.Result[T]]{n: out}
	}

	results := make([]asyncresult.Result[T], n)
	var mu sync.Mutex
	remaining := n

	for i, f := range futures {
		i, f := i, f
		f.n.subscribe(func(r asyncresult.Result[T]) {
			dispatch(cfg, func() {
				mu.Lock()
				results[i] = r
				remaining--
				done := remaining == 0
				mu.Unlock()
				if done {
					out.complete(asyncresult.Value(append([]asyncresult.Result[T](nil), results...)))
				}
			})
		})
	}
	return Future[[]asyncresult.Result[T]]{n: out}
}

// Any completes with whichever input future is the first to succeed. A
// failure is only adopted as the aggregate's own outcome once every input
// has failed, in which case the first-by-index error is used. Ties among
// futures that are already successfully completed at call time are broken
// by input index: those are checked in input order before any subscription,
// and the first one found is the aggregate's result. Once the aggregate
// settles, every other input is marked for cancellation.
func Any[T any](futures []Future[T], opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()

	n := len(futures)
	if n == 0 {
		out.complete(asyncresult.Error[T](asyncresult.New(asyncresult.Unexpected, "future: Any called with no futures")))
		return Future[T]{n: out}
	}

	errs := make([]error, n)
	var mu sync.Mutex
	remaining := n
	var settled atomic.Bool

	for i, f := range futures {
		if r, ok := f.n.peek(); ok && !r.IsError() {
			i := i
			settled.Store(true)
			dispatch(cfg, func() {
				out.complete(r)
				cancelOthers(futures, i)
			})
			return Future[T]{n: out}
		}
	}

	for i, f := range futures {
		i, f := i, f
		f.n.subscribe(func(r asyncresult.Result[T]) {
			dispatch(cfg, func() {
				if !r.IsError() {
					if settled.CompareAndSwap(false, true) {
						out.complete(r)
						cancelOthers(futures, i)
					}
					return
				}
				mu.Lock()
				errs[i] = r.Err()
				remaining--
				done := remaining == 0
				mu.Unlock()
				if !done || !settled.CompareAndSwap(false, true) {
					return
				}
				for _, e := range errs {
					if e != nil {
						out.complete(asyncresult.Error[T](e))
						return
					}
				}
			})
		})
	}
	return Future[T]{n: out}
}
