package future

import "github.com/go-asyncflow/asyncflow/asyncresult"

// cancelledResult reports whether n has been marked cancelled since it was
// created, returning the CANCELLED Result it should commit instead of
// running its body — the "an aggregator/pipe cancels itself only at its
// next wake-up" rule.
func cancelledResult[T any](n *node[T]) (asyncresult.Result[T], bool) {
	if !n.isCancelled() {
		var zero asyncresult.Result[T]
		return zero, false
	}
	return asyncresult.Error[T](asyncresult.New(asyncresult.Cancelled, "future: cancelled before running")), true
}

// backtrackTo registers a hook on out so that out.TryCancel(true) also
// cancels f, propagating a downstream cancellation request to the upstream
// future a combinator was derived from.
func backtrackTo[T, R any](f Future[T], out *node[R]) {
	out.registerCancelHook(func(backtrack bool) {
		if backtrack {
			f.n.tryCancel(backtrack)
		}
	})
}

// Then runs fn on a successful upstream result and commits whatever Result
// fn returns as the new result — fn may change the value, the type, or turn
// a success into a failure. An upstream failure passes through unchanged
// (reinterpreted as Result[R]) without running fn.
func Then[T, R any](f Future[T], fn func(T) asyncresult.Result[R], opts ...PostOption) Future[R] {
	cfg := buildPostConfig(opts)
	out := newNode[R]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[R](out); cancelled {
				out.complete(cr)
				return
			}
			v, ok := r.ValueOK()
			if !ok {
				out.complete(asyncresult.Error[R](r.Err()))
				return
			}
			out.complete(fn(v))
		})
	})
	return Future[R]{n: out}
}

// Trap recovers from an upstream failure by producing a replacement value.
// A successful upstream result passes through unchanged.
func (f Future[T]) Trap(fn func(error) T, opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[T](out); cancelled {
				out.complete(cr)
				return
			}
			if r.IsError() {
				out.complete(asyncresult.Value(fn(r.Err())))
				return
			}
			out.complete(r)
		})
	})
	return Future[T]{n: out}
}

// OnSuccess observes a successful result without altering it. Like
// OnFailure, OnCompletion and Noop, it forwards the upstream result even
// after TryCancel marked it; TryCancel(true) still reaches the upstream.
func (f Future[T]) OnSuccess(fn func(T), opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if v, ok := r.ValueOK(); ok {
				fn(v)
			}
			out.complete(r)
		})
	})
	return Future[T]{n: out}
}

// OnFailure observes a failed result without altering it.
func (f Future[T]) OnFailure(fn func(error), opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if r.IsError() {
				fn(r.Err())
			}
			out.complete(r)
		})
	})
	return Future[T]{n: out}
}

// OnCompletion observes every result, success or failure, without altering
// it.
func (f Future[T]) OnCompletion(fn func(asyncresult.Result[T]), opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			fn(r)
			out.complete(r)
		})
	})
	return Future[T]{n: out}
}

// Noop forwards the upstream result unchanged. It exists to re-anchor a
// continuation chain onto a different apartment/context via opts without
// otherwise touching the value.
func (f Future[T]) Noop(opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() { out.complete(r) })
	})
	return Future[T]{n: out}
}
