package future

import "github.com/go-asyncflow/asyncflow/asyncresult"

// Transform runs fn on every upstream result, success or failure, producing
// a new Result[R] — unlike Then it always runs, so it can recover an
// upstream error into a value or turn a success into a failure, in addition
// to mapping the value to a different type.
func Transform[T, R any](f Future[T], fn func(asyncresult.Result[T]) asyncresult.Result[R], opts ...PostOption) Future[R] {
	cfg := buildPostConfig(opts)
	out := newNode[R]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[R](out); cancelled {
				out.complete(cr)
				return
			}
			out.complete(fn(r))
		})
	})
	return Future[R]{n: out}
}

// FlatThen runs fn on a successful result and adopts the returned future's
// eventual result as its own, flattening Future[Future[T]]-shaped chains
// without changing the value type. An upstream failure passes through
// unchanged without running fn.
func FlatThen[T any](f Future[T], fn func(T) Future[T], opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[T](out); cancelled {
				out.complete(cr)
				return
			}
			v, ok := r.ValueOK()
			if !ok {
				out.complete(r)
				return
			}
			inner := fn(v)
			backtrackTo(inner, out)
			inner.n.subscribe(func(ir asyncresult.Result[T]) { out.complete(ir) })
		})
	})
	return Future[T]{n: out}
}

// FlatTrap recovers from an upstream failure by running fn to produce a
// replacement future, flattening the result. A successful upstream result
// passes through unchanged.
func FlatTrap[T any](f Future[T], fn func(error) Future[T], opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	out := newNode[T]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[T](out); cancelled {
				out.complete(cr)
				return
			}
			if !r.IsError() {
				out.complete(r)
				return
			}
			inner := fn(r.Err())
			backtrackTo(inner, out)
			inner.n.subscribe(func(ir asyncresult.Result[T]) { out.complete(ir) })
		})
	})
	return Future[T]{n: out}
}

// FlatTransform runs fn on every upstream result, success or failure, and
// adopts the returned future's eventual result, possibly changing the value
// type — the flattening counterpart of Transform.
func FlatTransform[T, R any](f Future[T], fn func(asyncresult.Result[T]) Future[R], opts ...PostOption) Future[R] {
	cfg := buildPostConfig(opts)
	out := newNode[R]()
	backtrackTo(f, out)
	f.n.subscribe(func(r asyncresult.Result[T]) {
		dispatch(cfg, func() {
			if cr, cancelled := cancelledResult[R](out); cancelled {
				out.complete(cr)
				return
			}
			inner := fn(r)
			backtrackTo(inner, out)
			inner.n.subscribe(func(ir asyncresult.Result[R]) { out.complete(ir) })
		})
	})
	return Future[R]{n: out}
}
