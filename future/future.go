package future

import (
	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// Future is a handle to a value that becomes available asynchronously. The
// zero value is not usable; obtain one via a Promise or a combinator.
type Future[T any] struct {
	n *node[T]
}

// IsCompleted reports whether the future has resolved, without blocking.
func (f Future[T]) IsCompleted() bool { return f.n.isCompleted() }

// Peek returns the future's result and true if it has already resolved, or
// the zero Result and false otherwise.
func (f Future[T]) Peek() (asyncresult.Result[T], bool) { return f.n.peek() }

// TryCancel requests cooperative cancellation of the task backing f. A
// future that has already settled ignores the request. If backtrack is
// true, the request also propagates to whichever upstream future f was
// derived from (for a pipe or flattened combinator), all the way back to
// the root Post/PostDelayed or Promise that started the chain; sibling
// branches that fork off the same predecessor are not affected by each
// other's cancellation. It returns whether this call newly marked f
// cancelled.
func (f Future[T]) TryCancel(backtrack bool) bool { return f.n.tryCancel(backtrack) }

// IsCancelled reports whether TryCancel has been requested on f while it
// has not yet completed; it reports false once f has completed.
func (f Future[T]) IsCancelled() bool { return f.n.isCancelled() }

// Promise is the write side of a Future: exactly one of Resolve, Reject or
// Complete may take effect.
type Promise[T any] struct {
	f Future[T]
}

// New creates a Promise and its paired Future.
func New[T any]() Promise[T] {
	return Promise[T]{f: Future[T]{n: newNode[T]()}}
}

// Future returns the read side of the promise.
func (p Promise[T]) Future() Future[T] { return p.f }

// Resolve completes the future with a value.
func (p Promise[T]) Resolve(v T) { p.f.n.complete(asyncresult.Value(v)) }

// Reject completes the future with an error.
func (p Promise[T]) Reject(err error) { p.f.n.complete(asyncresult.Error[T](err)) }

// Complete completes the future with an already-built Result.
func (p Promise[T]) Complete(r asyncresult.Result[T]) { p.f.n.complete(r) }

// Completed returns a Future already resolved to v.
func Completed[T any](v T) Future[T] {
	n := newNode[T]()
	n.complete(asyncresult.Value(v))
	return Future[T]{n: n}
}

// Failed returns a Future already resolved to err.
func Failed[T any](err error) Future[T] {
	n := newNode[T]()
	n.complete(asyncresult.Error[T](err))
	return Future[T]{n: n}
}
