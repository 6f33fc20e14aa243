// Package future implements the future/promise graph: single-assignment
// values that resolve asynchronously, with combinators for chaining
// continuations and aggregating multiple futures, all of it running through
// apartment schedulers and carrying asyncctx ownership/cancellation
// semantics.
package future

import (
	"sync"

	"github.com/go-asyncflow/asyncflow/asyncresult"
)

type nodeState int32

const (
	pending nodeState = iota
	completed
)

// node is the shared, heap-allocated state behind a Future/Promise pair.
// Exactly one of Promise.Resolve/Reject/Complete may take effect; later
// calls are silently ignored, matching a single-assignment future.
type node[T any] struct {
	mu         sync.Mutex
	st         nodeState
	result     asyncresult.Result[T]
	done       chan struct{}
	callbacks  []func(asyncresult.Result[T])
	cancelled  bool
	cancelHooks []func(backtrack bool)
}

func newNode[T any]() *node[T] {
	return &node[T]{done: make(chan struct{})}
}

func (n *node[T]) isCompleted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.st == completed
}

func (n *node[T]) peek() (asyncresult.Result[T], bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.st != completed {
		var zero asyncresult.Result[T]
		return zero, false
	}
	return n.result, true
}

// complete resolves the node exactly once, then fires every subscriber
// registered so far. Subscribers registered after completion are fired
// immediately by subscribe instead.
func (n *node[T]) complete(r asyncresult.Result[T]) {
	n.mu.Lock()
	if n.st == completed {
		n.mu.Unlock()
		return
	}
	n.result = r
	n.st = completed
	close(n.done)
	cbs := n.callbacks
	n.callbacks = nil
	n.mu.Unlock()

	for _, cb := range cbs {
		cb(r)
	}
}

// subscribe registers cb to run with the node's result once available. If
// the node is already completed, cb runs synchronously on the calling
// goroutine — callers dispatching through an apartment wrap cb themselves
// before calling subscribe.
func (n *node[T]) subscribe(cb func(asyncresult.Result[T])) {
	n.mu.Lock()
	if n.st == completed {
		r := n.result
		n.mu.Unlock()
		cb(r)
		return
	}
	n.callbacks = append(n.callbacks, cb)
	n.mu.Unlock()
}

// tryCancel sets the node's cancel flag so the next natural synchronisation
// point (a worker picking up its scheduled body, or a downstream feed)
// observes it and commits a cancellation result instead of running. It does
// not forcibly complete the node — an in-flight body still runs to
// completion. If backtrack is true, every hook registered via
// registerCancelHook also runs, propagating the request to this node's
// predecessor(s). Returns false if the node had already completed or was
// already marked cancelled.
func (n *node[T]) tryCancel(backtrack bool) bool {
	n.mu.Lock()
	if n.st == completed || n.cancelled {
		n.mu.Unlock()
		return false
	}
	n.cancelled = true
	hooks := n.cancelHooks
	n.mu.Unlock()
	if backtrack {
		for _, h := range hooks {
			h(backtrack)
		}
	}
	return true
}

// isCancelled reports whether tryCancel has been called on this node since
// it was created and it has not yet completed.
func (n *node[T]) isCancelled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelled && n.st != completed
}

// registerCancelHook arranges for fn to run when this node's cancellation is
// requested with backtrack=true — used by combinators to propagate a
// downstream TryCancel to the upstream future(s) they were derived from.
func (n *node[T]) registerCancelHook(fn func(backtrack bool)) {
	n.mu.Lock()
	if n.st == completed {
		n.mu.Unlock()
		return
	}
	n.cancelHooks = append(n.cancelHooks, fn)
	n.mu.Unlock()
}
