package future

import (
	"fmt"
	"time"

	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// Post runs fn asynchronously and returns a Future for its outcome. With no
// options, fn is scheduled on apartment.DefaultThreadPool(); pass On(apt) to
// schedule it through another apartment. It runs inline on the calling
// goroutine only when WithContext gives a context whose priority is
// asyncctx.InlinePriority or higher and no apartment was given.
func Post[T any](fn func() (T, error), opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	p := New[T]()
	dispatch(cfg, postBody(p, fn))
	return p.Future()
}

// PostDelayed is like Post, but holds fn for delay before it becomes
// eligible to run.
func PostDelayed[T any](fn func() (T, error), delay time.Duration, opts ...PostOption) Future[T] {
	cfg := buildPostConfig(opts)
	p := New[T]()
	dispatchDelayed(cfg, delay, postBody(p, fn))
	return p.Future()
}

func postBody[T any](p Promise[T], fn func() (T, error)) func() {
	return func() {
		if p.f.n.isCancelled() {
			p.Reject(asyncresult.New(asyncresult.Cancelled, "future: cancelled before running"))
			return
		}
		defer func() {
			if r := recover(); r != nil {
				p.Reject(asyncresult.New(asyncresult.Unexpected, fmt.Sprintf("future: panic in posted callback: %v", r)))
			}
		}()
		v, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}
}
