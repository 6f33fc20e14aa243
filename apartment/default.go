package apartment

import (
	"runtime"
	"sync"
)

var (
	defaultOnce sync.Once
	defaultPool Apartment
)

// DefaultThreadPool returns the process-wide default thread-pool apartment,
// sized to GOMAXPROCS and started lazily on first use. Most callers that
// just need "somewhere async" to run a callback should use this instead of
// constructing their own apartment.
//
// Unlike the apartment model this generalizes, this package tracks no
// implicit "current apartment" thread-local: Go has no safe per-goroutine
// storage, and callbacks that need to know which apartment they are running
// on (to post follow-up work back onto it, say) receive it explicitly
// instead, the same way context.Context is threaded explicitly rather than
// looked up from ambient state.
func DefaultThreadPool() Apartment {
	defaultOnce.Do(func() {
		defaultPool = NewThreadPool("default", runtime.GOMAXPROCS(0))
		defaultPool.Start()
	})
	return defaultPool
}
