package future

import (
	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncresult"
)

// Map posts fn for every item in items onto apt concurrently and collects
// the results in input order, short-circuiting on the first error — the
// future-graph equivalent of the teacher corpus's worker-pool Map helper.
func Map[T, R any](apt apartment.Apartment, items []T, fn func(T) (R, error), opts ...PostOption) Future[[]R] {
	futures := make([]Future[R], len(items))
	for i, it := range items {
		it := it
		futures[i] = Post(func() (R, error) { return fn(it) }, append(append([]PostOption{}, opts...), On(apt))...)
	}
	return All(futures, opts...)
}

// ForEach runs fn for every item in items concurrently on apt, discarding
// results but propagating the first error.
func ForEach[T any](apt apartment.Apartment, items []T, fn func(T) error, opts ...PostOption) Future[struct{}] {
	mapped := Map(apt, items, func(t T) (struct{}, error) {
		return struct{}{}, fn(t)
	}, opts...)
	return Transform(mapped, func(r asyncresult.Result[[]struct{}]) asyncresult.Result[struct{}] {
		if r.IsError() {
			return asyncresult.Error[struct{}](r.Err())
		}
		return asyncresult.Value(struct{}{})
	}, opts...)
}

// RunAll posts every fn in fns concurrently onto apt and completes once all
// have succeeded, or with the first error.
func RunAll(apt apartment.Apartment, fns []func() error, opts ...PostOption) Future[struct{}] {
	return ForEach(apt, fns, func(fn func() error) error { return fn() }, opts...)
}
