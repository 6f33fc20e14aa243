package future_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/future"
)

func TestMap_CollectsResultsInOrder(t *testing.T) {
	a := apartment.NewThreadPool("pool", 4)
	a.Start()
	defer a.AsyncStop()

	items := []int{1, 2, 3, 4, 5}
	out := future.Map(a, items, func(n int) (int, error) { return n * n, nil })
	v, err := future.Wait(out).Unwrap()
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 9, 16, 25}, v)
}

func TestMap_PropagatesFirstError(t *testing.T) {
	a := apartment.NewThreadPool("pool", 4)
	a.Start()
	defer a.AsyncStop()

	items := []int{1, 2, 3}
	out := future.Map(a, items, func(n int) (int, error) {
		if n == 2 {
			return 0, fmt.Errorf("bad item %d", n)
		}
		return n, nil
	})
	r := future.Wait(out)
	require.True(t, r.IsError())
}

func TestRunAll_WaitsForEverything(t *testing.T) {
	a := apartment.NewThreadPool("pool", 4)
	a.Start()
	defer a.AsyncStop()

	fns := make([]func() error, 10)
	for i := range fns {
		fns[i] = func() error { return nil }
	}
	out := future.RunAll(a, fns)
	r := future.Wait(out)
	require.False(t, r.IsError())
}
