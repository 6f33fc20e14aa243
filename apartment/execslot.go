package apartment

import (
	"time"

	"github.com/go-asyncflow/asyncflow/pool"
)

// execSlot is scratch state a worker goroutine borrows for the duration of a
// single callback's execution, so that per-callback timing bookkeeping does
// not allocate. Slots are recycled through a pool.Pool exactly the way the
// teacher corpus reuses worker objects across dispatched tasks.
type execSlot struct {
	startedAt time.Time
}

func newExecSlotPool() pool.Pool {
	return pool.NewDynamic(func() interface{} { return &execSlot{} })
}

// withSlot borrows a slot, runs fn, records the elapsed time against hist,
// and returns the slot to the pool.
func withSlot(p pool.Pool, hist interface {
	Record(float64)
}, fn func()) {
	slot := p.Get().(*execSlot)
	slot.startedAt = time.Now()
	defer func() {
		hist.Record(time.Since(slot.startedAt).Seconds())
		p.Put(slot)
	}()
	fn()
}
