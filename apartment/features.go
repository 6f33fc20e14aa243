package apartment

// Features is a bitset describing an apartment's scheduling guarantees.
type Features uint8

const (
	// Sequential apartments run callbacks of equal priority strictly FIFO
	// (true of any apartment with exactly one worker goroutine).
	Sequential Features = 1 << iota
	// NestedPump apartments support RunNestedPumpLoop: a callback body may
	// block waiting on a future without deadlocking the apartment, by
	// recursively pumping the apartment's own queues.
	NestedPump
	// AtforkEnabled apartments implement meaningful AtforkPrepare/Parent/
	// Child hooks. Unset by default since the Go runtime does not support
	// safe fork() without exec() (see SPEC_FULL.md §5).
	AtforkEnabled
)

// Has reports whether f contains all bits of want.
func (f Features) Has(want Features) bool { return f&want == want }
