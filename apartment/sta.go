package apartment

// NewSingleThreaded constructs a single-thread apartment (STA): exactly one
// worker goroutine services all three priority queues, so callbacks of
// equal priority run strictly FIFO and no two callbacks ever run
// concurrently. STA apartments also support RunNestedPumpLoop, letting a
// callback body block on a Future without deadlocking its own apartment.
func NewSingleThreaded(name string, opts ...Option) Apartment {
	cfg := defaults(name)
	for _, o := range opts {
		o(&cfg)
	}
	return newCore(cfg, 1, Sequential|NestedPump)
}
