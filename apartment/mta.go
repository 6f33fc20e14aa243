package apartment

// NewThreadPool constructs a multi-threaded apartment (MTA): workers
// goroutines pull from the same three priority queues, so callbacks of
// equal priority may run concurrently and are not guaranteed to start in
// submission order.
func NewThreadPool(name string, workers int, opts ...Option) Apartment {
	if workers < 1 {
		workers = 1
	}
	cfg := defaults(name)
	for _, o := range opts {
		o(&cfg)
	}
	return newCore(cfg, workers, 0)
}
