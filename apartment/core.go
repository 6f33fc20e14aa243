// Package apartment implements the scheduling primitive every other package
// in this module runs callbacks through: a named, priority-queued execution
// context backed by either a pool of worker goroutines (NewThreadPool) or a
// single dedicated one (NewSingleThreaded).
package apartment

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-asyncflow/asyncflow/metrics"
	"github.com/go-asyncflow/asyncflow/pool"
)

// Apartment schedules callbacks for asynchronous execution. Every Future and
// Flow callback ultimately runs on one.
type Apartment interface {
	Name() string
	Features() Features
	State() State

	// Start transitions the apartment from NotStarted to Running, spawning
	// its worker goroutine(s). Calling Start more than once is a no-op.
	Start()
	// AsyncStop requests a graceful stop: already-ready callbacks drain,
	// pending delayed callbacks are discarded, and no new callback is
	// admitted. It returns immediately; use Wait to block for completion.
	AsyncStop()
	// Wait blocks until the apartment has fully stopped.
	Wait()

	// Schedule admits fn for execution at the given priority, returning an
	// id usable with TryUnschedule. It fails with ErrNotStarted or
	// ErrStoppingOrStopped if the apartment cannot admit new work.
	Schedule(fn func(), priority Priority) (uint64, error)
	// ScheduleDelayed is like Schedule but holds fn until delay has
	// elapsed before admitting it to the idle ready queue, whatever priority
	// was given. A delay <= 0 is the same as Schedule with priority.
	ScheduleDelayed(fn func(), priority Priority, delay time.Duration) (uint64, error)
	// TryUnschedule removes a not-yet-started idle-priority or delayed
	// callback by id, reporting whether it found and removed one.
	// Callbacks waiting in the high or normal ready queue are never removed.
	TryUnschedule(id uint64) bool

	IsStopped() bool
	IsStoppingOrStopped() bool

	// RunNestedPumpLoop re-enters this apartment's own dispatch loop on the
	// calling goroutine until predicate reports true, so a callback body
	// running on this apartment can block on a Future without deadlocking
	// it. Only supported when Features().Has(NestedPump).
	RunNestedPumpLoop(predicate func() bool) error
	// NotifyNestedPumpLoop wakes any goroutine blocked in RunNestedPumpLoop
	// so it can re-check its predicate.
	NotifyNestedPumpLoop()

	// AtforkPrepare, AtforkParent and AtforkChild exist for API parity with
	// the apartment model this package generalizes. The Go runtime offers
	// no safe fork-without-exec primitive, so the default apartments make
	// these no-ops; Features().Has(AtforkEnabled) is always false.
	AtforkPrepare()
	AtforkParent()
	AtforkChild()
}

// core is the shared implementation behind both the thread-pool and
// single-threaded apartments; they differ only in worker count and the
// Features they report.
type core struct {
	name     string
	n        int
	features Features

	logger  *zap.Logger
	metrics metrics.Provider
	slots   pool.Pool
	durHist metrics.Histogram
	depthGa metrics.UpDownCounter

	stateV atomic.Int32

	mu      sync.Mutex
	cond    *sync.Cond
	high    fifo
	normal  fifo
	idle    fifo
	delayed delayedQueue
	idleBusy int

	nextID     atomic.Uint64
	inflight   sync.WaitGroup
	stopCh     chan struct{}
	closeOnce  sync.Once
	delayedCh  chan struct{}
	pumpWakeCh chan struct{}
}

func newCore(cfg config, n int, features Features) *core {
	c := &core{
		name:       cfg.name,
		n:          n,
		features:   features,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
		slots:      newExecSlotPool(),
		durHist:    cfg.metrics.Histogram("apartment.callback.duration_seconds"),
		depthGa:    cfg.metrics.UpDownCounter("apartment.queue.depth"),
		stopCh:     make(chan struct{}),
		delayedCh:  make(chan struct{}, 1),
		pumpWakeCh: make(chan struct{}, 1),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *core) Name() string      { return c.name }
func (c *core) Features() Features { return c.features }
func (c *core) State() State      { return State(c.stateV.Load()) }

func (c *core) IsStopped() bool { return c.State() == Stopped }

func (c *core) IsStoppingOrStopped() bool {
	s := c.State()
	return s == Stopping || s == Stopped
}

func (c *core) Start() {
	if !c.stateV.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return
	}
	c.inflight.Add(c.n + 1)
	for i := 0; i < c.n; i++ {
		go c.workerLoop()
	}
	go c.timerLoop()
}

func (c *core) AsyncStop() {
	if !c.stateV.CompareAndSwap(int32(Running), int32(Stopping)) {
		return
	}
	c.mu.Lock()
	c.delayed = c.delayed[:0] // discard not-yet-due delayed work
	c.mu.Unlock()
	c.cond.Broadcast()
	select {
	case c.delayedCh <- struct{}{}:
	default:
	}
}

func (c *core) Wait() {
	c.inflight.Wait()
}

func (c *core) Schedule(fn func(), priority Priority) (uint64, error) {
	st := c.State()
	if st == NotStarted {
		return 0, ErrNotStarted
	}
	if st == Stopping || st == Stopped {
		return 0, ErrStoppingOrStopped
	}
	id := c.nextID.Add(1)
	it := &item{id: id, fn: fn, priority: priority}
	c.mu.Lock()
	c.pushReady(it)
	c.mu.Unlock()
	c.depthGa.Add(1)
	c.cond.Signal()
	return id, nil
}

func (c *core) ScheduleDelayed(fn func(), priority Priority, delay time.Duration) (uint64, error) {
	if delay <= 0 {
		return c.Schedule(fn, priority)
	}
	st := c.State()
	if st == NotStarted {
		return 0, ErrNotStarted
	}
	if st == Stopping || st == Stopped {
		return 0, ErrStoppingOrStopped
	}
	id := c.nextID.Add(1)
	it := &item{id: id, fn: fn, priority: priority}
	di := &delayedItem{deadline: time.Now().Add(delay), it: it}
	c.mu.Lock()
	heap.Push(&c.delayed, di)
	c.mu.Unlock()
	select {
	case c.delayedCh <- struct{}{}:
	default:
	}
	return id, nil
}

func (c *core) TryUnschedule(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idle.remove(id) {
		return true
	}
	return c.delayed.removeByID(id)
}

func (c *core) pushReady(it *item) {
	switch it.priority {
	case PriorityHigh:
		c.high.push(it)
	case PriorityIdle:
		c.idle.push(it)
	default:
		c.normal.push(it)
	}
}

// tryPop returns the next ready item respecting priority order and the idle
// reservation rule: an idle-priority item is only taken if at least one
// worker would remain free for high/normal work, unless this is a
// single-worker apartment (which must eventually run idle work too).
func (c *core) tryPop() *item {
	if it := c.high.popFront(); it != nil {
		return it
	}
	if it := c.normal.popFront(); it != nil {
		return it
	}
	if c.idle.len() > 0 && (c.n == 1 || c.idleBusy < c.n-1) {
		if it := c.idle.popFront(); it != nil {
			c.idleBusy++
			return it
		}
	}
	return nil
}

func (c *core) drained() bool {
	return c.high.len() == 0 && c.normal.len() == 0 && c.idle.len() == 0 && len(c.delayed) == 0
}

func (c *core) next() (*item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if it := c.tryPop(); it != nil {
			return it, true
		}
		st := State(c.stateV.Load())
		if (st == Stopping || st == Stopped) && c.drained() {
			c.closeOnce.Do(func() {
				c.stateV.CompareAndSwap(int32(Stopping), int32(Stopped))
				close(c.stopCh)
			})
			return nil, false
		}
		c.cond.Wait()
	}
}

func (c *core) workerLoop() {
	defer c.inflight.Done()
	for {
		it, ok := c.next()
		if !ok {
			return
		}
		c.runItem(it)
	}
}

func (c *core) runItem(it *item) {
	c.depthGa.Add(-1)
	defer func() {
		if it.priority == PriorityIdle {
			c.mu.Lock()
			c.idleBusy--
			c.mu.Unlock()
		}
	}()
	withSlot(c.slots, c.durHist, func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("apartment: callback panicked",
					zap.String("apartment", c.name),
					zap.Any("panic", r),
				)
			}
		}()
		it.fn()
	})
}

func (c *core) timerLoop() {
	defer c.inflight.Done()
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		c.mu.Lock()
		next := c.delayed.peek()
		c.mu.Unlock()

		if State(c.stateV.Load()) == Stopped {
			return
		}

		wait := time.Hour
		if next != nil {
			wait = time.Until(next.deadline)
			if wait < 0 {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			c.promoteExpired()
		case <-c.delayedCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *core) promoteExpired() {
	now := time.Now()
	c.mu.Lock()
	var woke bool
	for {
		di := c.delayed.peek()
		if di == nil || di.deadline.After(now) {
			break
		}
		heap.Pop(&c.delayed)
		di.it.priority = PriorityIdle
		c.pushReady(di.it)
		woke = true
	}
	c.mu.Unlock()
	if woke {
		c.cond.Broadcast()
	}
}

func (c *core) RunNestedPumpLoop(predicate func() bool) error {
	if !c.features.Has(NestedPump) {
		return ErrNestedPumpUnsupported
	}
	for !predicate() {
		it, ok := c.tryPopNonBlocking()
		if ok {
			c.runItem(it)
			continue
		}
		select {
		case <-c.pumpWakeCh:
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func (c *core) tryPopNonBlocking() (*item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.tryPop()
	return it, it != nil
}

func (c *core) NotifyNestedPumpLoop() {
	select {
	case c.pumpWakeCh <- struct{}{}:
	default:
	}
}

func (c *core) AtforkPrepare() {}
func (c *core) AtforkParent()  {}
func (c *core) AtforkChild()   {}
