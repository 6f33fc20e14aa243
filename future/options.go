package future

import (
	"time"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncctx"
)

// postConfig controls how a continuation is dispatched: which apartment (if
// any) runs it, at what priority, and which asyncctx.Context governs its
// cancellation/ownership checks.
type postConfig struct {
	apt      apartment.Apartment
	priority apartment.Priority
	ctx      asyncctx.Context
}

func defaultPostConfig() postConfig {
	return postConfig{priority: apartment.PriorityNormal, ctx: asyncctx.Empty}
}

// PostOption configures where and how a continuation runs.
type PostOption func(*postConfig)

// On posts the continuation through apt instead of the default thread pool
// (or the inline fast path, see runsInline).
func On(apt apartment.Apartment) PostOption {
	return func(c *postConfig) { c.apt = apt }
}

// WithPriority sets the apartment.Priority the continuation is scheduled
// with, on the On apartment or, without On, the default thread pool.
func WithPriority(p apartment.Priority) PostOption {
	return func(c *postConfig) { c.priority = p }
}

// WithContext attaches an asyncctx.Context: the continuation is skipped if
// the context (or any ancestor) is cancelled or its owner has expired by the
// time it would run.
func WithContext(ctx asyncctx.Context) PostOption {
	return func(c *postConfig) { c.ctx = ctx }
}

func buildPostConfig(opts []PostOption) postConfig {
	cfg := defaultPostConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// wrap applies the context's ownership/cancellation checks around body,
// returning a closure safe to hand to an apartment or run inline.
func wrap(cfg postConfig, body func()) func() {
	return func() {
		if cfg.ctx.CheckCancelAll() || cfg.ctx.CheckOwnerExpired() {
			return
		}
		locker, ok := cfg.ctx.LockOwner()
		if !ok {
			return
		}
		defer locker.Unlock()
		cfg.ctx.EnterPending()
		defer cfg.ctx.LeavePending()
		body()
	}
}

// runsInline reports whether the continuation should run synchronously on
// whichever goroutine triggers it instead of being scheduled. This is the
// fast path reserved for ctx.Priority() >= InlinePriority, and only when no
// apartment was explicitly requested via On — an explicit apartment always
// wins, since the caller asked for it by name.
func (cfg postConfig) runsInline() bool {
	return cfg.apt == nil && cfg.ctx.Priority() >= asyncctx.InlinePriority
}

// effectiveApartment returns the apartment a non-inline continuation is
// scheduled on: the one given via On, or the process-wide default thread
// pool when none was specified — the module is asynchronous by default,
// the same way a future.Post with no options still hops off the caller's
// goroutine instead of running in place.
func (cfg postConfig) effectiveApartment() apartment.Apartment {
	if cfg.apt != nil {
		return cfg.apt
	}
	return apartment.DefaultThreadPool()
}

// dispatch wraps body with the context's ownership/cancellation checks and
// either runs it inline or schedules it on cfg's effective apartment,
// depending on cfg and the context's priority.
func dispatch(cfg postConfig, body func()) {
	wrapped := wrap(cfg, body)
	if cfg.runsInline() {
		wrapped()
		return
	}
	_, _ = cfg.effectiveApartment().Schedule(wrapped, cfg.priority)
}

// dispatchDelayed is like dispatch but holds body for delay before
// admitting it: a plain timer on the inline fast path, otherwise the delayed
// queue of cfg's effective apartment.
func dispatchDelayed(cfg postConfig, delay time.Duration, body func()) {
	wrapped := wrap(cfg, body)
	if cfg.runsInline() {
		time.AfterFunc(delay, wrapped)
		return
	}
	_, _ = cfg.effectiveApartment().ScheduleDelayed(wrapped, cfg.priority, delay)
}
