package asyncctx

import "github.com/google/uuid"

// InlinePriority is the reserved priority value meaning "run inline on the
// caller's goroutine if possible, instead of hopping through an apartment".
const InlinePriority = 0x10000

// Context is a small, immutable record carrying the ambient metadata every
// scheduled callback travels with: an owner handle, a cancellation
// controller, a parent chain, a priority, and an optional id used to
// correlate log lines (the teacher's example corpus — jkilzi and the
// tailored-agentic-units-kernel repo — uses google/uuid for exactly this
// kind of request/session correlation id).
//
// Context values are built with a copy-on-write builder: each With* method
// returns a new Context, leaving the receiver untouched.
type Context struct {
	id         uuid.UUID
	own        owner
	controller *CancelController
	parent     *Context
	priority   int
	location   string
}

// Empty is the context singleton with no owner, no controller, priority 0,
// and no parent.
var Empty = Context{}

// ID returns the context's correlation id, or uuid.Nil if none was attached
// with WithID or WithGeneratedID. No id is generated on access.
func (c Context) ID() uuid.UUID {
	if c.id == uuid.Nil {
		return uuid.Nil
	}
	return c.id
}

// WithID attaches an explicit correlation id, replacing any id already
// attached.
func (c Context) WithID(id uuid.UUID) Context {
	c.id = id
	return c
}

// WithGeneratedID attaches a freshly generated correlation id.
func (c Context) WithGeneratedID() Context {
	c.id = uuid.New()
	return c
}

// BindOwnerStrong returns a copy of c that keeps obj alive for the duration
// of any callback carrying the returned context.
func (c Context) BindOwnerStrong(obj any) Context {
	c.own = owner{kind: OwnerStrong, strong: obj}
	return c
}

// BindOwnerWeak returns a copy of c whose owner must be locked via tryLock
// before a callback runs; checkExpired reports liveness without locking.
func (c Context) BindOwnerWeak(checkExpired func() bool, tryLock func() (Locker, bool)) Context {
	c.own = owner{kind: OwnerWeak, weak: &weakOwner{checkExpired: checkExpired, tryLock: tryLock}}
	return c
}

// BindController returns a copy of c referencing the given cancellation
// controller.
func (c Context) BindController(ctrl *CancelController) Context {
	c.controller = ctrl
	return c
}

// BindParent returns a copy of c chained to parent; cancellation and
// expiration checks recurse up this chain.
func (c Context) BindParent(parent Context) Context {
	c.parent = &parent
	return c
}

// WithPriority returns a copy of c with the given advisory priority.
func (c Context) WithPriority(p int) Context {
	c.priority = p
	return c
}

// WithLocation returns a copy of c carrying a debugging source-location
// hint.
func (c Context) WithLocation(loc string) Context {
	c.location = loc
	return c
}

// Priority returns the context's advisory scheduling priority.
func (c Context) Priority() int { return c.priority }

// Location returns the debugging source-location hint, if any.
func (c Context) Location() string { return c.location }

// Controller returns the context's own cancellation controller, which may
// be nil even if an ancestor has one — use CheckCancelAll for the
// recursive check.
func (c Context) Controller() *CancelController { return c.controller }

// CheckCancelAll reports whether this context or any ancestor's controller
// has had CancelAll called.
func (c Context) CheckCancelAll() bool {
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.controller != nil && cur.controller.IsCancelled() {
			return true
		}
	}
	return false
}

// CheckOwnerExpired reports whether this context or any ancestor's weak
// owner reports itself expired.
func (c Context) CheckOwnerExpired() bool {
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.own.kind == OwnerWeak && cur.own.weak.checkExpired != nil && cur.own.weak.checkExpired() {
			return true
		}
	}
	return false
}

// LockOwner acquires a weak lock for every ancestor that has one. On
// success, the returned Locker must be released (via Unlock) before the
// callback body returns. On failure, any locks already acquired are
// released and the second return value is false — the caller must treat
// this exactly like a cancellation.
//
// If no ancestor requires locking, LockOwner returns NoLockNeeded, true.
func (c Context) LockOwner() (Locker, bool) {
	var held []Locker
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.own.kind != OwnerWeak || cur.own.weak.tryLock == nil {
			continue
		}
		l, ok := cur.own.weak.tryLock()
		if !ok {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].Unlock()
			}
			return nil, false
		}
		held = append(held, l)
	}
	if len(held) == 0 {
		return NoLockNeeded, true
	}
	return &multiLocker{held: held}, true
}

// EnterPending increments the pending-latch of every controller in the
// chain (this context's own and every ancestor's), so a caller Wait()-ing on
// any of them observes this callback as outstanding. A controller bound at
// several levels of the chain is incremented once per level.
func (c Context) EnterPending() {
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.controller != nil {
			cur.controller.Enter()
		}
	}
}

// LeavePending is the mirror of EnterPending and must be called exactly
// once per EnterPending call, after the callback body has finished.
func (c Context) LeavePending() {
	for cur := &c; cur != nil; cur = cur.parent {
		if cur.controller != nil {
			cur.controller.Leave()
		}
	}
}
