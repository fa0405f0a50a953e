package fiber

import "sync/atomic"

// An Entry is the piece of work a [Fiber] is given to run when it is first
// resumed. It receives the Fiber itself, so that it can suspend with
// [Fiber.Yield] or [Fiber.YieldTo], and the argument supplied at creation.
//
// Returning from an Entry terminates the Fiber; control then flows to
// whoever last resumed it. An Entry never falls off the end of its own
// stack, and must not call runtime.Goexit.
type Entry func(f *Fiber, arg any)

// State is the lifecycle state of a [Fiber].
type State uint32

const (
	// StateCreated: the fiber has an armed entry point and has never been
	// switched into.
	StateCreated State = iota
	// StateRunning: the fiber is the execution context currently running.
	StateRunning
	// StateSuspended: the fiber was switched away from and can be resumed.
	StateSuspended
	// StateTerminated: the entry function returned; the fiber can no
	// longer be resumed, only released to a [Pool].
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateTerminated:
		return "Terminated"
	default:
		return "Invalid"
	}
}

// Outcome reports how control came back from a [Fiber.Resume] call.
type Outcome uint8

const (
	// Yielded: the fiber deliberately gave up control and expects to be
	// resumed again later.
	Yielded Outcome = iota
	// Terminated: the entry function completed; the fiber is eligible for
	// releasing to a [Pool].
	Terminated
)

func (o Outcome) String() string {
	switch o {
	case Yielded:
		return "Yielded"
	case Terminated:
		return "Terminated"
	default:
		return "Invalid"
	}
}

const (
	flagRecyclable = 1 << iota
)

var fiberID atomic.Uint64

// A Fiber is an independently stacked, cooperatively scheduled unit of
// execution, similar to a goroutine but switched explicitly rather than by
// the scheduler.
//
// A Fiber is created with an [Entry] and an argument. Creation never runs
// user code; the first [Fiber.Resume] does. Inside the entry, the Fiber can
// suspend itself with [Fiber.Yield], handing control back to its resumer, or
// with [Fiber.YieldTo], handing control directly to another fiber without
// unwinding to a scheduler in between. Nested calls inside a fiber are
// ordinary function calls; the only switching cost is paid at the explicit
// yield points.
//
// Exactly one party holds a fiber's resume right at a time. Resuming a
// fiber that is already running is detected and reported as [ErrReentrant];
// resuming one mid-switch from another goroutine is a data race the state
// tag cannot always observe, and is undefined behavior.
//
// A Fiber is driven by a dedicated goroutine whose stack it exclusively
// owns. A Created fiber that is never resumed, and never released to a
// [Pool], keeps that goroutine parked for the lifetime of the process:
// always resume what you create.
type Fiber struct {
	id    uint64
	flag  uint8
	state atomic.Uint32

	// self is the fiber's own context; home is the context its resumer
	// parks on, and the completion context its termination switches to.
	self *context
	home *context

	ps panicstack

	pool *Pool
	// released marks a fiber currently sitting in its pool's cache (or
	// dropped by it). Guarded by pool.mu.
	released bool
}

// Create constructs a [Fiber] in the [StateCreated] state, bound to entry
// and arg. It never executes user code synchronously.
//
// Fibers obtained this way own a fresh stack; to amortize stack allocation
// across many short-lived fibers, use a [Pool].
func Create(entry Entry, arg any) *Fiber {
	if entry == nil {
		panic("fiber: Create(nil): undefined behavior")
	}

	f := newFiber(entry, arg)

	logCreate(pkgLogger(), f.id)

	return f
}

func newFiber(entry Entry, arg any) *Fiber {
	f := &Fiber{
		id:   fiberID.Add(1),
		self: newContext(),
		home: newContext(),
	}
	f.self.setStart(entry, arg)

	go f.run()

	return f
}

func (f *Fiber) recyclable() *Fiber {
	f.flag |= flagRecyclable
	return f
}

// ID returns an identifier unique to f for the process lifetime.
// It survives recycling by a [Pool]; a rebound fiber keeps its ID.
func (f *Fiber) ID() uint64 {
	return f.id
}

// State returns the lifecycle state of f.
//
// The value is a snapshot; without holding f's resume right it may be stale
// by the time it is observed.
func (f *Fiber) State() State {
	return State(f.state.Load())
}

// run is the worker loop: the analog of the architecture-level start
// trampoline. It parks until the first switch in, runs the armed entry, and
// reports termination to the home context. A recyclable worker then parks
// again, waiting to be rebound by a [Pool]; any other worker unwinds,
// releasing its stack.
func (f *Fiber) run() {
	c := f.self

	goexit := true
	defer func() {
		if !goexit {
			return
		}
		// A runtime.Goexit escaped the entry; recovering its conversion
		// panic does not stop the unwind. The worker is gone, so settle
		// the pool accounting, detach, and report termination, letting
		// the resumer rethrow instead of parking forever.
		if p := f.pool; p != nil {
			p.mu.Lock()
			f.released = true
			p.active--
			p.mu.Unlock()
			f.pool = nil
		}
		f.state.Store(uint32(StateTerminated))
		f.home.wake()
	}()

	for {
		c.await()

		if c.halt {
			goexit = false
			return
		}

		s := c.takeStart()
		if s.fn == nil {
			// The poisoned return slot: a context switched into
			// without an armed entry point traps deterministically
			// instead of running garbage.
			panic("fiber: context switched into without an entry point")
		}

		f.invoke(s)

		f.state.Store(uint32(StateTerminated))
		f.home.wake()

		if f.flag&flagRecyclable == 0 {
			goexit = false
			return
		}
	}
}

// invoke runs the entry under the panic catcher. Panics raised on the fiber
// stack are captured with their stack trace and rethrown later, on the
// resumer's side of the switch. A runtime.Goexit from the entry is converted
// into a panic by the catcher; the outer recover captures it, and the guard
// in run reports the termination once the unwind completes.
func (f *Fiber) invoke(s startslot) {
	defer func() {
		if v := recover(); v != nil {
			f.ps.push(v, nil)
		}
	}()
	f.ps.Try(func() { s.fn(f, s.arg) })
}

// Resume switches from the caller's execution context into f, and blocks
// until f yields or terminates. The outcome reports which of the two
// happened.
//
// Resume returns [ErrReentrant] if f is already running, and
// [ErrTerminated] if f's entry has completed. If the entry panicked, Resume
// rethrows the panic, annotated with the stack captured on the fiber.
//
// Resume must only be called by the single holder of f's resume right.
func (f *Fiber) Resume() (Outcome, error) {
	for {
		switch s := State(f.state.Load()); s {
		case StateCreated, StateSuspended:
			if !f.state.CompareAndSwap(uint32(s), uint32(StateRunning)) {
				continue
			}

			switchContext(f.home, f.self)

			if ps := f.ps; len(ps) != 0 {
				f.ps = nil
				ps.Repanic()
			}

			if State(f.state.Load()) == StateTerminated {
				return Terminated, nil
			}
			return Yielded, nil
		case StateRunning:
			return 0, ErrReentrant
		case StateTerminated:
			return 0, ErrTerminated
		default:
			panic("fiber: internal error: unknown state")
		}
	}
}

// Yield suspends f and switches control back to whoever last resumed it.
// The matching [Fiber.Resume] call returns [Yielded]. Yield returns when f
// is next resumed, after running any intercepts queued in the meantime.
//
// Yield requires a parked resumer to hand control to. A fiber entered only
// through [Fiber.YieldTo] has none; yielding there deadlocks the chain.
//
// Yield must be called from inside f's entry; calling it from anywhere else
// is a programming error.
func (f *Fiber) Yield() {
	if State(f.state.Load()) != StateRunning {
		panic("fiber: Yield outside a running fiber: undefined behavior")
	}

	f.state.Store(uint32(StateSuspended))
	switchContext(f.self, f.home)
}

// YieldTo suspends f and switches control directly into to, without
// unwinding to f's resumer. to must be [StateCreated] or [StateSuspended];
// its resume right transfers to this handoff. The home contexts of both
// fibers are untouched: when either fiber later terminates, control still
// flows to its own last resumer.
//
// A fiber that has only ever been entered through YieldTo has no resumer
// parked on its home context. If it calls [Fiber.Yield] or terminates in
// that condition, the handoff wakes a context nobody holds and the resume
// chain deadlocks: every fiber entered this way must route control back,
// through further YieldTo handoffs, into a fiber whose resumer is waiting.
//
// YieldTo must be called from inside f's entry. Switching into a fiber that
// is running or terminated is a programming error.
func (f *Fiber) YieldTo(to *Fiber) {
	if State(f.state.Load()) != StateRunning {
		panic("fiber: YieldTo outside a running fiber: undefined behavior")
	}
	if to == f {
		panic("fiber: YieldTo(self): undefined behavior")
	}

	for {
		s := State(to.state.Load())
		if s != StateCreated && s != StateSuspended {
			panic("fiber: YieldTo: target is " + s.String() + ": undefined behavior")
		}
		if to.state.CompareAndSwap(uint32(s), uint32(StateRunning)) {
			break
		}
	}

	f.state.Store(uint32(StateSuspended))
	switchContext(f.self, to.self)
}

// Intercept arranges for fn(arg) to run on f's stack the next time f is
// switched into, before f's own logic continues from its suspension point.
// Once fn completes, control flows exactly as if the suspension had simply
// been resumed.
//
// Intercept is legal only while f is [StateSuspended]; it returns
// [ErrNotSuspended] otherwise, including for fibers that were created but
// never started. The caller must hold f's resume right.
func (f *Fiber) Intercept(fn func(arg any), arg any) error {
	if fn == nil {
		panic("fiber: Intercept(nil): undefined behavior")
	}
	if State(f.state.Load()) != StateSuspended {
		return ErrNotSuspended
	}

	f.self.pushIntercept(fn, arg)

	return nil
}
