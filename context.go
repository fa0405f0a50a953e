package fiber

// A context is the unit of execution state saved and restored by a switch:
// everything needed to park the current execution and later continue it
// exactly where it left off.
//
// In this implementation the saved register file and stack pointer live in
// the runtime, attached to the goroutine that owns the context. What remains
// to represent here is the handoff cell the goroutine parks on, the start
// slot that arms the next entry point, and any intercepts queued to run when
// the context is next switched into.
//
// A context is only ever read by switchContext, and only ever written by
// setStart, pushIntercept and switchContext. It has no other accessors.
type context struct {
	// park is the one-slot handoff cell. Exactly one party holds the right
	// to wake a parked context at any instant; the buffer of one makes the
	// wake non-blocking for that holder, so there is no window between
	// unparking the target and parking the caller in which a third party
	// could run on either side.
	park chan struct{}

	// start is the armed entry point, the analog of writing the start
	// record at the top of a fresh stack. It is consumed by the worker
	// loop on the first switch in, and re-armed when a terminated worker
	// is rebound.
	start startslot

	// intercepts run in the owning goroutine immediately after it wakes,
	// before control returns to its suspension point. Written only by the
	// holder of the context's resume right while the context is suspended;
	// the handoff cell orders the writes before the reads.
	intercepts []interceptslot

	// halt tells a worker parked for rebinding to unwind instead.
	halt bool
}

type startslot struct {
	fn  func(f *Fiber, arg any)
	arg any
}

type interceptslot struct {
	fn  func(arg any)
	arg any
}

func newContext() *context {
	return &context{park: make(chan struct{}, 1)}
}

// setStart arms the entry point that the next switch into c will execute.
// Legal only while no worker is running between the slot and its park:
// on a fresh context before its worker is spawned, or on a context whose
// worker is parked for rebinding.
func (c *context) setStart(fn func(f *Fiber, arg any), arg any) {
	c.start = startslot{fn, arg}
}

func (c *context) takeStart() startslot {
	s := c.start
	c.start = startslot{}
	return s
}

// pushIntercept queues fn to run in c's goroutine the next time c is
// switched into, before c's own logic continues. The caller must hold c's
// resume right.
func (c *context) pushIntercept(fn func(arg any), arg any) {
	c.intercepts = append(c.intercepts, interceptslot{fn, arg})
}

// wake makes c runnable. It never blocks for the single holder of c's
// resume right.
func (c *context) wake() {
	c.park <- struct{}{}
}

// await parks the calling goroutine on c until some other context switches
// into it, then runs any queued intercepts before returning.
func (c *context) await() {
	<-c.park

	for len(c.intercepts) != 0 {
		s := c.intercepts[0]
		c.intercepts[0] = interceptslot{}
		c.intercepts = c.intercepts[1:]
		s.fn(s.arg)
	}
}

// switchContext is the symmetric cooperative handoff: it makes to runnable
// and parks the caller on from. It returns only when some other context
// later switches back into from, after running any intercepts queued on
// from in the meantime.
//
// switchContext cannot fail and does not allocate. Switching into a context
// whose resume right is held elsewhere, or one that has been torn down, is
// undefined behavior; callers guarantee validity beforehand.
func switchContext(from, to *context) {
	to.wake()
	from.await()
}
