// Package fiber is a low-level substrate for stackful cooperative execution.
//
// A [Fiber] is a suspendable unit of execution with its own full call stack,
// as opposed to a compiler-generated state machine. In a stackless, poll-based
// model, resuming logic nested N async calls deep walks back down through N
// poll functions from the root, and every nested frame may need its own
// allocation. A fiber pays none of that: nested calls are ordinary (even
// inlinable) function calls with zero suspend-resume overhead, in exchange
// for a fixed, larger cost at the moments a fiber actually switches away.
//
// # The Model
//
// A fiber is created with an [Entry] and an argument; creation never runs
// user code. The first [Fiber.Resume] switches into it and runs the entry;
// the fiber runs until it deliberately gives up control, either with
// [Fiber.Yield] (back to its resumer) or [Fiber.YieldTo] (directly into
// another fiber, no scheduler round-trip in between). Resume blocks, by
// definition of cooperative switching, until the fiber yields or its entry
// returns; the [Outcome] says which.
//
// There is no preemption. A fiber retains control until it explicitly
// switches away, and suspension happens exactly at Yield/YieldTo call sites,
// never implicitly. A resume happens-before the code that runs next inside
// the resumed fiber, and a yield happens-before the code after the matching
// Resume returns; no other ordering is implied between sibling fibers.
// Cross-fiber data shared outside these edges needs synchronization built
// above this package.
//
// # Stacks and the Pool
//
// Each fiber exclusively owns its stack; ownership is never shared, only
// transferred. The expensive part of a fiber's life is the stack bootstrap,
// so a [Pool] caches the stacks of terminated fibers: releasing a terminated
// fiber parks its worker, and a later [Pool.Acquire] re-targets the parked
// worker at a new entry point without a fresh bootstrap. Whether a fiber's
// stack is fresh or recycled is externally unobservable.
//
// [Fiber.Intercept] exposes the re-targeting primitive directly: a suspended
// fiber can be redirected to run some other function the next time it is
// switched into, after which control continues exactly as if the suspension
// had simply been resumed.
//
// # What This Package Does Not Do
//
// Deciding when to switch is the caller's job. This package has no run
// queue, no waker, no reactor and no fairness policy; an external scheduler
// consumes fibers as opaque switchable units. Likewise there is no
// cancellation: a fiber cannot be stopped from outside, only asked, by its
// own logic, to terminate.
//
// Misuse that a state tag can detect is reported as an error: resuming a
// running fiber ([ErrReentrant]), resuming a terminated one
// ([ErrTerminated]), intercepting a fiber that is not suspended
// ([ErrNotSuspended]). Misuse a tag cannot detect, such as racing two
// resumers for one fiber, is undefined behavior, exactly like the register
// level it stands in for; checking on every switch would defeat the purpose
// of the primitive.
//
// # Panics
//
// A panic inside an entry does not vanish into the fiber's goroutine: it is
// captured together with its stack trace and rethrown from the Resume call
// that was driving the fiber, so a scheduler sees panics from its fibers the
// same way it would see panics from plain function calls.
package fiber
