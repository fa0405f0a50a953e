package fiber

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// A Pool caches the stacks of terminated fibers for reuse, bounding the
// allocation churn of workloads that create many short-lived fibers.
//
// A fiber acquired from a Pool behaves exactly like one from [Create]; the
// only difference is where its stack came from. On the cheap path, a cached
// worker is rebound to the new entry point through its start slot, paying
// none of the bootstrap cost; otherwise a fresh stack is allocated. The two
// paths are externally indistinguishable.
//
// The cache is bounded: by [WithCapacity] when configured, else by an
// adaptive ideal that tracks the number of in-flight fibers. Excess releases
// drop the stack instead of caching it.
//
// A Pool is safe for concurrent use. When contention matters, prefer one
// Pool per worker thread; fibers do not migrate, so nothing is lost.
//
// The zero Pool is ready to use.
type Pool struct {
	mu     sync.Mutex
	cache  []*Fiber
	active int

	capacity  int
	maxActive int
	logger    *logiface.Logger[logiface.Event]
}

// A PoolOption configures a [Pool].
type PoolOption func(p *Pool)

// WithCapacity bounds the number of cached stacks to n, replacing the
// adaptive default. Releasing a fiber while the cache is full drops its
// stack.
func WithCapacity(n int) PoolOption {
	return func(p *Pool) { p.capacity = n }
}

// WithMaxActive bounds the number of in-flight fibers acquired from the
// pool to n. [Pool.Acquire] reports [ErrAllocation] once the budget is
// exhausted; [Pool.Release] restores it.
func WithMaxActive(n int) PoolOption {
	return func(p *Pool) { p.maxActive = n }
}

// WithLogger gives the pool its own logger, overriding the package-level
// one.
func WithLogger(l *logiface.Logger[logiface.Event]) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// NewPool creates a [Pool] with the given options.
func NewPool(opts ...PoolOption) *Pool {
	p := new(Pool)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) log() *logiface.Logger[logiface.Event] {
	if p.logger != nil {
		return p.logger
	}
	return pkgLogger()
}

// ideal is the cache bound. The adaptive default keeps a fifth of the
// in-flight count plus a modest floor; stack reuse locality is low, so a
// fancier policy buys little.
func (p *Pool) ideal() int {
	if p.capacity > 0 {
		return p.capacity
	}
	return p.active/5 + 16
}

// Acquire returns a fiber in the [StateCreated] state, bound to entry and
// arg and ready for [Fiber.Resume]. It prefers rebinding a cached stack;
// failing that, it allocates a fresh one.
//
// Acquire reports [ErrAllocation] when the pool's [WithMaxActive] budget is
// exhausted.
func (p *Pool) Acquire(entry Entry, arg any) (*Fiber, error) {
	if entry == nil {
		panic("fiber: Acquire(nil): undefined behavior")
	}

	p.mu.Lock()

	if p.maxActive > 0 && p.active >= p.maxActive {
		p.mu.Unlock()
		return nil, ErrAllocation
	}
	p.active++

	var f *Fiber
	if n := len(p.cache); n != 0 {
		f = p.cache[n-1]
		p.cache[n-1] = nil
		p.cache = p.cache[:n-1]
		f.released = false
	}

	active, cached := p.active, len(p.cache)
	p.mu.Unlock()

	if f != nil {
		// The cheap path: the worker is parked at its context; arming
		// the start slot re-targets it without a fresh bootstrap.
		f.ps = nil
		f.self.setStart(entry, arg)
		f.state.Store(uint32(StateCreated))
		logReuse(p.log(), f.id, active, cached)
		return f, nil
	}

	f = newFiber(entry, arg).recyclable()
	f.pool = p
	logCreate(p.log(), f.id)
	return f, nil
}

// Release returns a terminated fiber's stack to the pool: cached if the
// cache is below its bound, dropped otherwise. Fibers that have not
// terminated, that the pool did not hand out, or that were already released
// are refused with [ErrNotReleasable].
//
// A released fiber must not be resumed or intercepted again by the caller;
// its stack may already be running someone else's entry.
func (p *Pool) Release(f *Fiber) error {
	if f == nil || f.pool != p || f.State() != StateTerminated {
		return ErrNotReleasable
	}

	p.mu.Lock()

	if f.released {
		p.mu.Unlock()
		return ErrNotReleasable
	}
	f.released = true
	p.active--

	preserve := len(p.cache) < p.ideal()
	if preserve {
		p.cache = append(p.cache, f)
	}

	active, cached := p.active, len(p.cache)
	p.mu.Unlock()

	if preserve {
		logPreserve(p.log(), f.id, active, cached)
		return nil
	}

	f.self.halt = true
	f.self.wake()
	logDrop(p.log(), f.id, active, cached)
	return nil
}

// Drain drops every cached stack, unwinding their workers. In-flight fibers
// are unaffected; stacks released after a Drain are cached again as usual.
func (p *Pool) Drain() {
	p.mu.Lock()
	cache := p.cache
	p.cache = nil
	active := p.active
	p.mu.Unlock()

	l := p.log()
	for i, f := range cache {
		f.self.halt = true
		f.self.wake()
		logDrop(l, f.id, active, len(cache)-i-1)
	}
}

// Active returns the number of in-flight fibers acquired from p and not yet
// released.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Cached returns the number of stacks currently cached.
func (p *Pool) Cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}
