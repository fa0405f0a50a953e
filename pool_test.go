package fiber_test

import (
	"runtime"
	"testing"

	"github.com/b97tsk/fiber"
	"github.com/stretchr/testify/require"
)

func runToCompletion(t *testing.T, f *fiber.Fiber) {
	t.Helper()

	outcome, err := f.Resume()
	require.NoError(t, err)
	require.Equal(t, fiber.Terminated, outcome)
}

func TestPoolReuse(t *testing.T) {
	p := fiber.NewPool()

	var first, second bool

	f1, err := p.Acquire(func(_ *fiber.Fiber, _ any) { first = true }, nil)
	require.NoError(t, err)
	require.Equal(t, 1, p.Active())

	runToCompletion(t, f1)
	require.True(t, first)
	require.NoError(t, p.Release(f1))
	require.Equal(t, 0, p.Active())
	require.Equal(t, 1, p.Cached())

	// The recycled stack must bootstrap an unrelated entry just as a
	// fresh one would.
	f2, err := p.Acquire(func(_ *fiber.Fiber, arg any) { second = arg.(bool) }, true)
	require.NoError(t, err)
	require.Equal(t, 0, p.Cached())
	require.Equal(t, f1.ID(), f2.ID(), "expected the cached stack to be reused")

	runToCompletion(t, f2)
	require.True(t, second)
	require.NoError(t, p.Release(f2))
}

func TestPoolReuseYields(t *testing.T) {
	p := fiber.NewPool()

	f, err := p.Acquire(func(f *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f)
	require.NoError(t, p.Release(f))

	// A rebound fiber must be able to yield and resume like any other.
	var seq []int

	f, err = p.Acquire(func(f *fiber.Fiber, _ any) {
		seq = append(seq, 1)
		f.Yield()
		seq = append(seq, 2)
	}, nil)
	require.NoError(t, err)

	outcome, err := f.Resume()
	require.NoError(t, err)
	require.Equal(t, fiber.Yielded, outcome)

	runToCompletion(t, f)
	require.Equal(t, []int{1, 2}, seq)
	require.NoError(t, p.Release(f))
}

func TestPoolCapacity(t *testing.T) {
	const capacity = 2
	const total = 5

	p := fiber.NewPool(fiber.WithCapacity(capacity))

	fibers := make([]*fiber.Fiber, total)
	for i := range fibers {
		f, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
		require.NoError(t, err)
		fibers[i] = f
	}
	require.Equal(t, total, p.Active())

	for _, f := range fibers {
		runToCompletion(t, f)
		require.NoError(t, p.Release(f))
		require.LessOrEqual(t, p.Cached(), capacity)
	}

	require.Equal(t, 0, p.Active())
	require.Equal(t, capacity, p.Cached())

	// The pool must still hand out usable fibers at capacity.
	var ran bool
	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) { ran = true }, nil)
	require.NoError(t, err)
	runToCompletion(t, f)
	require.True(t, ran)
	require.NoError(t, p.Release(f))
}

func TestPoolMaxActive(t *testing.T) {
	p := fiber.NewPool(fiber.WithMaxActive(1))

	f1, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)

	_, err = p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.ErrorIs(t, err, fiber.ErrAllocation)

	runToCompletion(t, f1)
	require.NoError(t, p.Release(f1))

	f2, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f2)
	require.NoError(t, p.Release(f2))
}

func TestPoolRelease(t *testing.T) {
	p := fiber.NewPool()

	// Not terminated.
	f, err := p.Acquire(func(f *fiber.Fiber, _ any) { f.Yield() }, nil)
	require.NoError(t, err)
	require.ErrorIs(t, p.Release(f), fiber.ErrNotReleasable)

	outcome, err := f.Resume()
	require.NoError(t, err)
	require.Equal(t, fiber.Yielded, outcome)
	require.ErrorIs(t, p.Release(f), fiber.ErrNotReleasable)

	runToCompletion(t, f)
	require.NoError(t, p.Release(f))

	// Released twice.
	require.ErrorIs(t, p.Release(f), fiber.ErrNotReleasable)

	// Not owned by the pool.
	plain := fiber.Create(func(_ *fiber.Fiber, _ any) {}, nil)
	runToCompletion(t, plain)
	require.ErrorIs(t, p.Release(plain), fiber.ErrNotReleasable)

	other := fiber.NewPool()
	require.ErrorIs(t, other.Release(f), fiber.ErrNotReleasable)

	require.ErrorIs(t, p.Release(nil), fiber.ErrNotReleasable)
}

func TestPoolDrain(t *testing.T) {
	p := fiber.NewPool()

	fibers := make([]*fiber.Fiber, 3)
	for i := range fibers {
		f, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
		require.NoError(t, err)
		fibers[i] = f
	}
	for _, f := range fibers {
		runToCompletion(t, f)
		require.NoError(t, p.Release(f))
	}
	require.Equal(t, 3, p.Cached())

	p.Drain()
	require.Equal(t, 0, p.Cached())

	// The pool keeps working after a drain.
	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f)
	require.NoError(t, p.Release(f))
	require.Equal(t, 1, p.Cached())
}

func TestPoolReleaseAfterPanic(t *testing.T) {
	p := fiber.NewPool(fiber.WithCapacity(1))

	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) { panic("boom") }, nil)
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		_, _ = f.Resume()
	}()

	require.Equal(t, fiber.StateTerminated, f.State())
	require.NoError(t, p.Release(f))

	// The recycled stack must not replay any of the panicked entry.
	var ran bool
	f2, err := p.Acquire(func(_ *fiber.Fiber, _ any) { ran = true }, nil)
	require.NoError(t, err)
	require.Equal(t, f.ID(), f2.ID())
	runToCompletion(t, f2)
	require.True(t, ran)
	require.NoError(t, p.Release(f2))
}

func TestPoolGoexit(t *testing.T) {
	p := fiber.NewPool(fiber.WithMaxActive(1))

	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) { runtime.Goexit() }, nil)
	require.NoError(t, err)

	func() {
		defer func() { require.NotNil(t, recover()) }()
		_, _ = f.Resume()
		t.Error("Resume did not report the runtime.Goexit.")
	}()

	// The worker is gone and its stack with it: the fiber is no longer
	// releasable, but the budget slot it held must not leak.
	require.Equal(t, fiber.StateTerminated, f.State())
	require.ErrorIs(t, p.Release(f), fiber.ErrNotReleasable)
	require.Equal(t, 0, p.Active())
	require.Equal(t, 0, p.Cached())

	var ran bool
	f2, err := p.Acquire(func(_ *fiber.Fiber, _ any) { ran = true }, nil)
	require.NoError(t, err)
	runToCompletion(t, f2)
	require.True(t, ran)
	require.NoError(t, p.Release(f2))
}

func TestPoolZeroValue(t *testing.T) {
	var p fiber.Pool

	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f)
	require.NoError(t, p.Release(f))
	require.Equal(t, 1, p.Cached())
}
