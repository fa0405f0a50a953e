package fiber

import "errors"

var (
	// ErrReentrant is returned by [Fiber.Resume] when the fiber is already
	// running: exactly one holder of the resume right at a time.
	ErrReentrant = errors.New("fiber: resume of a running fiber")

	// ErrTerminated is returned by [Fiber.Resume] when the fiber's entry
	// function has completed; its context is no longer switchable.
	ErrTerminated = errors.New("fiber: resume of a terminated fiber")

	// ErrAllocation is returned by [Pool.Acquire] when the pool's active
	// fiber budget is exhausted and no stack can be obtained.
	ErrAllocation = errors.New("fiber: fiber budget exhausted")

	// ErrNotSuspended is returned by [Fiber.Intercept] when the fiber is
	// not suspended; re-targeting is only legal from a suspension point.
	ErrNotSuspended = errors.New("fiber: intercept of a fiber that is not suspended")

	// ErrNotReleasable is returned by [Pool.Release] for fibers that have
	// not terminated, or that the pool does not own.
	ErrNotReleasable = errors.New("fiber: release of a fiber not eligible for pooling")
)
