package fiber_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/b97tsk/fiber"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}

func TestPoolLogging(t *testing.T) {
	var buf bytes.Buffer

	p := fiber.NewPool(
		fiber.WithLogger(newTestLogger(&buf)),
		fiber.WithCapacity(1),
	)

	f1, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	f2, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)

	runToCompletion(t, f1)
	runToCompletion(t, f2)
	require.NoError(t, p.Release(f1)) // preserved
	require.NoError(t, p.Release(f2)) // cache full: dropped

	f3, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f3)
	require.NoError(t, p.Release(f3))

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, `"msg":"creating stack for fiber"`))
	require.Contains(t, out, `"msg":"preserving fiber stack"`)
	require.Contains(t, out, `"msg":"dropping fiber stack"`)
	require.Contains(t, out, `"msg":"reusing stack for fiber"`)
}

func TestPackageLogger(t *testing.T) {
	require.Nil(t, fiber.Logger())

	var buf bytes.Buffer

	fiber.SetLogger(newTestLogger(&buf))
	defer fiber.SetLogger(nil)
	require.NotNil(t, fiber.Logger())

	f := fiber.Create(func(_ *fiber.Fiber, _ any) {}, nil)
	runToCompletion(t, f)

	require.Contains(t, buf.String(), `"msg":"creating stack for fiber"`)
}

func TestLoggingDisabled(t *testing.T) {
	// A nil logger must be a no-op, not a nil dereference.
	p := fiber.NewPool(fiber.WithCapacity(1))

	f, err := p.Acquire(func(_ *fiber.Fiber, _ any) {}, nil)
	require.NoError(t, err)
	runToCompletion(t, f)
	require.NoError(t, p.Release(f))
}
