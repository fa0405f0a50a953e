package fiber

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Logging is a cross-cutting concern: one process-wide logger, configured at
// startup, shared by all fibers and pools unless a [Pool] is given its own
// via [WithLogger]. A nil logger disables logging with no overhead; all
// events are emitted at trace level.

var pkglogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger sets the package-level logger. It accepts any logiface-backed
// logger, generified via its Logger method; nil disables logging.
//
// SetLogger is safe for concurrent use, though it is intended to be called
// once, at startup.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	pkglogger.Store(l)
}

// Logger returns the package-level logger, or nil if logging is disabled.
func Logger() *logiface.Logger[logiface.Event] {
	return pkglogger.Load()
}

func pkgLogger() *logiface.Logger[logiface.Event] {
	return pkglogger.Load()
}

func logCreate(l *logiface.Logger[logiface.Event], id uint64) {
	l.Trace().
		Uint64("fiber", id).
		Log("creating stack for fiber")
}

func logReuse(l *logiface.Logger[logiface.Event], id uint64, active, cached int) {
	l.Trace().
		Uint64("fiber", id).
		Int("active", active).
		Int("cached", cached).
		Log("reusing stack for fiber")
}

func logPreserve(l *logiface.Logger[logiface.Event], id uint64, active, cached int) {
	l.Trace().
		Uint64("fiber", id).
		Int("active", active).
		Int("cached", cached).
		Log("preserving fiber stack")
}

func logDrop(l *logiface.Logger[logiface.Event], id uint64, active, cached int) {
	l.Trace().
		Uint64("fiber", id).
		Int("active", active).
		Int("cached", cached).
		Log("dropping fiber stack")
}
