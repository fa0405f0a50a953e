package fiber

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
)

// A panicstack collects panics raised on a fiber's stack so that they can be
// rethrown on the resumer's side of the switch, stack traces intact. Nested
// resumes rethrowing the same value aggregate into one chain.
type panicstack []panicitem

func (ps panicstack) Repanic() {
	if len(ps) != 0 {
		panic(&panicvalue{items: ps})
	}
}

func (ps *panicstack) Try(f func()) (ok bool) {
	defer func() {
		if !ok {
			v := recover()
			if v == nil {
				panic("fiber: fibers do not support runtime.Goexit()")
			}
			ps.push(v, debug.Stack())
		}
	}()
	f()
	return true
}

func (ps *panicstack) push(v any, stack []byte) {
	s := *ps
	n := len(s)
	repanicked := n != 0 && equal(v, s[n-1].value)
	s = append(s, panicitem{v, stack, repanicked})
	*ps = s
}

func equal(a, b any) bool {
	defer func() { _ = recover() }()
	return a == b
}

type panicitem struct {
	value      any
	stack      []byte
	repanicked bool
}

type panicvalue struct {
	items []panicitem
	errs  atomic.Pointer[[]error]
}

func (pv *panicvalue) Error() string {
	var b strings.Builder
	b.WriteString("as follows:")
	for i, p := range pv.items {
		fmt.Fprintf(&b, "\n(%d/%d) panic: %v", i+1, len(pv.items), p.value)
		if p.repanicked {
			b.WriteString(" (repanicked)")
		}
		if p.stack != nil {
			b.WriteString("\n\n")
			b.Write(p.stack)
		}
	}
	return b.String()
}

func (pv *panicvalue) Unwrap() []error {
	if p := pv.errs.Load(); p != nil {
		return *p
	}
	var errs []error
	for _, p := range pv.items {
		if err, ok := p.value.(error); ok {
			errs = append(errs, err)
		}
	}
	pv.errs.Store(&errs)
	return errs
}
