package callpath

import (
	"runtime"
	"sync"
)

// Capturer is the lazily-instantiated stack-capture runtime. Spec.md §3
// requires the runtime to come up only after the host's own fault handlers
// are installed, and to be created once per process; Capturer models that
// with a sync.Once guarding the first Capture call.
type Capturer struct {
	once sync.Once
}

// NewCapturer constructs a Capturer. Construction itself does no work; the
// runtime is considered "instantiated" on first Capture, per spec.md.
func NewCapturer() *Capturer {
	return &Capturer{}
}

// Capture records the current call stack. Capture's own frame is never
// included: skip=0 starts the path at Capture's caller, and each further
// unit of skip drops one more frame above it.
func (c *Capturer) Capture(skip int) Path {
	c.once.Do(func() {})

	const maxFrames = 64
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return Path{}
	}

	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		fr, more := frames.Next()
		out = append(out, Frame{
			Function: fr.Function,
			File:     fr.File,
			Line:     fr.Line,
			PC:       fr.PC,
			Module:   moduleOf(fr.Function),
		})
		if !more {
			break
		}
	}
	return Path{Frames: out}
}

// moduleOf extracts the package path portion of a fully-qualified function
// name (e.g. "github.com/llnl/mpileaks/internal/leakcheck.(*Base).Allocate"
// yields "github.com/llnl/mpileaks/internal/leakcheck").
func moduleOf(fn string) string {
	lastSlash := -1
	for i := 0; i < len(fn); i++ {
		if fn[i] == '/' {
			lastSlash = i
		}
	}
	dot := -1
	for i := lastSlash + 1; i < len(fn); i++ {
		if fn[i] == '.' {
			dot = i
			break
		}
	}
	if dot == -1 {
		return fn
	}
	return fn[:dot]
}
