// Package diag provides the logging and internal-error reporting shared by
// every mpileaks package, in the same bracketed-line style Orizon's CLI
// tools use (internal/cli.Logger in the teacher repo), plus a Fault value
// modeled on Orizon's internal/errors.StandardError for the "must be
// logged, must not crash" conditions spec.md §7 describes.
package diag

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// Logger writes bracketed, timestamped lines to stderr, gated by Verbose
// for informational output. Internal errors always print regardless of
// verbosity, per spec.md §7.
type Logger struct {
	Verbose bool
}

// NewLogger constructs a Logger.
func NewLogger(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

// Info logs an informational message, only when Verbose is set.
func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil || !l.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "[INFO] %s: %s\n", stamp(), fmt.Sprintf(format, args...))
}

// Warn logs a warning unconditionally.
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s: %s\n", stamp(), fmt.Sprintf(format, args...))
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

// Category classifies an internal-error Fault, per spec.md §7 kind 4.
type Category string

const (
	CategoryUnderflow  Category = "UNDERFLOW"
	CategoryDuplicate  Category = "DUPLICATE_HANDLE"
	CategoryNegative   Category = "NEGATIVE_COUNT"
	CategoryStackTrace Category = "STACK_CAPTURE"
)

// Fault is a non-fatal internal inconsistency. Faults are never returned
// to a host caller (spec.md §7: "all errors are absorbed locally"); they
// are logged through Report and discarded.
type Fault struct {
	Category Category
	Message  string
	Caller   string
}

// NewFault builds a Fault, capturing the caller of NewFault's caller (the
// site that detected the inconsistency) for context.
func NewFault(category Category, format string, args ...interface{}) *Fault {
	caller := "unknown"
	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}
	return &Fault{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Caller:   caller,
	}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("[%s] %s (caller: %s)", f.Category, f.Message, f.Caller)
}

var faultCount int64

// FaultCount returns the number of internal errors reported so far via
// Report. Tests use this to assert that a robustness path was taken
// without crashing, without having to capture stderr.
func FaultCount() int64 {
	return atomic.LoadInt64(&faultCount)
}

// Report writes a Fault to stderr prefixed "mpileaks: Internal Error:" as
// spec.md §7 requires, and returns. It never panics.
func Report(f *Fault) {
	atomic.AddInt64(&faultCount, 1)
	fmt.Fprintf(os.Stderr, "mpileaks: Internal Error: %s [tid=%d]\n", f.Error(), threadID())
}

// Internal is a convenience wrapper combining NewFault and Report.
func Internal(category Category, format string, args ...interface{}) {
	f := NewFault(category, format, args...)
	f.Caller = callerOfCaller()
	Report(f)
}

func callerOfCaller() string {
	caller := "unknown"
	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}
	return caller
}
