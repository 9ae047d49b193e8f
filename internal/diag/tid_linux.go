//go:build linux

package diag

import "golang.org/x/sys/unix"

// threadID returns the OS thread id of the calling goroutine's underlying
// thread, used to tag internal-error lines with the same kind of
// process-identifying context Orizon's StandardError.Caller captures via
// runtime.Caller. Best-effort: Go goroutines can migrate between OS
// threads, so this is a hint for log correlation, not a stable identity.
func threadID() int {
	return unix.Gettid()
}
