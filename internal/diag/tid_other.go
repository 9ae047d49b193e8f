//go:build !linux

package diag

import "os"

// threadID falls back to the process id on platforms without a cheap
// thread-id syscall; see tid_linux.go for the Linux implementation.
func threadID() int {
	return os.Getpid()
}
