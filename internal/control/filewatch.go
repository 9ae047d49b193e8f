package control

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatchFile implements the optional file-based control channel: for
// hosts that cannot call back into process state directly (for example
// an operator driving the tool from a shell), writing a single digit
// (0, 1, or 2) to cfg.ControlFile is translated into the same
// enable/disable/dump levels spec.md §4.6 defines for the intercepted
// control hook. WatchFile blocks until ctx is done; callers run it in
// its own goroutine. Modeled on Orizon's fsnotify-backed
// internal/runtime/vfs file watcher.
func WatchFile(ctx context.Context, c *Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			level, ok := readLevel(path)
			if !ok {
				continue
			}
			if err := c.Control(ctx, level); err != nil {
				c.logger.Warn("control file %s requested level %d: %v", path, level, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("control file watch error: %v", err)
		}
	}
}

// readLevel reads and parses the sentinel file's contents as a single
// integer control level. Any content that doesn't parse to 0, 1, or 2
// is ignored, matching spec.md §6's "unknown levels are silently
// ignored" rule.
func readLevel(path string) (Level, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false
	}
	switch Level(n) {
	case LevelDisable, LevelEnable, LevelDump:
		return Level(n), true
	default:
		return 0, false
	}
}
