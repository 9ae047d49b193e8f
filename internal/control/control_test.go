package control

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/llnl/mpileaks/internal/config"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/transport"
)

// singleRankJob satisfies transport.Job for a one-peer process: dump
// reduction is a no-op pass-through when PeerCount is 1 (see
// Context.reduceList), so Dial/Accept are never actually invoked here.
type singleRankJob struct{}

func (singleRankJob) Rank() int      { return 0 }
func (singleRankJob) PeerCount() int { return 1 }
func (singleRankJob) Dial(ctx context.Context, rank int) (transport.Peer, error) {
	panic("not reached: single-rank job never dials")
}
func (singleRankJob) Accept(ctx context.Context) (transport.Peer, error) {
	panic("not reached: single-rank job never accepts")
}
func (singleRankJob) Close() error { return nil }

func TestInitSetsEnabledAndDepth(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{StackDepth: 3}
	c := Init(singleRankJob{}, cfg, &buf)

	if !c.Enabled() {
		t.Fatalf("expected Init to enable accounting")
	}
	if got := c.Depth(); got != 3 {
		t.Fatalf("expected depth 3, got %d", got)
	}
}

func TestControlDisableEnable(t *testing.T) {
	var buf bytes.Buffer
	c := Init(singleRankJob{}, config.Config{StackDepth: -1}, &buf)

	ctx := context.Background()
	if err := c.Control(ctx, LevelDisable); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled after LevelDisable")
	}

	if err := c.Control(ctx, LevelEnable); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !c.Enabled() {
		t.Fatalf("expected enabled after LevelEnable")
	}
}

func TestControlUnknownLevelIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	c := Init(singleRankJob{}, config.Config{StackDepth: -1}, &buf)

	if err := c.Control(context.Background(), Level(99)); err != nil {
		t.Fatalf("expected unknown level to be silently ignored, got %v", err)
	}
	if !c.Enabled() {
		t.Fatalf("unknown level must not change enabled state")
	}
}

func TestFinalizeDumpsAndDisables(t *testing.T) {
	var buf bytes.Buffer
	c := Init(singleRankJob{}, config.Config{StackDepth: -1}, &buf)

	acc := leakcheck.NewSingleAccountant(nil, "test.control.finalize", func() int { return -1 }, func(h uint64) bool { return h == 0 })
	acc.Allocate(123, 0)

	if err := c.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled after finalize")
	}
	out := buf.String()
	if !strings.Contains(out, "START REPORT") {
		t.Fatalf("expected a report to be printed on rank 0, got %q", out)
	}
	if !strings.Contains(out, "LEAKED OBJECTS") {
		t.Fatalf("expected the leak recorded above to surface in the report, got %q", out)
	}
}

func TestReadLevelIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/control"
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := readLevel(path); ok {
		t.Fatalf("expected garbage content to be rejected")
	}
}

func TestWatchFileTranslatesWriteToControlLevel(t *testing.T) {
	var buf bytes.Buffer
	c := Init(singleRankJob{}, config.Config{StackDepth: -1}, &buf)

	dir := t.TempDir()
	path := dir + "/control"
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, c, path) }()

	if err := c.Control(context.Background(), LevelDisable); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled before watch write lands")
	}

	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Enabled() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !c.Enabled() {
		t.Fatalf("expected control file write to re-enable accounting")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected WatchFile to return context.Canceled, got %v", err)
	}
}

func TestReadLevelParsesKnownLevels(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/control"
	if err := os.WriteFile(path, []byte("2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	level, ok := readLevel(path)
	if !ok || level != LevelDump {
		t.Fatalf("expected LevelDump, got %v ok=%v", level, ok)
	}
}
