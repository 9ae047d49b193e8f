package reduce

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/transport"
)

func pathNamed(fn string) callpath.Path {
	return callpath.Path{Frames: []callpath.Frame{{Function: fn, Module: "test", Line: 1}}}
}

func TestMergeSumsEqualPaths(t *testing.T) {
	a := []leakcheck.Entry{{Path: pathNamed("A"), Count: 2}, {Path: pathNamed("B"), Count: 1}}
	b := []leakcheck.Entry{{Path: pathNamed("A"), Count: 1}, {Path: pathNamed("C"), Count: 3}}

	got := Merge(cloneSorted(a), cloneSorted(b))
	want := map[string]int{"A": 3, "B": 1, "C": 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d (%+v)", len(want), len(got), got)
	}
	for _, e := range got {
		fn := e.Path.Frames[0].Function
		if e.Count != want[fn] {
			t.Fatalf("path %s: expected count %d, got %d", fn, want[fn], e.Count)
		}
	}
}

func TestMergeCommutative(t *testing.T) {
	a := []leakcheck.Entry{{Path: pathNamed("A"), Count: 2}}
	b := []leakcheck.Entry{{Path: pathNamed("A"), Count: 1}, {Path: pathNamed("B"), Count: 5}}

	ab := Merge(cloneSorted(a), cloneSorted(b))
	ba := Merge(cloneSorted(b), cloneSorted(a))

	if len(ab) != len(ba) {
		t.Fatalf("length mismatch: %d vs %d", len(ab), len(ba))
	}
	for i := range ab {
		if !ab[i].Path.Equal(ba[i].Path) || ab[i].Count != ba[i].Count {
			t.Fatalf("mismatch at %d: %+v vs %+v", i, ab[i], ba[i])
		}
	}
}

func TestPackUnpackListRoundTrip(t *testing.T) {
	entries := []leakcheck.Entry{
		{Path: pathNamed("A"), Count: 2},
		{Path: pathNamed("B"), Count: 7},
	}
	buf := packList(entries)
	got, err := unpackList(buf)
	if err != nil {
		t.Fatalf("unpackList: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i].Count != entries[i].Count || !got[i].Path.Equal(entries[i].Path) {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestPackUnpackEmptyList(t *testing.T) {
	buf := packList(nil)
	got, err := unpackList(buf)
	if err != nil {
		t.Fatalf("unpackList: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

// TestReduceTwoPeerMerge mirrors spec.md §8 scenario 6: peer 0 leaks
// {A:2, B:1}; peer 1 leaks {A:1, C:3}. Rank 0's reduced output must read
// A:3, C:3, B:1 (count descending, then path ascending).
func TestReduceTwoPeerMerge(t *testing.T) {
	fabric := transport.NewMemFabric(2)
	job0 := fabric.Job(0)
	job1 := fabric.Job(1)

	local0 := []leakcheck.Entry{{Path: pathNamed("A"), Count: 2}, {Path: pathNamed("B"), Count: 1}}
	local1 := []leakcheck.Entry{{Path: pathNamed("A"), Count: 1}, {Path: pathNamed("C"), Count: 3}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var result []leakcheck.Entry
	var resultErr, peerErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		result, resultErr = Reduce(ctx, job0, local0)
	}()
	go func() {
		defer wg.Done()
		_, peerErr = Reduce(ctx, job1, local1)
	}()
	wg.Wait()

	if resultErr != nil {
		t.Fatalf("rank 0 reduce: %v", resultErr)
	}
	if peerErr != nil {
		t.Fatalf("rank 1 reduce: %v", peerErr)
	}

	if len(result) != 3 {
		t.Fatalf("expected 3 merged entries, got %+v", result)
	}
	wantOrder := []string{"A", "C", "B"}
	wantCount := map[string]int{"A": 3, "C": 3, "B": 1}
	for i, e := range result {
		fn := e.Path.Frames[0].Function
		if fn != wantOrder[i] {
			t.Fatalf("position %d: expected %s, got %s (%+v)", i, wantOrder[i], fn, result)
		}
		if e.Count != wantCount[fn] {
			t.Fatalf("path %s: expected count %d, got %d", fn, wantCount[fn], e.Count)
		}
	}
}

func TestReportSuppressesEmptySections(t *testing.T) {
	var buf bytes.Buffer
	definite := []leakcheck.Entry{{Path: pathNamed("Leaky"), Count: 1}}

	if err := Report(&buf, definite, nil, nil); err != nil {
		t.Fatalf("Report: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "START REPORT") || !strings.Contains(out, "END REPORT") {
		t.Fatalf("missing report banners: %s", out)
	}
	if !strings.Contains(out, "START SECTION: LEAKED OBJECTS") {
		t.Fatalf("missing LEAKED OBJECTS section: %s", out)
	}
	if strings.Contains(out, "POSSIBLY LEAKED OBJECTS") || strings.Contains(out, "ALLOCATION CALL UNKNOWN") {
		t.Fatalf("empty sections must be suppressed: %s", out)
	}
	if !strings.Contains(out, "Count: 1") {
		t.Fatalf("expected a Count: 1 line: %s", out)
	}
}
