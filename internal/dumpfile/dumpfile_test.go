package dumpfile

import (
	"path/filepath"
	"testing"

	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/leakcheck"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := []Peer{
		{
			Rank:     1,
			Definite: []leakcheck.Entry{{Path: callpath.Path{Frames: []callpath.Frame{{Function: "main.leak", Module: "main", Line: 10}}}, Count: 2}},
		},
		{
			Rank:     0,
			Possible: []leakcheck.Entry{{Path: callpath.Path{Frames: []callpath.Frame{{Function: "main.other", Module: "main", Line: 20}}}, Count: 1}},
		},
	}

	for _, p := range want {
		if err := Write(filepath.Join(dir, FileName(p.Rank)), p); err != nil {
			t.Fatalf("write rank %d: %v", p.Rank, err)
		}
	}

	got, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 peer dumps, got %d", len(got))
	}
	// ReadDir sorts by rank ascending.
	if got[0].Rank != 0 || got[1].Rank != 1 {
		t.Fatalf("expected ranks sorted [0,1], got [%d,%d]", got[0].Rank, got[1].Rank)
	}
	if len(got[1].Definite) != 1 || got[1].Definite[0].Count != 2 {
		t.Fatalf("expected rank 1's definite entry to survive the round trip, got %+v", got[1].Definite)
	}
	if got[1].Definite[0].Path.Frames[0].Function != "main.leak" {
		t.Fatalf("expected call-path frame to survive the round trip, got %+v", got[1].Definite[0].Path)
	}
}

func TestReadDirEmpty(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no dumps, got %+v", got)
	}
}
