// Package dumpfile is the on-disk handoff format between cmd/mpileaks-sim
// (one JSON file per simulated peer) and cmd/mpileaks-report, which
// replays the §4.5 merge/sort/print pipeline over a directory of these
// files instead of a live job. It exists because a real deployment's
// ranks dump straight into the binomial-tree reduce over a live
// transport.Job; an offline report has no job to dial, so the peer
// lists have to cross a filesystem instead.
package dumpfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/llnl/mpileaks/internal/leakcheck"
)

// Peer is one rank's pre-reduction leak lists, exactly what that rank
// would otherwise have handed to internal/reduce.Reduce as its local
// argument.
type Peer struct {
	Rank         int               `json:"rank"`
	Definite     []leakcheck.Entry `json:"definite"`
	Possible     []leakcheck.Entry `json:"possible"`
	MissingAlloc []leakcheck.Entry `json:"missing_alloc"`
}

// Write marshals d as indented JSON to path.
func Write(path string, d Peer) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("dumpfile: marshal rank %d: %w", d.Rank, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FileName returns the conventional name mpileaks-sim writes and
// mpileaks-report globs for: one file per rank, sorted by rank when the
// directory is listed lexicographically for up to 10000 ranks.
func FileName(rank int) string {
	return fmt.Sprintf("peer-%04d.json", rank)
}

// ReadDir loads every *.json file in dir as a Peer dump, sorted by rank.
func ReadDir(dir string) ([]Peer, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("dumpfile: glob %s: %w", dir, err)
	}
	out := make([]Peer, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("dumpfile: read %s: %w", path, err)
		}
		var p Peer
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("dumpfile: parse %s: %w", path, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}
