// Package handshake exchanges a protocol version and job topology
// between peers before the first reduction, a supplement spec.md's
// Non-goals don't exclude: the original tool never needed this because
// every rank in a job was always built from the same source tree.
package handshake

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/llnl/mpileaks/internal/diag"
	"github.com/llnl/mpileaks/internal/transport"
)

// ProtocolVersion is this build's wire-protocol version. Bumped on any
// change to the reduce package's wire format (internal/reduce/wire.go).
const ProtocolVersion = "1.0.0"

// constraint accepts any peer on the same major version as this build.
var constraint = mustConstraint("^" + ProtocolVersion)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("handshake: invalid built-in constraint %q: %v", s, err))
	}
	return c
}

// hello is exchanged verbatim over the peer channel by Greet, which
// internal/reduce.Reduce calls before every list exchange.
type hello struct {
	Protocol  string `json:"protocol"`
	Rank      int    `json:"rank"`
	PeerCount int    `json:"peer_count"`
}

// Greet sends this rank's hello and reads the peer's, returning false if
// the peer's protocol version is incompatible. An incompatible peer is
// not a fatal error: the caller is expected to exclude that peer's
// contribution from the reduction tree and log the reason, rather than
// block the whole job over a version skew.
//
// Both sides of a peer exchange call Greet symmetrically, so the send and
// receive must run concurrently: over a synchronous transport (see
// internal/transport.MemFabric), a straight-line send-then-receive would
// have both peers blocked in SendBytes waiting for a reader that is
// itself still blocked in its own SendBytes.
func Greet(ctx context.Context, peer transport.Peer, rank, peerCount int) (compatible bool, err error) {
	mine := hello{Protocol: ProtocolVersion, Rank: rank, PeerCount: peerCount}
	payload, err := json.Marshal(mine)
	if err != nil {
		return false, fmt.Errorf("handshake: marshal hello: %w", err)
	}

	var raw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return peer.SendBytes(gctx, payload)
	})
	g.Go(func() error {
		var err error
		raw, err = peer.RecvBytes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("handshake: exchange hello: %w", err)
	}

	var theirs hello
	if err := json.Unmarshal(raw, &theirs); err != nil {
		return false, fmt.Errorf("handshake: unmarshal hello: %w", err)
	}

	v, err := semver.NewVersion(theirs.Protocol)
	if err != nil {
		logger.Warn("peer rank %d sent unparseable protocol %q: %v", theirs.Rank, theirs.Protocol, err)
		return false, nil
	}
	if !constraint.Check(v) {
		logger.Warn("peer rank %d speaks incompatible protocol %s, excluding from reduction", theirs.Rank, theirs.Protocol)
		return false, nil
	}
	return true, nil
}

var logger = diag.NewLogger(true)
