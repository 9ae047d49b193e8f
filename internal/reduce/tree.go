package reduce

import (
	"context"
	"fmt"

	"github.com/llnl/mpileaks/internal/handshake"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/transport"
)

// Reduce runs the binomial-tree merge described by spec.md §4.5: local is
// this rank's already-collected list; the return value is meaningful only
// on rank 0, where it holds the element-wise sum of every rank's local
// list, keyed by call-path. Every other rank returns nil once its single
// send completes. Every peer exchange is preceded by a handshake.Greet;
// a peer on an incompatible protocol version is excluded from the
// reduction rather than failing the whole job.
//
//	mask = 1
//	while mask < ranks:
//	  if (myrank & mask) == 0:
//	    src = myrank | mask
//	    if src < ranks: recv_list(src); merge_into_local()
//	  else:
//	    dest = myrank & ~mask
//	    send_list(dest); break
//	  mask <<= 1
func Reduce(ctx context.Context, job transport.Job, local []leakcheck.Entry) ([]leakcheck.Entry, error) {
	rank := job.Rank()
	ranks := job.PeerCount()

	acc := cloneSorted(local)

	for mask := 1; mask < ranks; mask <<= 1 {
		if rank&mask == 0 {
			src := rank | mask
			if src >= ranks {
				continue
			}
			peer, err := job.Accept(ctx)
			if err != nil {
				return nil, fmt.Errorf("reduce: accept from rank %d: %w", src, err)
			}
			compatible, err := handshake.Greet(ctx, peer, rank, ranks)
			if err != nil {
				_ = peer.Close()
				return nil, fmt.Errorf("reduce: handshake with rank %d: %w", src, err)
			}
			if !compatible {
				_ = peer.Close()
				continue
			}
			remote, err := recvList(ctx, peer)
			_ = peer.Close()
			if err != nil {
				return nil, fmt.Errorf("reduce: receive from rank %d: %w", src, err)
			}
			acc = Merge(acc, remote)
			continue
		}

		dest := rank &^ mask
		peer, err := job.Dial(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("reduce: dial rank %d: %w", dest, err)
		}
		compatible, err := handshake.Greet(ctx, peer, rank, ranks)
		if err != nil {
			_ = peer.Close()
			return nil, fmt.Errorf("reduce: handshake with rank %d: %w", dest, err)
		}
		if !compatible {
			_ = peer.Close()
			return nil, fmt.Errorf("reduce: rank %d speaks an incompatible protocol version", dest)
		}
		err = sendList(ctx, peer, acc)
		_ = peer.Close()
		if err != nil {
			return nil, fmt.Errorf("reduce: send to rank %d: %w", dest, err)
		}
		return nil, nil
	}

	if rank == 0 {
		sortByCountThenPath(acc)
		return acc, nil
	}
	return nil, nil
}

// sendList sends the packed list as a single Peer.SendBytes call; the
// byte count spec.md §4.5 sends as a separate message travels as the
// transport's frame length prefix instead (see recvList). The frame
// travels over the job's profiling-only peer channel, never through
// internal/interpose, so the exchange cannot recursively instrument
// itself.
func sendList(ctx context.Context, peer transport.Peer, entries []leakcheck.Entry) error {
	return peer.SendBytes(ctx, packList(entries))
}

// recvList is the receiving half of sendList: internal/transport already
// carries its own length prefix per frame, so the byte-count message
// described by the wire format is folded into the frame header rather
// than sent as a second round trip.
func recvList(ctx context.Context, peer transport.Peer) ([]leakcheck.Entry, error) {
	buf, err := peer.RecvBytes(ctx)
	if err != nil {
		return nil, err
	}
	return unpackList(buf)
}
