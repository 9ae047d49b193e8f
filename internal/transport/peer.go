// Package transport provides the peer-to-peer byte channel the reduction
// engine (internal/reduce) uses for its binomial-tree exchange. Spec.md
// treats the underlying message-passing library as an external
// collaborator; this package stands in for "the job-global communicator"
// spec.md §4.5 describes, without itself being instrumented by
// internal/interpose (spec.md §5's re-entrancy rule: the reduction's own
// traffic must never recurse into the accountants).
package transport

import "context"

// Peer is a single point-to-point channel to one other rank in the job.
// Dial returns a Peer already connected and ready for SendBytes/RecvBytes;
// the binomial tree in internal/reduce opens one Peer per exchange step.
type Peer interface {
	// SendBytes writes exactly one length-prefixed message.
	SendBytes(ctx context.Context, payload []byte) error
	// RecvBytes reads exactly one length-prefixed message.
	RecvBytes(ctx context.Context) ([]byte, error)
	// Close releases any resources held by the peer connection.
	Close() error
}

// Job abstracts "the job-global communicator": it knows this process's
// rank and the total peer count, and can dial a Peer connection to
// another rank by rank number.
type Job interface {
	Rank() int
	PeerCount() int
	Dial(ctx context.Context, rank int) (Peer, error)
	// Accept blocks for an inbound connection from any rank and returns
	// the Peer wrapping it. The remote rank is not reported.
	Accept(ctx context.Context) (Peer, error)
	Close() error
}
