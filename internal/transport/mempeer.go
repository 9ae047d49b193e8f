package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
)

// MemFabric is an in-process transport for internal/reduce's tests and for
// cmd/mpileaks-sim, which fabricates a whole job's worth of ranks inside
// one process to exercise the binomial-tree merge without actually
// launching separate processes. Every Dial/Accept pair is backed by an
// in-memory net.Pipe, so the wire framing in framing.go still runs, just
// without touching a socket.
type MemFabric struct {
	mu      sync.Mutex
	inbox   map[int]chan net.Conn
	peerCnt int
}

// NewMemFabric builds a fabric shared by peerCount in-process ranks.
func NewMemFabric(peerCount int) *MemFabric {
	return &MemFabric{
		inbox:   make(map[int]chan net.Conn),
		peerCnt: peerCount,
	}
}

// Job returns the Job view of the fabric for a single rank.
func (f *MemFabric) Job(rank int) *MemJob {
	return &MemJob{fabric: f, rank: rank}
}

func (f *MemFabric) channel(to int) chan net.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.inbox[to]
	if !ok {
		ch = make(chan net.Conn)
		f.inbox[to] = ch
	}
	return ch
}

// MemJob is one rank's handle onto a shared MemFabric.
type MemJob struct {
	fabric *MemFabric
	rank   int
}

func (j *MemJob) Rank() int      { return j.rank }
func (j *MemJob) PeerCount() int { return j.fabric.peerCnt }

// Dial connects to rank's Accept loop. The server end of a net.Pipe is
// handed across the destination rank's inbox channel so Dial and the
// matching Accept rendezvous regardless of call order.
func (j *MemJob) Dial(ctx context.Context, rank int) (Peer, error) {
	client, server := net.Pipe()
	ch := j.fabric.channel(rank)
	select {
	case ch <- server:
		return &memPeer{conn: client}, nil
	case <-ctx.Done():
		_ = client.Close()
		_ = server.Close()
		return nil, fmt.Errorf("transport: dial rank %d: %w", rank, ctx.Err())
	}
}

// Accept waits for the next Dial targeting this rank. The binomial tree
// in internal/reduce issues at most one inbound Dial per round, so a
// single per-rank inbox (rather than one per ordered pair) is enough to
// keep Dial/Accept calls correctly paired.
func (j *MemJob) Accept(ctx context.Context) (Peer, error) {
	ch := j.fabric.channel(j.rank)
	select {
	case conn := <-ch:
		return &memPeer{conn: conn}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("transport: accept: %w", ctx.Err())
	}
}

func (j *MemJob) Close() error { return nil }

type memPeer struct {
	conn net.Conn
}

func (p *memPeer) SendBytes(ctx context.Context, payload []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(dl)
	}
	return writeFrame(p.conn, payload)
}

func (p *memPeer) RecvBytes(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetReadDeadline(dl)
	}
	buf, err := readFrame(p.conn)
	if err == io.EOF {
		return nil, io.EOF
	}
	return buf, err
}

func (p *memPeer) Close() error { return p.conn.Close() }
