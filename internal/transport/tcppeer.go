package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/netutil"
)

// TCPJob is the fallback transport that MPILEAKS_TRANSPORT=tcp names
// (see internal/config), for environments where QUIC is blocked by a
// firewall or proxy. Nothing in this module constructs a TCPJob from
// that setting. netutil.LimitListener bounds the listener to exactly
// PeerCount concurrent inbound connections: a job's reduction phase never
// needs more than one open connection per peer, so anything past that
// is a misbehaving or duplicate peer and should queue rather than exhaust
// file descriptors.
type TCPJob struct {
	ln        net.Listener
	rank      int
	peerCount int
	addrOf    func(rank int) string
	dialer    net.Dialer
}

// NewTCPJob binds a TCP listener for this rank, limited to peerCount
// simultaneous connections.
func NewTCPJob(rank, peerCount int, listenAddr string, addrOf func(rank int) string) (*TCPJob, error) {
	raw, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	limit := peerCount
	if limit < 1 {
		limit = 1
	}
	return &TCPJob{
		ln:        netutil.LimitListener(raw, limit),
		rank:      rank,
		peerCount: peerCount,
		addrOf:    addrOf,
	}, nil
}

func (j *TCPJob) Rank() int      { return j.rank }
func (j *TCPJob) PeerCount() int { return j.peerCount }

func (j *TCPJob) Dial(ctx context.Context, rank int) (Peer, error) {
	addr := j.addrOf(rank)
	conn, err := j.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial rank %d at %s: %w", rank, addr, err)
	}
	return &tcpPeer{conn: conn}, nil
}

func (j *TCPJob) Accept(ctx context.Context) (Peer, error) {
	conn, err := j.ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return &tcpPeer{conn: conn}, nil
}

func (j *TCPJob) Close() error {
	return j.ln.Close()
}

type tcpPeer struct {
	conn net.Conn
}

func (p *tcpPeer) SendBytes(ctx context.Context, payload []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(dl)
	}
	return writeFrame(p.conn, payload)
}

func (p *tcpPeer) RecvBytes(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetReadDeadline(dl)
	}
	return readFrame(p.conn)
}

func (p *tcpPeer) Close() error {
	return p.conn.Close()
}
