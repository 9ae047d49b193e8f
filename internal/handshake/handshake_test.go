package handshake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/llnl/mpileaks/internal/transport"
)

func TestGreetCompatiblePeersRunConcurrentlyWithoutDeadlock(t *testing.T) {
	fabric := transport.NewMemFabric(2)
	jobA := fabric.Job(0)
	jobB := fabric.Job(1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var serverPeer, clientPeer transport.Peer
	var acceptErr, dialErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		serverPeer, acceptErr = jobB.Accept(ctx)
	}()
	go func() {
		defer wg.Done()
		clientPeer, dialErr = jobA.Dial(ctx, 1)
	}()
	wg.Wait()
	if acceptErr != nil {
		t.Fatalf("accept: %v", acceptErr)
	}
	if dialErr != nil {
		t.Fatalf("dial: %v", dialErr)
	}
	defer serverPeer.Close()
	defer clientPeer.Close()

	var serverCompatible, clientCompatible bool
	var serverErr, clientErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		serverCompatible, serverErr = Greet(ctx, serverPeer, 1, 2)
	}()
	go func() {
		defer wg.Done()
		clientCompatible, clientErr = Greet(ctx, clientPeer, 0, 2)
	}()
	wg.Wait()

	if serverErr != nil {
		t.Fatalf("server greet: %v", serverErr)
	}
	if clientErr != nil {
		t.Fatalf("client greet: %v", clientErr)
	}
	if !serverCompatible || !clientCompatible {
		t.Fatalf("expected both peers to report compatible, got server=%v client=%v", serverCompatible, clientCompatible)
	}
}
