package transport

import (
	"context"
	"sync"
	"testing"
)

func TestQUICJobDialAcceptRoundTrip(t *testing.T) {
	server, err := NewQUICJob(0, 2, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewQUICJob server: %v", err)
	}
	defer server.Close()

	serverAddr := server.ln.Addr().String()
	client, err := NewQUICJob(1, 2, "127.0.0.1:0", func(rank int) string { return serverAddr })
	if err != nil {
		t.Fatalf("NewQUICJob client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	var acceptedPeer Peer
	var acceptErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptedPeer, acceptErr = server.Accept(ctx)
	}()

	dialedPeer, err := client.Dial(ctx, 0)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer dialedPeer.Close()

	wg.Wait()
	if acceptErr != nil {
		t.Fatalf("Accept: %v", acceptErr)
	}
	defer acceptedPeer.Close()

	want := []byte("hello over quic")
	if err := dialedPeer.SendBytes(ctx, want); err != nil {
		t.Fatalf("SendBytes: %v", err)
	}
	got, err := acceptedPeer.RecvBytes(ctx)
	if err != nil {
		t.Fatalf("RecvBytes: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
