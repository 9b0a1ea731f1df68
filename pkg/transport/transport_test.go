package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/pchmd/pchmd/pkg/certstore"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loopbackServer starts a Server on an ephemeral localhost port backed by a
// throwaway self-signed certificate, and returns it alongside a TLS config a
// client can use to dial in and verify the pinned leaf.
func loopbackServer(t *testing.T, bus *broadcast.Bus[[]byte]) (*Server, *tls.Config) {
	t.Helper()

	certPEM, keyPEM, err := certstore.GenerateCertificate()
	require.NoError(t, err)

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(tlsCert.Certificate[0])
	require.NoError(t, err)

	serverTLS := &tls.Config{Certificates: []tls.Certificate{tlsCert}, NextProtos: NextProtos}
	srv, err := NewServer("127.0.0.1:0", serverTLS, bus, testLogger(t))
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	clientTLS := &tls.Config{RootCAs: pool, ServerName: "localhost", NextProtos: NextProtos}

	return srv, clientTLS
}

// TestColdStartDeliversFirstSnapshot checks that a client dialing in after
// the server has started receives the next published snapshot in full.
func TestColdStartDeliversFirstSnapshot(t *testing.T) {
	bus := broadcast.New[[]byte](16, testLogger(t))
	srv, clientTLS := loopbackServer(t, bus)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, srv.Addr(), clientTLS)
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(50 * time.Millisecond) // let the accept loop subscribe before publishing
	bus.Publish([]byte("snapshot-1"))

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	payload, err := client.Recv(recvCtx)
	require.NoError(t, err)
	require.Equal(t, "snapshot-1", string(payload))
}

// TestShutdownDrainsConnections checks that canceling the server's context
// causes Serve to return once every spawned connection task has drained.
func TestShutdownDrainsConnections(t *testing.T) {
	bus := broadcast.New[[]byte](16, testLogger(t))
	srv, clientTLS := loopbackServer(t, bus)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ctx) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, srv.Addr(), clientTLS)
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-serveDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

// TestOversizePayloadRejected asserts the client enforces MaxSnapshotSize
// rather than trusting the peer's declared stream length.
func TestOversizePayloadRejected(t *testing.T) {
	bus := broadcast.New[[]byte](16, testLogger(t))
	srv, clientTLS := loopbackServer(t, bus)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, srv.Addr(), clientTLS)
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(50 * time.Millisecond)
	oversized := make([]byte, MaxSnapshotSize+1024)
	bus.Publish(oversized)

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	_, err = client.Recv(recvCtx)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

// TestPeerLossDetectedOnWriteFailure drives the peer-loss path: once a
// client disconnects, the next publish's stream write fails, and the test
// checks that the connection task does not block forever, i.e. Serve still
// returns after shutdown.
func TestPeerLossDetectedOnWriteFailure(t *testing.T) {
	bus := broadcast.New[[]byte](16, testLogger(t))
	srv, clientTLS := loopbackServer(t, bus)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ctx) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, srv.Addr(), clientTLS)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Close())
	time.Sleep(50 * time.Millisecond)

	// Publishing after the peer vanished must not hang the server; Serve
	// still needs to shut down cleanly afterward.
	bus.Publish([]byte("snapshot-after-disconnect"))
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-serveDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown despite peer loss")
	}
}
