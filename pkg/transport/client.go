package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"
)

// Client is a thin wrapper over a single QUIC connection to the daemon: it
// accepts the server-opened unidirectional streams one at a time and
// returns each snapshot's raw payload, ready for pkg/snapshot.Decode.
type Client struct {
	conn *quic.Conn
}

// Dial connects to addr, pinning tlsConf's root CA to the server's
// self-signed certificate (see pkg/certstore.ClientTLSConfig).
func Dial(ctx context.Context, addr string, tlsConf *tls.Config) (*Client, error) {
	tlsConf = tlsConf.Clone()
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = NextProtos
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, &quic.Config{})
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Recv blocks for the server's next unidirectional stream, reads it to
// completion, and returns the payload. It enforces MaxSnapshotSize and
// returns ErrPayloadTooLarge rather than reading unbounded peer input.
func (c *Client) Recv(ctx context.Context) ([]byte, error) {
	stream, err := c.conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accept stream: %w", err)
	}

	limited := io.LimitReader(stream, MaxSnapshotSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("transport: read stream: %w", err)
	}
	if len(data) > MaxSnapshotSize {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

// Close tears down the underlying QUIC connection.
func (c *Client) Close() error {
	c.conn.CloseWithError(0, "client closing")
	return nil
}
