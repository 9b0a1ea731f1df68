package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/quic-go/quic-go"
)

// DefaultListenAddr is the endpoint's default bind address.
const DefaultListenAddr = "127.0.0.1:5000"

// NextProtos is the single ALPN identifier pchmd negotiates; QUIC requires
// at least one.
var NextProtos = []string{"pchmd/1"}

// Server is the fan-out transport endpoint: it accepts peer connections on
// a QUIC listener and spawns one connection task per accepted peer, each
// holding its own broadcast.Subscription.
type Server struct {
	listener *quic.Listener
	bus      *broadcast.Bus[[]byte]
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewServer binds a QUIC listener at addr using tlsConf (built from
// pkg/certstore) and returns a Server ready to Serve. Bind failure is
// startup-fatal.
func NewServer(addr string, tlsConf *tls.Config, bus *broadcast.Bus[[]byte], logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tlsConf = tlsConf.Clone()
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = NextProtos
	}

	ln, err := quic.ListenAddr(addr, tlsConf, &quic.Config{})
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}

	return &Server{listener: ln, bus: bus, logger: logger}, nil
}

// Addr reports the endpoint's bound local address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve runs the accept loop until ctx is canceled, at which point it
// stops accepting, closes the listener, and waits for every spawned
// connection task to finish draining before returning. Accept errors that
// are not caused by shutdown are logged and the loop continues; if the
// listener is closed (Close) before ctx is canceled, Serve returns nil.
func (s *Server) Serve(ctx context.Context) error {
	defer s.wg.Wait()

	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = s.listener.Close()
				return ctx.Err()
			}
			if errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			s.logger.Warn("transport: accept error", "error", err)
			continue
		}

		sub := s.bus.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			runConnection(ctx, conn, sub, s.logger)
		}()
	}
}

// Close closes the underlying listener immediately, unblocking any
// in-flight Accept call.
func (s *Server) Close() error {
	return s.listener.Close()
}
