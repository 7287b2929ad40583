package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/logharbor/logharbor/internal/sources"
	"github.com/logharbor/logharbor/internal/store"
)

// Server accepts forwarder connections and feeds decoded records into the
// log store. One handler goroutine per connection.
type Server struct {
	store       *store.LogStore
	sources     *sources.Registry
	codec       Codec
	idleTimeout time.Duration

	ln net.Listener
}

// NewServer wires a listener-less server. idleTimeout of zero disables
// per-connection read deadlines.
func NewServer(st *store.LogStore, reg *sources.Registry, idleTimeout time.Duration) *Server {
	return &Server{
		store:       st,
		sources:     reg,
		idleTimeout: idleTimeout,
	}
}

// Listen binds the ingest port. The caller treats a bind failure as fatal;
// no accept loop starts until this succeeds.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind ingest listener on %s: %w", addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop until the listener closes or ctx is cancelled.
// Transient accept errors are logged and the loop continues; one bad
// connection can never stop accepts.
func (s *Server) Serve(ctx context.Context) {
	log.Printf("[Ingest] Listening on %s", s.ln.Addr())
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[Ingest] Accept error: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// Close shuts the listener down, ending the accept loop. Connections already
// accepted drain on their own.
func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}
