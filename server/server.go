// Package server serves the simulator's control port over TCP.
//
// Each accepted connection runs its own command loop: read one framed
// command, dispatch it against the simulator, write the exact response
// bytes, repeat. Every protocol-level failure is connection-fatal: the
// protocol has no resynchronization, so the connection is closed
// without a partial response and the client is expected to reconnect.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/internal/wire"
)

// Server accepts control-port connections and dispatches their
// commands to a simulator.
type Server struct {
	sim  *pandasim.Simulator
	log  pandasim.Logger
	addr string

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
}

// New returns a server for sim listening on addr once served.
func New(sim *pandasim.Simulator, addr string, log pandasim.Logger) *Server {
	if log == nil {
		log = pandasim.NopLogger{}
	}
	return &Server{
		sim:   sim,
		log:   log,
		addr:  addr,
		conns: make(map[net.Conn]struct{}),
	}
}

// Listen binds the server's address. Serve calls it if needed; tests
// call it first to learn the bound address via Addr.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the simulation clock and the accept loop until ctx is
// canceled, then closes the listener and every open connection.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sim.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.shutdown()
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(ctx)
	})
	return g.Wait()
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) acceptLoop(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "accept")
		}
		s.track(conn, true)
		go s.handle(conn)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
	s.mu.Unlock()
}

// handle runs one connection's command loop. Any error, protocol or
// address-level, drops the connection; closing it cancels only this
// connection's pending I/O.
func (s *Server) handle(conn net.Conn) {
	remote := conn.RemoteAddr()
	s.log.Logf(pandasim.SeverityDebug, "%s: connected", remote)
	defer func() {
		s.track(conn, false)
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		req, err := wire.ReadRequest(r)
		if err != nil {
			if errors.Cause(err) == io.EOF {
				s.log.Logf(pandasim.SeverityDebug, "%s: disconnected", remote)
			} else {
				s.log.Logf(pandasim.SeverityWarning, "%s: %v", remote, err)
			}
			return
		}
		if err := s.dispatch(conn, req); err != nil {
			s.log.Logf(pandasim.SeverityWarning, "%s: %v", remote, err)
			return
		}
	}
}

// dispatch executes one command. Write commands are fire-and-forget:
// completion is implicit by the next tick, as on real hardware.
func (s *Server) dispatch(conn net.Conn, req wire.Request) error {
	switch q := req.(type) {
	case *wire.ReadReg:
		v, err := s.sim.Registers.Read(q.Block, q.Num, q.Reg)
		if err != nil {
			// fail fast, no partial response framing
			return err
		}
		return wire.WriteValue(conn, v)
	case *wire.WriteReg:
		return s.sim.Registers.Write(q.Block, q.Num, q.Reg, q.Value)
	case *wire.WriteTable:
		return s.sim.Registers.WriteTable(q.Block, q.Num, q.Reg, q.Words)
	case *wire.ReadData:
		words, end := s.sim.Capture.Drain(q.MaxWords)
		if end {
			return wire.WriteEndOfStream(conn)
		}
		return wire.WriteData(conn, words)
	}
	return errors.Errorf("unhandled request %T", req)
}
