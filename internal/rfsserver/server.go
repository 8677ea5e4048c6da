// Package rfsserver implements the accept loop, per-connection worker,
// and opcode handlers that back the remote end of the wire protocol.
// One goroutine serves each accepted connection; there is no process
// fork and no state shared between workers beyond the optional metrics
// registry and a read-only connection count used by the admin channel.
package rfsserver

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrel-systems/rfsd/internal/rfslog"
	"github.com/kestrel-systems/rfsd/internal/rfsmetrics"
	"github.com/kestrel-systems/rfsd/internal/transport"
	"github.com/kestrel-systems/rfsd/internal/wire"
)

// Offset divides the descriptor namespace: values below Offset are
// local to the client and never reach the server; the server always
// subtracts Offset from an in-band descriptor before touching the host
// OS, and always adds it back before replying.
const Offset = 25000

// Server accepts connections and dispatches requests against the
// filesystem rooted at Root. The listener-tracking pattern (a set of
// live listeners closed together by Close) follows the accept-loop
// idiom used by the vendored 9P server this project is adjacent to.
type Server struct {
	Root    string
	Metrics *rfsmetrics.Metrics

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    bool

	activeConns int64
}

// New returns a Server rooted at root. metrics may be nil to disable
// instrumentation.
func New(root string, metrics *rfsmetrics.Metrics) *Server {
	return &Server{
		Root:      root,
		Metrics:   metrics,
		listeners: make(map[net.Listener]struct{}),
	}
}

// ActiveConnections returns the number of currently connected workers,
// used by the admin channel's "status"/"connections" commands.
func (s *Server) ActiveConnections() int {
	return int(atomic.LoadInt64(&s.activeConns))
}

// Serve accepts connections on ln until Close is called or Accept
// returns a permanent error. Each accepted connection is served by its
// own goroutine; the listener's handle to the connection is dropped
// once the goroutine owns it.
func (s *Server) Serve(ln net.Listener) error {
	s.trackListener(ln)
	defer s.untrackListener(ln)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go s.serveConn(conn)
	}
}

// Close closes every listener Serve is currently tracking, causing
// their Serve calls to return nil.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ls := make([]net.Listener, 0, len(s.listeners))
	for ln := range s.listeners {
		ls = append(ls, ln)
	}
	s.mu.Unlock()

	var first error
	for _, ln := range ls {
		if err := ln.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) trackListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[ln] = struct{}{}
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, ln)
}

// serveConn is the per-connection worker: read one frame, dispatch,
// write exactly one reply, repeat until a transport error or clean
// disconnect. Each worker owns an independent set of host descriptors
// it opened, closed when the worker exits so no descriptor outlives
// its connection.
func (s *Server) serveConn(conn net.Conn) {
	atomic.AddInt64(&s.activeConns, 1)
	if s.Metrics != nil {
		s.Metrics.ConnectionOpened()
	}
	defer func() {
		atomic.AddInt64(&s.activeConns, -1)
		if s.Metrics != nil {
			s.Metrics.ConnectionClosed()
		}
	}()
	defer conn.Close()

	w := &worker{
		conn:    conn,
		root:    s.Root,
		openFDs: make(map[int]struct{}),
		metrics: s.Metrics,
	}
	defer w.closeAll()

	for {
		frame, err := transport.RecvFrame(conn)
		if err != nil {
			if err != transport.ErrTransportClosed {
				rfslog.Debugf("rfsserver: worker exiting: %v", err)
			}
			return
		}

		op, _, err := wire.ParseHeader(frame)
		if err != nil {
			rfslog.Warnf("rfsserver: %v, closing connection", err)
			return
		}
		body := frame[wire.HeaderLen:]

		start := time.Now()
		reply, ok := w.dispatch(op, body)
		if w.metrics != nil {
			w.metrics.ObserveRequest(op.String(), ok, time.Since(start))
		}

		if err := transport.SendAll(conn, reply); err != nil {
			rfslog.Debugf("rfsserver: send reply: %v", err)
			return
		}
	}
}
