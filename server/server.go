// Package server implements the Joint Editors Protocol's backend server: a
// TCP accept loop that multiplexes the listening socket and every accepted
// connection on a single cooperative loop, dispatches decoded messages
// first to backend-level hooks and then to user listeners, and runs the
// liveness/idle-timeout cyclic tasks every tick.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/activation"
	"github.com/coreos/go-systemd/daemon"
	"github.com/hashicorp/go-multierror"
	"github.com/mordilloSan/go-logger/logger"

	"github.com/jointeditors/jep/codec"
	"github.com/jointeditors/jep/contentsync"
	"github.com/jointeditors/jep/server/monitor"
	"github.com/jointeditors/jep/syntax"
	"github.com/jointeditors/jep/wire"
)

// state is the server's own lifecycle, distinct from any one client's
// connection.
type state int

const (
	stateStopped state = iota
	stateRunning
	stateShutdownPending
)

// readBufferSize bounds a single Read call; receiveOne keeps reading until
// the socket has nothing more buffered, so larger transfers take several
// Reads within the same tick.
const readBufferSize = 64 * 1024

// Server is a single JEP backend: one listening socket plus the set of
// currently connected frontends.
type Server struct {
	cfg      Config
	listener *net.TCPListener

	mu    sync.Mutex
	state state

	clients map[net.Conn]*client

	Syntax    *syntax.Registry
	listeners []wire.FrontendListener

	// Monitor, if set before Run, receives a dashboard event for every
	// connect/disconnect, applied content sync, alive broadcast, and
	// ProblemUpdate passed to Broadcast. nil by
	// default: the dashboard is an optional operator aid, not part of the
	// wire protocol.
	Monitor *monitor.Monitor

	tsAliveSent      time.Time
	backendAliveData []byte
}

// New returns a Server ready to Start. listeners are the user hooks that
// receive every decoded message after the backend's own service-level
// handling.
func New(cfg Config, listeners ...wire.FrontendListener) *Server {
	return &Server{
		cfg:       cfg.withDefaults(),
		clients:   make(map[net.Conn]*client),
		Syntax:    syntax.NewRegistry(),
		listeners: listeners,
	}
}

// Start binds the listening socket. It first tries systemd socket
// activation (a single pre-bound listener handed down by the service
// manager); if none is available, it tries successive ports in
// cfg.PortRangeStart..PortRangeEnd on 127.0.0.1. On success it prints the
// discoverable banner line and notifies systemd the service is ready.
func (s *Server) Start() error {
	if lis, ok := socketActivationListener(); ok {
		s.listener = lis
		port := lis.Addr().(*net.TCPAddr).Port
		announce(port)
		s.markRunning()
		notifyReady()
		return nil
	}

	for port := s.cfg.PortRangeStart; port <= s.cfg.PortRangeEnd; port++ {
		addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
		lis, err := net.ListenTCP("tcp", addr)
		if err != nil {
			logger.Debugf("port %d not available: %v", port, err)
			continue
		}
		s.listener = lis
		announce(port)
		s.markRunning()
		notifyReady()
		return nil
	}

	logger.ErrorKV("could not bind to any available port", "rangeStart", s.cfg.PortRangeStart, "rangeEnd", s.cfg.PortRangeEnd)
	return ErrNoPortFound
}

func (s *Server) markRunning() {
	s.mu.Lock()
	s.state = stateRunning
	s.mu.Unlock()
}

func socketActivationListener() (*net.TCPListener, bool) {
	listeners, err := activation.Listeners()
	if err != nil {
		logger.Warnf("activation.Listeners error: %v", err)
		return nil, false
	}
	if len(listeners) == 0 {
		return nil, false
	}
	tcpLis, ok := listeners[0].(*net.TCPListener)
	if !ok {
		logger.Warnf("systemd-activated listener is not TCP, ignoring")
		return nil, false
	}
	return tcpLis, true
}

func notifyReady() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debugf("systemd notify skipped: %v", err)
	}
}

// announce prints the backend's port banner, flushed, exactly matching the
// regex frontends scan for.
func announce(port int) {
	fmt.Printf("JEP service, listening on port %d\n", port)
	os.Stdout.Sync()
}

// Stop requests a graceful shutdown: the main loop will close every socket
// and return on its next tick.
func (s *Server) Stop() {
	logger.Debugf("received request to shut down")
	s.mu.Lock()
	if s.state == stateRunning {
		s.state = stateShutdownPending
	}
	s.mu.Unlock()
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateShutdownPending
}

// Run drives the main loop until Stop is called or ctx is cancelled. It
// returns once every socket has been closed.
func (s *Server) Run(ctx context.Context) error {
	s.backendAliveData, _ = codec.Encode(wire.BackendAlive{})
	s.tsAliveSent = time.Now()

	for {
		if ctx.Err() != nil {
			s.shutdown()
			return ctx.Err()
		}
		if s.isStopping() {
			s.shutdown()
			return nil
		}

		s.acceptReady()
		s.receiveReady()
		s.cyclic()
	}
}

// acceptReady accepts at most one pending connection per tick, never
// blocking longer than cfg.PollInterval.
func (s *Server) acceptReady() {
	_ = s.listener.SetDeadline(time.Now().Add(s.cfg.PollInterval))
	conn, err := s.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		if !s.isStopping() {
			logger.Debugf("accept error: %v", err)
		}
		return
	}
	s.mu.Lock()
	s.clients[conn] = newClient(conn)
	numClients := len(s.clients)
	s.mu.Unlock()
	logger.Infof("frontend connected: %s", conn.RemoteAddr())
	s.notifyMonitor(monitor.Event{Type: "connected", ConnectedPeer: numClients})
}

// notifyMonitor is a no-op when no dashboard Monitor is attached.
func (s *Server) notifyMonitor(ev monitor.Event) {
	if s.Monitor != nil {
		s.Monitor.Broadcast(ev)
	}
}

// receiveReady drains every client socket non-blockingly and dispatches
// every complete message decoded from it.
func (s *Server) receiveReady() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		s.receiveOne(conn)
	}
}

func (s *Server) receiveOne(conn net.Conn) {
	s.mu.Lock()
	c, ok := s.clients[conn]
	s.mu.Unlock()
	if !ok {
		return
	}

	buf := make([]byte, readBufferSize)
	closed := false

	for {
		// A deadline already in the past makes Read fail before looking at
		// the socket, so give it a moment to pick up buffered bytes.
		_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond))
		n, err := conn.Read(buf)
		if n > 0 {
			c.decoder.Push(buf[:n])
			c.lastDataReceivedAt = time.Now()
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			logger.Debugf("closing connection to frontend: %v", err)
			closed = true
			break
		}
		if n == 0 {
			closed = true
			break
		}
	}

	for msg := range c.decoder.Drain() {
		logger.Debugf("received message: %s", msg.MessageName())
		s.dispatch(c, msg)
	}

	if closed {
		s.closeClient(conn)
	}
}

// dispatch runs backend-level service hooks first, then every registered
// user listener in registration order.
func (s *Server) dispatch(c *client, msg wire.Message) {
	s.handleBackendLevel(c, msg)
	for _, l := range s.listeners {
		wire.DispatchToFrontendListener(l, msg)
	}
}

func (s *Server) handleBackendLevel(c *client, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Shutdown:
		s.Stop()
	case *wire.ContentSync:
		result := c.content.Synchronize(m.File, m.Data, m.Start, m.End)
		if result == contentsync.OutOfSync {
			s.send(c, &wire.OutOfSync{File: m.File})
		} else {
			s.notifyMonitor(monitor.Event{Type: "sync", File: m.File})
		}
	case *wire.StaticSyntaxRequest:
		s.handleStaticSyntaxRequest(c, m)
	}
}

func (s *Server) handleStaticSyntaxRequest(c *client, req *wire.StaticSyntaxRequest) {
	if len(req.FileExtensions) > 0 {
		logger.Debugf("received syntax request in format %s for extensions %v", req.Format, req.FileExtensions)
	} else {
		logger.Debugf("received syntax request in format %s for all available extensions", req.Format)
	}

	files := s.Syntax.Filtered(req.Format, req.FileExtensions...)
	if len(files) == 0 {
		logger.Debugf("no matching syntax definition found")
		return
	}
	syntaxes := syntax.ToWire(files)
	logger.Debugf("returning %d matching syntax definitions", len(syntaxes))
	s.send(c, &wire.StaticSyntaxList{Format: req.Format, Syntaxes: syntaxes})
}

// send serializes and writes msg to c, logging (never propagating) any
// failure.
func (s *Server) send(c *client, msg wire.Message) {
	data, err := codec.Encode(msg)
	if err != nil {
		logger.WarnKV("failed to encode outgoing message", "error", err)
		return
	}
	if _, err := c.conn.Write(data); err != nil {
		logger.WarnKV("failed to send message", "error", err)
	}
}

// Broadcast sends msg to every currently connected frontend, for callers
// outside the dispatch loop (e.g. a language analysis pass posting a
// ProblemUpdate).
func (s *Server) Broadcast(msg wire.Message) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.send(c, msg)
	}

	if pu, ok := msg.(*wire.ProblemUpdate); ok {
		total := 0
		for _, fp := range pu.FileProblems {
			total += len(fp.Problems)
		}
		s.notifyMonitor(monitor.Event{Type: "problems", ProblemCount: total})
	}
}

// cyclic runs once per tick: broadcasting BackendAlive when due and
// closing any client past its idle timeout.
func (s *Server) cyclic() {
	s.mu.Lock()
	numFrontends := len(s.clients)
	s.mu.Unlock()
	if numFrontends == 0 {
		return
	}

	now := time.Now()
	if now.Sub(s.tsAliveSent) >= s.cfg.AliveInterval {
		logger.Debugf("sending alive message to %d frontend(s)", numFrontends)
		s.mu.Lock()
		conns := make([]net.Conn, 0, len(s.clients))
		for conn := range s.clients {
			conns = append(conns, conn)
		}
		s.mu.Unlock()
		for _, conn := range conns {
			if _, err := conn.Write(s.backendAliveData); err != nil {
				logger.WarnKV("failed to send alive message", "error", err)
			}
		}
		s.tsAliveSent = now
		s.notifyMonitor(monitor.Event{Type: "alive", ConnectedPeer: numFrontends})
	}

	s.mu.Lock()
	var stale []net.Conn
	for conn, c := range s.clients {
		if now.Sub(c.lastDataReceivedAt) >= s.cfg.IdleTimeout {
			stale = append(stale, conn)
		}
	}
	s.mu.Unlock()
	for _, conn := range stale {
		logger.Debugf("disconnecting frontend after idle timeout")
		s.closeClient(conn)
	}
}

func (s *Server) closeClient(conn net.Conn) {
	logger.Infof("socket disconnected: %s", conn.RemoteAddr())
	_ = conn.Close()
	s.mu.Lock()
	delete(s.clients, conn)
	numClients := len(s.clients)
	s.mu.Unlock()
	s.notifyMonitor(monitor.Event{Type: "disconnected", ConnectedPeer: numClients})
}

// shutdown closes every client socket and the listener, aggregating any
// close errors rather than dropping them.
func (s *Server) shutdown() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clients = make(map[net.Conn]*client)
	s.state = stateStopped
	s.mu.Unlock()

	var errs *multierror.Error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		logger.WarnKV("errors while closing sockets during shutdown", "error", errs.ErrorOrNil())
	}
}
