// Package frontend implements the Joint Editors Protocol's frontend side:
// the per-backend connector state machine, its async process-output reader
// (outputreader.go), and the selector-keyed connector cache (registry.go).
package frontend

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/mordilloSan/go-logger/logger"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/jointeditors/jep/codec"
	"github.com/jointeditors/jep/serviceconfig"
	"github.com/jointeditors/jep/wire"
)

// portAnnouncementPattern matches a backend's stdout banner.
var portAnnouncementPattern = regexp.MustCompile(`JEP service, listening on port (?P<port>\d+)`)

// Connector is the connection to a single backend service: state machine,
// child process, socket, and async output reader, all exclusively owned
// by whichever goroutine calls Run/RequestMessage.
type Connector struct {
	cfg       Config
	listeners []Listener

	// Frontend, if set before Connect, receives every decoded backend
	// message before the user listeners do, for global notifications the
	// editor plugin handles centrally. Registry wires its own FrontendHandler in
	// here for connectors it creates.
	Frontend wire.BackendListener

	mu            sync.Mutex
	serviceConfig serviceconfig.ServiceConfig
	state         State

	cmd          *exec.Cmd
	ptyMaster    *os.File
	outputReader *outputReader
	conn         net.Conn
	decoder      *codec.Decoder

	stateTimerReset   time.Time
	reconnectExpected bool

	currentRequestToken    string
	currentRequestResponse wire.Message

	backoff         *backoff.ExponentialBackOff
	notBeforeRetry  time.Time
	consecutiveFail int
}

// New returns a Disconnected Connector for serviceConfig.
func New(cfg Config, sc serviceconfig.ServiceConfig, listeners ...Listener) *Connector {
	return &Connector{
		cfg:           cfg.withDefaults(),
		serviceConfig: sc,
		listeners:     listeners,
		state:         Disconnected,
		backoff:       backoff.NewExponentialBackOff(),
	}
}

// State returns the connector's current lifecycle state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServiceConfig returns the service configuration this connector currently
// uses to launch its backend.
func (c *Connector) ServiceConfig() serviceconfig.ServiceConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serviceConfig
}

func (c *Connector) setState(next State) {
	c.mu.Lock()
	old := c.state
	c.state = next
	c.mu.Unlock()
	if next != old {
		for _, l := range c.listeners {
			l.OnConnectionStateChanged(old, next, c)
		}
	}
}

// Connect opens a connection to the backend service; a no-op unless
// currently Disconnected.
func (c *Connector) Connect() {
	if c.State() != Disconnected {
		logger.Warnf("cannot connect while in state %s", c.State())
		return
	}
	if time.Now().Before(c.notBeforeRetry) {
		return
	}

	sc := c.ServiceConfig()
	cwd := dirOf(sc.ConfigFilePath)
	logger.Debugf("starting backend service with command %q in directory %s", sc.Command, cwd)

	args := tokenizeCommand(sc.Command)
	if len(args) == 0 {
		logger.Warnf("empty backend command for config %s", sc.ConfigFilePath)
		c.reconnectExpected = false
		return
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = cwd

	master, err := pty.Start(cmd)
	if err != nil {
		logger.Warnf("failed to start backend service with command %q: %v", sc.Command, err)
		c.reconnectExpected = false
		c.cleanup(10 * time.Millisecond)
		return
	}

	c.cmd = cmd
	c.ptyMaster = master
	c.outputReader = newOutputReader(master)
	c.decoder = codec.NewDecoder()
	c.stateTimerReset = time.Now()
	c.setState(Connecting)
}

// Disconnect closes the connection to the backend service.
func (c *Connector) Disconnect() {
	c.reconnectExpected = false
	c.SendMessage(wire.Shutdown{})
	c.stateTimerReset = time.Now()
	c.setState(Disconnecting)
}

// Reconnect disconnects and, once cleanup completes, connects again,
// optionally against a new service configuration.
func (c *Connector) Reconnect(newConfig *serviceconfig.ServiceConfig) {
	logger.Debugf("reconnecting")
	c.Disconnect()
	if newConfig != nil {
		c.mu.Lock()
		c.serviceConfig = *newConfig
		c.mu.Unlock()
	}
	c.reconnectExpected = true
}

// Run ticks the state handler in small steps until duration is exhausted,
// returning early once a pending RequestMessage response arrives.
func (c *Connector) Run(duration time.Duration) {
	end := time.Now().Add(duration)

	responseExpected := c.currentRequestToken != "" && c.currentRequestResponse == nil
	responseReceived := false

	for time.Now().Before(end) && (!responseExpected || !responseReceived) {
		remaining := time.Until(end)
		if remaining <= 0 {
			break
		}
		c.dispatch(minDuration(remaining, c.cfg.TickInterval))
		responseReceived = c.currentRequestResponse != nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (c *Connector) dispatch(budget time.Duration) {
	switch c.State() {
	case Connecting:
		c.runConnecting(budget)
	case Connected:
		c.runConnected(budget)
	case Disconnecting:
		c.runDisconnecting(budget)
	case Disconnected:
		// An involuntary disconnect leaves a retry pending; re-drive it
		// once the backoff gate has passed. Otherwise pace the tick so Run
		// does not spin.
		if c.reconnectExpected && !time.Now().Before(c.notBeforeRetry) {
			c.Connect()
			return
		}
		time.Sleep(budget)
	}
}

// SendMessage sends msg if Connected; legal failures are logged and
// dropped, never propagated.
func (c *Connector) SendMessage(msg wire.Message) {
	if c.State() != Connected {
		logger.Warnf("in state %s no messages are sent to backend, dropping %s", c.State(), msg.MessageName())
		return
	}
	data, err := codec.Encode(msg)
	if err != nil {
		logger.WarnKV("sending message failed", "error", err)
		return
	}
	if _, err := c.conn.Write(data); err != nil {
		logger.WarnKV("sending message failed", "error", err)
	}
}

// RequestMessage sends a request and waits synchronously for the backend's
// response sharing its token, up to duration. Only one request may be in
// flight at a time; a concurrent call is logged and skipped.
func (c *Connector) RequestMessage(msg wire.Tokenized, duration time.Duration) wire.Message {
	if c.currentRequestToken != "" {
		logger.Warnf("already servicing a request with token %s, new request is skipped", c.currentRequestToken)
		return nil
	}

	if c.State() != Connected {
		logger.Warnf("skipping request message, connector is not connected")
		return nil
	}

	token := msg.GetToken()
	if token == "" {
		token = uuid.NewString()
		logger.Debugf("assigning request token %s", token)
		msg.SetToken(token)
	}

	c.currentRequestToken = token
	c.SendMessage(msg.(wire.Message))
	logger.Debugf("waiting for response message")
	c.Run(duration)

	c.currentRequestToken = ""
	response := c.currentRequestResponse
	c.currentRequestResponse = nil
	return response
}

func dirOf(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

// tokenizeCommand splits a command line respecting simple single- and
// double-quoted substrings (a quote of the other kind inside one is kept
// literally), close enough to shell word-splitting for the command strings
// a .jep file realistically carries.
func tokenizeCommand(command string) []string {
	tokens := []string{}
	var cur strings.Builder
	var quote rune
	for _, r := range command {
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case r == quote:
			quote = 0
		case r == ' ' && quote == 0:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func parsePortAnnouncement(lines []string) (int, bool) {
	for _, line := range lines {
		m := portAnnouncementPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		port, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		logger.Debugf("backend announced listening at port %d", port)
		return port, true
	}
	return 0, false
}

func (c *Connector) runConnecting(budget time.Duration) {
	lines := c.outputReader.drainAll()
	for _, l := range lines {
		logger.Debugf("[backend] %s", l)
	}

	port, ok := parsePortAnnouncement(lines)
	if !ok {
		if time.Since(c.stateTimerReset) > c.cfg.StartupTimeout {
			logger.Warnf("backend not starting up, aborting connection")
			c.cleanup(budget)
			return
		}
		time.Sleep(minDuration(budget, 10*time.Millisecond))
		return
	}
	c.connectSocket(port)
}

func (c *Connector) connectSocket(port int) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), c.cfg.DialTimeout)
	if err != nil {
		logger.Warnf("could not connect to backend at port %d: %v", port, err)
		c.cleanup(c.cfg.DialTimeout)
		return
	}
	c.conn = conn
	c.stateTimerReset = time.Now()
	logger.Infof("connected to backend command %s", c.ServiceConfig().Command)
	c.consecutiveFail = 0
	c.backoff = backoff.NewExponentialBackOff()
	c.setState(Connected)
	c.reconnectExpected = true
}

func (c *Connector) runConnected(budget time.Duration) {
	for _, l := range c.outputReader.drainAll() {
		logger.Debugf("[backend] %s", l)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(budget))
	buf := make([]byte, 64*1024)
	n, err := c.conn.Read(buf)
	if n > 0 {
		c.stateTimerReset = time.Now()
		c.decoder.Push(buf[:n])
		c.drainMessages()
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			// no data this tick.
		} else {
			logger.Warnf("backend closed connection unexpectedly: %v", err)
			c.cleanup(10 * time.Millisecond)
			return
		}
	}

	if time.Since(c.stateTimerReset) > c.cfg.IdleTimeout {
		logger.Debugf("backend did not send any message for %s, reconnecting", c.cfg.IdleTimeout)
		c.Reconnect(nil)
	}
}

func (c *Connector) drainMessages() {
	for msg := range c.decoder.Drain() {
		logger.Debugf("received message: %s", msg.MessageName())

		if c.Frontend != nil {
			wire.DispatchToBackendListener(c.Frontend, msg)
		}

		for _, l := range c.listeners {
			wire.DispatchToBackendListener(l, msg)
		}

		if c.currentRequestToken != "" {
			c.checkResponseMessage(msg)
		}
	}
}

func (c *Connector) checkResponseMessage(msg wire.Message) {
	tok, ok := msg.(wire.Tokenized)
	if !ok {
		return
	}
	if tok.GetToken() == c.currentRequestToken {
		logger.Debugf("received response message for token %s", tok.GetToken())
		c.currentRequestToken = ""
		c.currentRequestResponse = msg
	}
}

func (c *Connector) runDisconnecting(budget time.Duration) {
	for _, l := range c.outputReader.drainAll() {
		logger.Debugf("[backend] %s", l)
	}

	if c.cmd == nil {
		c.cleanup(budget)
		return
	}

	running := c.processRunning()
	if running {
		if time.Since(c.stateTimerReset) > c.cfg.ShutdownTimeout {
			logger.Warnf("backend still running and not observing shutdown protocol")
			c.cleanup(budget)
			return
		}
		time.Sleep(minDuration(budget, 10*time.Millisecond))
		return
	}

	logger.Debugf("backend process shut down gracefully")
	c.cmd = nil
	c.cleanup(budget)
}

// processRunning uses gopsutil for a portable liveness check rather than a
// bare, platform-specific cmd.Process.Signal(0) probe.
func (c *Connector) processRunning() bool {
	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	p, err := process.NewProcess(int32(c.cmd.Process.Pid))
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	if err != nil {
		return false
	}
	return running
}

// cleanup is the internal hard disconnect: idempotent, releases the
// socket, process, and output reader, transitions to Disconnected, and
// calls Connect if a reconnect is expected (which does nothing until the
// backoff gate armed by killing a process has passed).
func (c *Connector) cleanup(joinBudget time.Duration) {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		c.consecutiveFail++
		c.notBeforeRetry = time.Now().Add(c.backoff.NextBackOff())
		logger.WarnKV("killed backend process", "consecutiveFailures", c.consecutiveFail)
	}
	c.cmd = nil

	if c.outputReader != nil {
		if !c.outputReader.join(joinBudget) {
			logger.Warnf("output reader thread not stoppable, possible leak")
		} else {
			logger.Debugf("output reader thread stopped")
		}
		for _, l := range c.outputReader.drainAll() {
			logger.Debugf("[backend] %s", l)
		}
		c.outputReader = nil
	}

	if c.ptyMaster != nil {
		_ = c.ptyMaster.Close()
		c.ptyMaster = nil
	}

	c.setState(Disconnected)
	logger.Infof("disconnected from backend")

	if c.reconnectExpected {
		// Connect is a no-op while the backoff gate from a killed process
		// is still pending; the Disconnected tick retries it once the gate
		// passes.
		logger.Debugf("attempting to reconnect")
		c.Connect()
	}
}

// RunUntil is a convenience wrapper for callers driving the connector from
// a context-aware loop rather than a single Run(duration) budget, ticking
// until ctx is cancelled.
func (c *Connector) RunUntil(ctx context.Context) {
	for ctx.Err() == nil {
		c.Run(c.cfg.TickInterval)
	}
}
