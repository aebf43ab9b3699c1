// Package monitor implements an optional operator dashboard for a running
// backend: a WebSocket endpoint that streams BackendAlive ticks, the
// current connected-client count, and broadcast ProblemUpdates to a
// browser. The feed is strictly one-way; inbound frames are ignored.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mordilloSan/go-logger/logger"
)

const (
	pingInterval = 25 * time.Second
	pongWait     = 35 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is one JSON-encoded line pushed to every connected dashboard
// client.
type Event struct {
	Type          string `json:"type"`
	ConnectedPeer int    `json:"connectedPeers,omitempty"`
	File          string `json:"file,omitempty"`
	ProblemCount  int    `json:"problemCount,omitempty"`
}

// Monitor fans events out to every currently connected dashboard
// WebSocket. The zero value is ready to use.
type Monitor struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewMonitor returns an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{conns: make(map[*websocket.Conn]struct{})}
}

// Broadcast sends ev as a JSON text frame to every connected client,
// dropping any client whose write fails.
func (m *Monitor) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.WarnKV("monitor: failed to marshal event", "error", err)
		return
	}

	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debugf("monitor: dropping dashboard client: %v", err)
			m.remove(c)
			_ = c.Close()
		}
	}
}

func (m *Monitor) add(c *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c] = struct{}{}
}

func (m *Monitor) remove(c *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, c)
}

// ServeHTTP upgrades the request to a WebSocket and keeps it alive with
// periodic pings until the client disconnects or stops answering them
// (the feed is one-way; inbound frames are read and discarded, and only
// pongs extend the read deadline).
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV("monitor: websocket upgrade failed", "error", err)
		return
	}
	m.add(conn)
	logger.Infof("dashboard client connected: %s", conn.RemoteAddr())

	go m.pingLoop(conn)
	m.readLoop(conn)
}

func (m *Monitor) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (m *Monitor) readLoop(conn *websocket.Conn) {
	defer func() {
		m.remove(conn)
		_ = conn.Close()
		logger.Infof("dashboard client disconnected: %s", conn.RemoteAddr())
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
