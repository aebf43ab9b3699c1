package server

import (
	"net"
	"time"

	"github.com/jointeditors/jep/codec"
	"github.com/jointeditors/jep/contentsync"
)

// client is a per-connection record exclusively owned by the server's
// single cooperative loop: the socket, its decode buffer, its content
// monitor, and the timestamp of its last received data.
type client struct {
	conn               net.Conn
	decoder            *codec.Decoder
	content            *contentsync.Monitor
	lastDataReceivedAt time.Time
}

func newClient(conn net.Conn) *client {
	return &client{
		conn:               conn,
		decoder:            codec.NewDecoder(),
		content:            contentsync.NewMonitor(),
		lastDataReceivedAt: time.Now(),
	}
}
