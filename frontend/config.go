package frontend

import "time"

// Config holds the frontend connector's tunable timeouts.
type Config struct {
	// StartupTimeout bounds how long Connecting waits for the backend's
	// port announcement, default 5s.
	StartupTimeout time.Duration
	// ShutdownTimeout bounds how long Disconnecting waits for the backend
	// process to exit gracefully before it is force-killed, default 5s.
	ShutdownTimeout time.Duration
	// IdleTimeout is TIMEOUT_LAST_MESSAGE: the connector reconnects if the
	// backend has sent nothing for this long, default 10m30s.
	IdleTimeout time.Duration
	// DialTimeout bounds the TCP connect attempt once a port is known.
	DialTimeout time.Duration
	// TickInterval bounds a single Run step when no deadline is closer.
	TickInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 10*time.Minute + 30*time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	return c
}
