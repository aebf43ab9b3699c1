package server

import "time"

// Config holds the backend server's tunable timing and port-range knobs.
// Zero-value fields are replaced with the documented defaults by
// Config.withDefaults.
type Config struct {
	// PortRangeStart/PortRangeEnd bound the successive-port bind search,
	// default [9001, 9099].
	PortRangeStart int
	PortRangeEnd   int

	// PollInterval is the readiness-multiplex timeout each main-loop tick
	// waits before re-running cyclic tasks, default 500ms.
	PollInterval time.Duration

	// AliveInterval is TIMEOUT_BACKEND_ALIVE, the period between
	// BackendAlive broadcasts to connected frontends, default 60s.
	AliveInterval time.Duration

	// IdleTimeout is TIMEOUT_LAST_MESSAGE, after which a silent client is
	// disconnected, default 10m30s.
	IdleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PortRangeStart == 0 {
		c.PortRangeStart = 9001
	}
	if c.PortRangeEnd == 0 {
		c.PortRangeEnd = 9099
	}
	if c.PollInterval == 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.AliveInterval == 0 {
		c.AliveInterval = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 10*time.Minute + 30*time.Second
	}
	return c
}
