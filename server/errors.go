package server

import "errors"

// ErrNoPortFound is returned by Start when no port in the configured range
// could be bound.
var ErrNoPortFound = errors.New("server: no available port found in configured range")
