package frontend

import "github.com/jointeditors/jep/wire"

// State is the frontend connector's connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Listener receives every wire message a backend sends plus connection
// lifecycle notifications. It embeds wire.BackendListener rather than
// wire.BackendListener embedding it, because OnConnectionStateChanged is a
// connector concern, not a wire message.
type Listener interface {
	wire.BackendListener
	OnConnectionStateChanged(old, new State, c *Connector)
}

// DefaultListener supplies no-op implementations of every Listener hook.
type DefaultListener struct {
	wire.DefaultBackendListener
}

func (DefaultListener) OnConnectionStateChanged(State, State, *Connector) {}
