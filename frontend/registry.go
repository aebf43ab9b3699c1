package frontend

import (
	"sync"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/jointeditors/jep/serviceconfig"
	"github.com/jointeditors/jep/wire"
)

// Registry is a cache of Connectors keyed by ServiceConfig.Selector. When
// the backing .jep file's checksum changes, the cached Connector is kept
// and reconnected with the re-read configuration.
type Registry struct {
	resolver    serviceconfig.Resolver
	newListener func(sc serviceconfig.ServiceConfig) []Listener
	cfg         Config

	// FrontendHandler, if set before the first GetConnection call, becomes
	// the frontend-level handler of every connector the registry creates:
	// it sees each backend message before the connector's user listeners.
	FrontendHandler wire.BackendListener

	mu         sync.Mutex
	connectors map[string]*Connector
}

// NewRegistry returns an empty Registry. listenerFactory, if non-nil, is
// invoked once per newly created Connector to supply its listeners; pass
// nil for connectors with no listeners beyond the frontend-level handler.
func NewRegistry(resolver serviceconfig.Resolver, cfg Config, listenerFactory func(sc serviceconfig.ServiceConfig) []Listener) *Registry {
	return &Registry{
		resolver:    resolver,
		newListener: listenerFactory,
		cfg:         cfg,
		connectors:  make(map[string]*Connector),
	}
}

// GetConnection resolves the service configuration governing filename and
// returns a live Connector for it, creating, reviving, or reconnecting one
// with a changed configuration as needed. Returns ErrNoServiceConfig if no .jep record matches.
func (reg *Registry) GetConnection(filename string) (*Connector, error) {
	sc, err := reg.resolver.Resolve(filename)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, ErrNoServiceConfig
	}

	selector := sc.Selector()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing, ok := reg.connectors[selector]; ok {
		currentSum, err := serviceconfig.Checksum(sc.ConfigFilePath)
		if err != nil {
			logger.WarnKV("checksum refresh failed", "path", sc.ConfigFilePath, "error", err)
		} else if !serviceconfig.ChecksumEqual(currentSum, existing.ServiceConfig().Checksum) {
			logger.Debugf("service config %s changed, reconnecting %s", sc.ConfigFilePath, selector)
			updated := *sc
			updated.Checksum = currentSum
			existing.Reconnect(&updated)
		} else if existing.State() == Disconnected {
			logger.Debugf("reviving disconnected connector for %s", selector)
			existing.Connect()
		}
		return existing, nil
	}

	var listeners []Listener
	if reg.newListener != nil {
		listeners = reg.newListener(*sc)
	}
	conn := New(reg.cfg, *sc, listeners...)
	conn.Frontend = reg.FrontendHandler
	reg.connectors[selector] = conn
	conn.Connect()
	return conn, nil
}

// Connectors returns a snapshot of every connector currently cached,
// keyed by selector.
func (reg *Registry) Connectors() map[string]*Connector {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make(map[string]*Connector, len(reg.connectors))
	for k, v := range reg.connectors {
		out[k] = v
	}
	return out
}

// Shutdown disconnects every cached connector, best-effort, driving each
// one's Disconnecting tick loop up to its own ShutdownTimeout.
func (reg *Registry) Shutdown() {
	for _, conn := range reg.Connectors() {
		if conn.State() == Connected {
			conn.Disconnect()
			conn.Run(conn.cfg.ShutdownTimeout)
		}
	}
}
