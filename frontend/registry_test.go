package frontend

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jointeditors/jep/serviceconfig"
)

func writeJEPConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, serviceconfig.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistryReturnsErrNoServiceConfigWhenUnmatched(t *testing.T) {
	root := t.TempDir()
	writeJEPConfig(t, root, "*.py:\npylsp\n")
	edited := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(edited, nil, 0o644))

	reg := NewRegistry(serviceconfig.Resolver{}, Config{}, nil)
	conn, err := reg.GetConnection(edited)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrNoServiceConfig)
}

func TestRegistryPropagatesFrontendHandler(t *testing.T) {
	root := t.TempDir()
	writeJEPConfig(t, root, "*.go:\ntrue\n")
	edited := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(edited, nil, 0o644))

	reg := NewRegistry(serviceconfig.Resolver{}, Config{}, nil)
	fh := &orderFrontend{order: new([]string)}
	reg.FrontendHandler = fh

	conn, err := reg.GetConnection(edited)
	require.NoError(t, err)
	assert.Same(t, fh, conn.Frontend)
}

func TestRegistryCachesConnectorBySelector(t *testing.T) {
	requireCommandAvailable(t)

	lis, command := fakeBackendListener(t)
	go func() {
		// Hold accepted connections open until the listener is closed, so
		// the connector stays Connected instead of seeing the peer hang up.
		var held []net.Conn
		defer func() {
			for _, conn := range held {
				conn.Close()
			}
		}()
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			held = append(held, conn)
		}
	}()

	root := t.TempDir()
	writeJEPConfig(t, root, "*.go:\n"+command+"\n")
	editedA := filepath.Join(root, "a.go")
	editedB := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(editedA, nil, 0o644))
	require.NoError(t, os.WriteFile(editedB, nil, 0o644))

	reg := NewRegistry(serviceconfig.Resolver{}, Config{TickInterval: 10 * time.Millisecond, ShutdownTimeout: 200 * time.Millisecond}, nil)
	connA, err := reg.GetConnection(editedA)
	require.NoError(t, err)
	require.NotNil(t, connA)

	connB, err := reg.GetConnection(editedB)
	require.NoError(t, err)
	assert.Same(t, connA, connB)

	require.Eventually(t, func() bool {
		connA.Run(20 * time.Millisecond)
		return connA.State() == Connected
	}, 5*time.Second, 20*time.Millisecond)

	connA.Disconnect()
	require.Eventually(t, func() bool {
		connA.Run(20 * time.Millisecond)
		return connA.State() == Disconnected
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRegistryReconnectsOnChecksumChange(t *testing.T) {
	requireCommandAvailable(t)

	lis, command := fakeBackendListener(t)
	accepts := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			accepts <- conn
		}
	}()

	root := t.TempDir()
	path := writeJEPConfig(t, root, "*.go:\n"+command+"\n")
	edited := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(edited, nil, 0o644))

	reg := NewRegistry(serviceconfig.Resolver{}, Config{TickInterval: 10 * time.Millisecond, ShutdownTimeout: 200 * time.Millisecond}, nil)
	conn, err := reg.GetConnection(edited)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		conn.Run(20 * time.Millisecond)
		return conn.State() == Connected
	}, 5*time.Second, 20*time.Millisecond)

	select {
	case c := <-accepts:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("backend never accepted the first connection")
	}

	// Editing the config file changes its checksum, which must trigger a
	// reconnect on the next GetConnection call.
	require.NoError(t, os.WriteFile(path, []byte("*.go:\n"+command+" \n"), 0o644))

	same, err := reg.GetConnection(edited)
	require.NoError(t, err)
	assert.Same(t, conn, same)

	require.Eventually(t, func() bool {
		same.Run(20 * time.Millisecond)
		return same.State() == Disconnecting || same.State() == Connecting || same.State() == Connected
	}, 5*time.Second, 20*time.Millisecond)
}
