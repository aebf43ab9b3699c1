// Package daemonconfig loads the ambient, backend-wide defaults for a
// jep-backend-sample process (port range, timing knobs, static syntax and
// dashboard locations) from an optional YAML file, distinct from the
// per-project `.jep` service configuration the serviceconfig package
// resolves.
package daemonconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// File is the on-disk shape of a backend's optional settings file, e.g.:
//
//	portRangeStart: 9001
//	portRangeEnd: 9099
//	aliveInterval: 60s
//	idleTimeout: 10m30s
//	syntaxDir: /usr/share/jep/syntax
//	dashboardAddr: 127.0.0.1:9500
type File struct {
	PortRangeStart int    `yaml:"portRangeStart"`
	PortRangeEnd   int    `yaml:"portRangeEnd"`
	AliveInterval  string `yaml:"aliveInterval"`
	IdleTimeout    string `yaml:"idleTimeout"`
	SyntaxDir      string `yaml:"syntaxDir"`
	DashboardAddr  string `yaml:"dashboardAddr"`
}

// Settings is File with its duration strings already parsed, ready to feed
// into server.Config.
type Settings struct {
	PortRangeStart int
	PortRangeEnd   int
	AliveInterval  time.Duration
	IdleTimeout    time.Duration
	SyntaxDir      string
	DashboardAddr  string
}

// Load reads and parses path. A missing file is not an error: it returns
// the zero Settings, which callers merge with their own command-line
// defaults.
func Load(path string) (Settings, error) {
	if path == "" {
		return Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("daemonconfig: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("daemonconfig: parse %s: %w", path, err)
	}

	s := Settings{
		PortRangeStart: f.PortRangeStart,
		PortRangeEnd:   f.PortRangeEnd,
		SyntaxDir:      f.SyntaxDir,
		DashboardAddr:  f.DashboardAddr,
	}
	if f.AliveInterval != "" {
		d, err := time.ParseDuration(f.AliveInterval)
		if err != nil {
			return Settings{}, fmt.Errorf("daemonconfig: invalid aliveInterval %q: %w", f.AliveInterval, err)
		}
		s.AliveInterval = d
	}
	if f.IdleTimeout != "" {
		d, err := time.ParseDuration(f.IdleTimeout)
		if err != nil {
			return Settings{}, fmt.Errorf("daemonconfig: invalid idleTimeout %q: %w", f.IdleTimeout, err)
		}
		s.IdleTimeout = d
	}
	return s, nil
}
