// Package serviceconfig implements the Joint Editors Protocol's service
// configuration resolver: locating a `.jep` file by walking parent
// directories from an edited file, parsing its service records, and
// computing a content checksum frontends use to detect edits and trigger
// connector replacement.
package serviceconfig

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the service configuration file name searched for in
// each candidate directory, overridable via Resolver.FileName.
const DefaultFileName = ".jep"

// ServiceConfig is one parsed service record: the patterns it applies to
// and the backend command line to launch, plus the config file it came
// from and that file's content checksum at parse time.
type ServiceConfig struct {
	ConfigFilePath string
	Patterns       []string
	Command        string
	Checksum       []byte
}

// Selector is the structural identity of a ServiceConfig, used by the
// frontend registry to deduplicate connectors.
func (c ServiceConfig) Selector() string {
	patterns := append([]string(nil), c.Patterns...)
	// Patterns are a set: normalize order so equivalent records with
	// differently-ordered pattern lists produce the same selector.
	sortStrings(patterns)
	return c.ConfigFilePath + "|" + strings.Join(patterns, ",")
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// Resolver locates service configuration for edited files by walking
// parent directories. The zero value uses DefaultFileName.
type Resolver struct {
	// FileName overrides DefaultFileName when non-empty.
	FileName string
}

func (r Resolver) fileName() string {
	if r.FileName != "" {
		return r.FileName
	}
	return DefaultFileName
}

// Resolve starts at dir(editedFilename) and walks parent directories up to
// the filesystem root. In each directory, if a config file exists, it is
// parsed and the first service record whose patterns contain either
// "*<ext>" of editedFilename or editedFilename's basename is returned. nil
// is returned if no matching record is found anywhere up to the root.
func (r Resolver) Resolve(editedFilename string) (*ServiceConfig, error) {
	abs, err := filepath.Abs(editedFilename)
	if err != nil {
		return nil, fmt.Errorf("serviceconfig: resolve %s: %w", editedFilename, err)
	}
	pattern := filePattern(abs)
	base := filepath.Base(abs)

	dir := filepath.Dir(abs)
	for {
		configPath := filepath.Join(dir, r.fileName())
		if _, err := os.Stat(configPath); err == nil {
			configs, err := parseConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			for _, cfg := range configs {
				if containsPattern(cfg.Patterns, pattern) || containsPattern(cfg.Patterns, base) {
					return &cfg, nil
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, nil
}

func containsPattern(patterns []string, pattern string) bool {
	for _, p := range patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// filePattern returns "*<ext>" for a file with an extension, or its bare
// basename for one without.
func filePattern(file string) string {
	ext := filepath.Ext(file)
	if ext != "" {
		return "*" + ext
	}
	return filepath.Base(file)
}

// parseConfigFile reads service records out of a .jep file: a pattern line
// ending in ':' followed by a non-empty, non-colon-terminated command line.
func parseConfigFile(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serviceconfig: read %s: %w", path, err)
	}
	sum := sha1.Sum(data)

	var configs []ServiceConfig
	lines := splitLines(string(data))
	i := 0
	for i < len(lines) {
		line := lines[i]
		patterns, isPatternLine := parsePatternLine(line)
		if !isPatternLine {
			i++
			continue
		}
		i++
		if i >= len(lines) {
			break
		}
		command := lines[i]
		if strings.TrimSpace(command) != "" && !strings.HasSuffix(strings.TrimRight(command, " \t"), ":") {
			configs = append(configs, ServiceConfig{
				ConfigFilePath: path,
				Patterns:       patterns,
				Command:        strings.TrimSpace(command),
				Checksum:       sum[:],
			})
			i++
		}
	}
	return configs, nil
}

// parsePatternLine reports whether line is "<pattern>[,<pattern>]...:" and,
// if so, the trimmed pattern list.
func parsePatternLine(line string) ([]string, bool) {
	trimmed := strings.TrimRight(line, " \t\r\n")
	if !strings.HasSuffix(trimmed, ":") {
		return nil, false
	}
	body := strings.TrimSuffix(trimmed, ":")
	if strings.TrimSpace(body) == "" {
		return nil, false
	}
	parts := strings.Split(body, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		patterns = append(patterns, strings.TrimSpace(p))
	}
	return patterns, true
}

func splitLines(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Checksum computes the SHA-1 checksum of a config file's current content,
// for comparison against a previously recorded ServiceConfig.Checksum.
// Returns nil, nil if the file does not exist.
func Checksum(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("serviceconfig: checksum %s: %w", path, err)
	}
	sum := sha1.Sum(data)
	return sum[:], nil
}

// ChecksumEqual reports whether a and b are the same non-nil checksum.
func ChecksumEqual(a, b []byte) bool {
	if a == nil || b == nil {
		return false
	}
	return bytes.Equal(a, b)
}
