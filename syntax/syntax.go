// Package syntax implements the Joint Editors Protocol's static syntax
// registry: a name/extension-indexed catalog of syntax highlighting
// definitions, lazily read from disk only when a frontend actually asks
// for them.
package syntax

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jointeditors/jep/wire"
)

// SyntaxFile is one registered syntax definition: a name, the extensions it
// applies to, the wire format it's expressed in, and the on-disk path its
// body is read from on demand.
type SyntaxFile struct {
	Name       string
	Path       string
	Format     wire.SyntaxFormatType
	Extensions []string
}

// Definition reads and returns the syntax file's body. It is read fresh
// from disk on every call; the Registry does not cache file contents.
func (f SyntaxFile) Definition() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("syntax: read %s: %w", f.Path, err)
	}
	return string(data), nil
}

// Registry indexes registered syntax files by file extension (lowercased,
// leading '.' stripped), per format. The zero value is ready to use.
type Registry struct {
	byFormat map[wire.SyntaxFormatType]map[string]SyntaxFile
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byFormat: make(map[wire.SyntaxFormatType]map[string]SyntaxFile)}
}

// Register adds a syntax definition for the given extensions, replacing
// any earlier registration for the same (format, extension) pair. It does
// not require the file to exist yet: Definition() fails lazily, at read
// time, if the path is unreadable, so a registry can be populated before
// plugin files are finalized on disk.
func (r *Registry) Register(name, path string, format wire.SyntaxFormatType, extensions ...string) {
	if r.byFormat == nil {
		r.byFormat = make(map[wire.SyntaxFormatType]map[string]SyntaxFile)
	}
	bucket, ok := r.byFormat[format]
	if !ok {
		bucket = make(map[string]SyntaxFile)
		r.byFormat[format] = bucket
	}
	file := SyntaxFile{Name: name, Path: path, Format: format, Extensions: extensions}
	for _, ext := range extensions {
		bucket[normalizeExt(ext)] = file
	}
}

// normalizeExt lowercases an extension and strips a leading '.', so
// registrations and lookups agree no matter which form the caller uses.
func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// LoadDir populates the registry from a directory tree laid out as
// <dir>/<format>/<name>[.<ext>...].<suffix>, one subdirectory per
// wire.SyntaxFormatType name ("textmate", "vim"). The final suffix names
// the file's own type and is not an extension; a file's extensions are the
// dot-separated components between its name and that suffix, so
// "python.py.pyi.json" registers under "py" and "pyi". A file with no such
// components ("go.json", "go.vim") registers under its name. Files under
// an unrecognized subdirectory name are skipped without failing the whole
// load.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("syntax: read dir %s: %w", dir, err)
	}
	for _, formatEntry := range entries {
		if !formatEntry.IsDir() {
			continue
		}
		format, ok := wire.ParseSyntaxFormatType(formatEntry.Name())
		if !ok {
			continue
		}
		formatDir := filepath.Join(dir, formatEntry.Name())
		files, err := os.ReadDir(formatDir)
		if err != nil {
			return fmt.Errorf("syntax: read dir %s: %w", formatDir, err)
		}
		for _, fileEntry := range files {
			if fileEntry.IsDir() {
				continue
			}
			base := fileEntry.Name()
			parts := strings.Split(base, ".")
			if len(parts) < 2 {
				continue
			}
			name := parts[0]
			extensions := parts[1 : len(parts)-1]
			if len(extensions) == 0 {
				extensions = []string{name}
			}
			r.Register(name, filepath.Join(formatDir, base), format, extensions...)
		}
	}
	return nil
}

// Filtered returns the syntax files registered for format, narrowed to
// extensions when given, or the full set for that format when extensions
// is empty. Each result appears once even if
// registered under multiple matching extensions.
func (r *Registry) Filtered(format wire.SyntaxFormatType, extensions ...string) []SyntaxFile {
	bucket := r.byFormat[format]
	if len(bucket) == 0 {
		return nil
	}

	if len(extensions) == 0 {
		seen := make(map[string]bool, len(bucket))
		out := make([]SyntaxFile, 0, len(bucket))
		for _, f := range bucket {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
		return out
	}

	seen := make(map[string]bool)
	var out []SyntaxFile
	for _, ext := range extensions {
		f, ok := bucket[normalizeExt(ext)]
		if !ok || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out
}

// ToWire reads files' definitions and builds the wire.StaticSyntax list for
// a StaticSyntaxList response. A file whose Definition fails to read is
// skipped rather than failing the whole response, so one stale registration
// doesn't block every other syntax definition from being delivered.
func ToWire(files []SyntaxFile) []wire.StaticSyntax {
	out := make([]wire.StaticSyntax, 0, len(files))
	for _, f := range files {
		def, err := f.Definition()
		if err != nil {
			continue
		}
		out = append(out, wire.StaticSyntax{
			Name:           f.Name,
			FileExtensions: f.Extensions,
			Definition:     def,
		})
	}
	return out
}
