package serviceconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveMatchesExtensionPattern(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "*.go:\ngopls --stdio\n")

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	edited := filepath.Join(sub, "main.go")
	require.NoError(t, os.WriteFile(edited, []byte("package main"), 0o644))

	cfg, err := (Resolver{}).Resolve(edited)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "gopls --stdio", cfg.Command)
	assert.Contains(t, cfg.Patterns, "*.go")
}

func TestResolveWalksToParent(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "*.py:\npylsp\n")

	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	edited := filepath.Join(deep, "mod.py")
	require.NoError(t, os.WriteFile(edited, []byte(""), 0o644))

	cfg, err := (Resolver{}).Resolve(edited)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "pylsp", cfg.Command)
}

func TestResolveNoMatchReturnsNil(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "*.py:\npylsp\n")
	edited := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(edited, []byte(""), 0o644))

	cfg, err := (Resolver{}).Resolve(edited)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestResolveMultipleRecordsAndBasenamePattern(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "*.go:\ngopls --stdio\n\nMakefile:\nmake-lsp\n")

	edited := filepath.Join(root, "Makefile")
	require.NoError(t, os.WriteFile(edited, []byte(""), 0o644))

	cfg, err := (Resolver{}).Resolve(edited)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "make-lsp", cfg.Command)
}

func TestResolveSkipsMalformedRecord(t *testing.T) {
	root := t.TempDir()
	// A pattern line immediately followed by another pattern line (no
	// command) must be skipped, not treated as a match.
	writeConfig(t, root, "*.go:\n*.py:\npylsp\n")

	edited := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(edited, []byte(""), 0o644))

	cfg, err := (Resolver{}).Resolve(edited)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestChecksumDetectsEdit(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "*.go:\ngopls\n")

	sum1, err := Checksum(path)
	require.NoError(t, err)
	require.NotNil(t, sum1)

	require.NoError(t, os.WriteFile(path, []byte("*.go:\ngopls -v\n"), 0o644))
	sum2, err := Checksum(path)
	require.NoError(t, err)

	assert.False(t, ChecksumEqual(sum1, sum2))
}

func TestChecksumMissingFile(t *testing.T) {
	sum, err := Checksum(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestSelectorIgnoresPatternOrder(t *testing.T) {
	a := ServiceConfig{ConfigFilePath: "/x/.jep", Patterns: []string{"*.go", "*.mod"}}
	b := ServiceConfig{ConfigFilePath: "/x/.jep", Patterns: []string{"*.mod", "*.go"}}
	assert.Equal(t, a.Selector(), b.Selector())
}

func TestFilePatternUsesExtensionOrBasename(t *testing.T) {
	assert.Equal(t, "*.go", filePattern("/a/b/main.go"))
	assert.Equal(t, "Makefile", filePattern("/a/b/Makefile"))
}
