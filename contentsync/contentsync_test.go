package contentsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizeInsertIntoEmpty(t *testing.T) {
	m := NewMonitor()
	res := m.Synchronize("a.go", "package main", 0, nil)
	assert.Equal(t, Updated, res)

	content, ok := m.Get("a.go")
	require.True(t, ok)
	assert.Equal(t, "package main", content)
}

func TestSynchronizeRangeReplace(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "hello world", 0, nil))

	end := 5
	res := m.Synchronize("a.go", "goodbye", 0, &end)
	assert.Equal(t, Updated, res)

	content, _ := m.Get("a.go")
	assert.Equal(t, "goodbye world", content)
}

func TestSynchronizeEndDefaultsToLength(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "0123456789", 0, nil))

	res := m.Synchronize("a.go", "X", 5, nil)
	assert.Equal(t, Updated, res)

	content, _ := m.Get("a.go")
	assert.Equal(t, "01234X", content)
}

func TestSynchronizeOutOfRange(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "short", 0, nil))

	tooFar := 100
	res := m.Synchronize("a.go", "x", 0, &tooFar)
	assert.Equal(t, OutOfSync, res)

	content, _ := m.Get("a.go")
	assert.Equal(t, "short", content, "content should be untouched after an out-of-range edit")
}

func TestSynchronizeEditSequence(t *testing.T) {
	m := NewMonitor()

	require.Equal(t, Updated, m.Synchronize("/f", "This is the string.", 0, nil))
	content, _ := m.Get("/f")
	require.Equal(t, "This is the string.", content)

	end := 7
	require.Equal(t, Updated, m.Synchronize("/f", "WAS", 5, &end))
	content, _ = m.Get("/f")
	require.Equal(t, "This WAS the string.", content)

	// The mirror is 20 characters long, so an edit reaching index 22 means
	// the peer's view has diverged; the content must stay untouched.
	end = 22
	require.Equal(t, OutOfSync, m.Synchronize("/f", " Really!", 20, &end))
	content, _ = m.Get("/f")
	require.Equal(t, "This WAS the string.", content)
}

func TestSynchronizeStartAfterEndIsOutOfSync(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "hello", 0, nil))

	end := 1
	res := m.Synchronize("a.go", "x", 3, &end)
	assert.Equal(t, OutOfSync, res)
}

func TestSynchronizeNegativeIndexIsOutOfSync(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "hello", 0, nil))

	res := m.Synchronize("a.go", "x", -1, nil)
	assert.Equal(t, OutOfSync, res)
}

func TestForget(t *testing.T) {
	m := NewMonitor()
	require.Equal(t, Updated, m.Synchronize("a.go", "hello", 0, nil))
	m.Forget("a.go")
	_, ok := m.Get("a.go")
	assert.False(t, ok)
}

func TestDetectNewlineModeMixed(t *testing.T) {
	assert.Equal(t, NewlineAll, DetectNewlineMode("a\nb\rc\r\nd"))
}

func TestDetectNewlineModePureLF(t *testing.T) {
	assert.Equal(t, NewlineLF, DetectNewlineMode("a\nb\nc"))
}

func TestDetectNewlineModeTrailingCR(t *testing.T) {
	// A lone trailing '\r' with nothing following must still register as CR.
	assert.Equal(t, NewlineCR, DetectNewlineMode("a\r"))
}

func TestDetectNewlineModeEmpty(t *testing.T) {
	assert.Equal(t, NewlineUnknown, DetectNewlineMode(""))
}

func TestOpenNewlineMode(t *testing.T) {
	assert.Equal(t, "\n", OpenNewlineMode(NewlineLF))
	assert.Equal(t, "\r", OpenNewlineMode(NewlineCR))
	assert.Equal(t, "\r\n", OpenNewlineMode(NewlineCRLF))
	assert.Equal(t, "", OpenNewlineMode(NewlineAll))
	assert.Equal(t, "\n", OpenNewlineMode(NewlineUnknown))
}
