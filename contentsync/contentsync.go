// Package contentsync implements the Joint Editors Protocol's content
// monitor: a server-side mirror of each open file's buffer, kept in sync
// purely through the range-replace edits carried by wire.ContentSync
// messages. Indices are rune offsets, not byte offsets, so edits land the
// same way regardless of the editor's internal encoding.
package contentsync

import (
	"github.com/mordilloSan/go-logger/logger"
)

// Result reports the outcome of a Synchronize call.
type Result int

const (
	// Updated means the edit applied cleanly.
	Updated Result = iota
	// OutOfSync means the given range fell outside the tracked content and
	// the caller must request (or send) the file's full contents again.
	OutOfSync
)

func (r Result) String() string {
	if r == Updated {
		return "updated"
	}
	return "outOfSync"
}

// Monitor tracks the known buffer contents of zero or more files, indexed
// by path. The zero value is ready to use.
type Monitor struct {
	content map[string][]rune
}

// NewMonitor returns an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{content: make(map[string][]rune)}
}

// Get returns the currently tracked contents of filepath, and whether
// anything is tracked for it at all.
func (m *Monitor) Get(filepath string) (string, bool) {
	runes, ok := m.content[filepath]
	if !ok {
		return "", false
	}
	return string(runes), true
}

// Synchronize applies a range-replace edit: the tracked content for
// filepath has the rune range [start, end) replaced with data. end may be
// nil, meaning "to the end of the current content".
//
// Out-of-range indices (negative, beyond the current length, or start > end)
// leave the tracked content untouched and report OutOfSync: the caller no
// longer has a reliable mirror for filepath and must resend it in full.
func (m *Monitor) Synchronize(filepath, data string, start int, end *int) Result {
	if m.content == nil {
		m.content = make(map[string][]rune)
	}
	content := m.content[filepath]
	length := len(content)

	e := length
	if end != nil {
		e = *end
	}

	if start < 0 || start > length || e < 0 || e > length || start > e {
		logger.WarnKV("content sync out of range",
			"file", filepath, "length", length, "start", start, "end", e)
		return OutOfSync
	}

	before := content[:start]
	after := content[e:]
	merged := make([]rune, 0, len(before)+len([]rune(data))+len(after))
	merged = append(merged, before...)
	merged = append(merged, []rune(data)...)
	merged = append(merged, after...)

	m.content[filepath] = merged
	logger.Debugf("updated file %s from index %d to %d", filepath, start, e)
	return Updated
}

// Forget discards any tracked content for filepath, e.g. once the frontend
// reports the file was closed.
func (m *Monitor) Forget(filepath string) {
	delete(m.content, filepath)
}

// NewlineMode is a bitmask of the line-ending conventions observed in a
// piece of text.
type NewlineMode int

const (
	NewlineUnknown NewlineMode = 0
	// NewlineLF marks at least one bare '\n'.
	NewlineLF NewlineMode = 0x01
	// NewlineCR marks at least one bare '\r' not followed by '\n'.
	NewlineCR NewlineMode = 0x02
	// NewlineCRLF marks at least one "\r\n" pair.
	NewlineCRLF NewlineMode = 0x04
	// NewlineAll is the mask value reached once every mode has been seen;
	// detection stops early once the mask reaches it.
	NewlineAll = NewlineLF | NewlineCR | NewlineCRLF
)

// DetectNewlineMode scans text once and returns the mask of line-ending
// styles found in it, stopping as soon as every style has been observed.
func DetectNewlineMode(text string) NewlineMode {
	mode := NewlineUnknown
	runes := []rune(text)
	n := len(runes)

	for i := 0; i < n && mode < NewlineAll; i++ {
		switch runes[i] {
		case '\n':
			mode |= NewlineLF
		case '\r':
			if i+1 < n && runes[i+1] == '\n' {
				mode |= NewlineCRLF
				i++
			} else {
				mode |= NewlineCR
			}
		}
	}
	return mode
}

// OpenNewlineMode returns the line terminator that best corresponds to
// mode, for callers writing tracked content back out: "" for a mixed mode
// (write runes unchanged), and a specific separator for a single
// consistently-used style. A pure NewlineLF or NewlineUnknown mode maps to
// "\n".
func OpenNewlineMode(mode NewlineMode) string {
	switch mode {
	case NewlineLF, NewlineUnknown:
		return "\n"
	case NewlineCR:
		return "\r"
	case NewlineCRLF:
		return "\r\n"
	default:
		return ""
	}
}
