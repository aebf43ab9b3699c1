package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalOmitsDefaults(t *testing.T) {
	m := &ContentSync{File: "a.go", Data: "x", Start: 0}
	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "a.go", out["file"])
	assert.Equal(t, "x", out["data"])
	_, hasStart := out["start"]
	assert.False(t, hasStart, "start should be omitted when equal to its default")
	_, hasEnd := out["end"]
	assert.False(t, hasEnd)
}

func TestMarshalKeepsNonDefault(t *testing.T) {
	end := 5
	m := &ContentSync{File: "a.go", Data: "x", Start: 3, End: &end}
	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, 3, out["start"])
	assert.Equal(t, 5, out["end"])
}

func TestUnmarshalFillsDefault(t *testing.T) {
	data := map[string]any{"file": "a.go", "data": "x"}
	var m ContentSync
	require.NoError(t, Unmarshal(data, &m))
	assert.Equal(t, "a.go", m.File)
	assert.Equal(t, 0, m.Start)
	assert.Nil(t, m.End)
}

func TestUnmarshalMissingRequiredField(t *testing.T) {
	data := map[string]any{"data": "x"}
	var m ContentSync
	err := Unmarshal(data, &m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestRoundTripProblem(t *testing.T) {
	p := &Problem{Message: "unused variable", Severity: SeverityWarn, Line: 12}
	out, err := Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, "warn", out["severity"])

	var back Problem
	require.NoError(t, Unmarshal(out, &back))
	assert.Equal(t, *p, back)
}

func TestRoundTripNestedSequence(t *testing.T) {
	upd := &ProblemUpdate{
		FileProblems: []FileProblems{
			{File: "a.go", Problems: []Problem{{Message: "m1", Severity: SeverityError, Line: 1}}},
		},
		Partial: true,
	}
	out, err := Marshal(upd)
	require.NoError(t, err)

	var back ProblemUpdate
	require.NoError(t, Unmarshal(out, &back))
	assert.Equal(t, upd.Partial, back.Partial)
	require.Len(t, back.FileProblems, 1)
	assert.Equal(t, "a.go", back.FileProblems[0].File)
	require.Len(t, back.FileProblems[0].Problems, 1)
	assert.Equal(t, "m1", back.FileProblems[0].Problems[0].Message)
	assert.Equal(t, SeverityError, back.FileProblems[0].Problems[0].Severity)
}

func TestBadEnumName(t *testing.T) {
	data := map[string]any{"message": "x", "severity": "catastrophic", "line": 1}
	var p Problem
	err := Unmarshal(data, &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadEnumName))
}

func TestMarshalCompletionOptionEmitsOnlyInsert(t *testing.T) {
	// Every other attribute sits at its declared default, so the structural
	// value must contain the one required key and nothing else.
	out, err := Marshal(&CompletionOption{Insert: "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"insert": "x"}, out)

	var back CompletionOption
	require.NoError(t, Unmarshal(out, &back))
	assert.Equal(t, CompletionOption{Insert: "x"}, back)
}

func TestCompletionOptionOptionalEnum(t *testing.T) {
	desc := "a string literal"
	sem := SemanticString
	opt := &CompletionOption{Insert: `"x"`, Desc: &desc, Semantics: &sem}
	out, err := Marshal(opt)
	require.NoError(t, err)
	assert.Equal(t, "string", out["semantics"])

	var back CompletionOption
	require.NoError(t, Unmarshal(out, &back))
	require.NotNil(t, back.Semantics)
	assert.Equal(t, SemanticString, *back.Semantics)
}

func TestByNameUnknownVariant(t *testing.T) {
	_, ok := ByName("notARealMessage")
	assert.False(t, ok)
}

func TestByNameKnownVariant(t *testing.T) {
	msg, ok := ByName("completionRequest")
	require.True(t, ok)
	_, isRequest := msg.(*CompletionRequest)
	assert.True(t, isRequest)
}

func TestDispatchToFrontendListener(t *testing.T) {
	listener := &recordingFrontendListener{}
	ok := DispatchToFrontendListener(listener, &ContentSync{File: "a.go"})
	require.True(t, ok)
	require.NotNil(t, listener.lastSync)
	assert.Equal(t, "a.go", listener.lastSync.File)
}

type recordingFrontendListener struct {
	DefaultFrontendListener
	lastSync *ContentSync
}

func (r *recordingFrontendListener) OnContentSync(m *ContentSync) { r.lastSync = m }
