package wire

// Tokenized is implemented by the two message variants that carry a
// correlation token used to match a frontend request with its backend
// response.
type Tokenized interface {
	GetToken() string
	SetToken(string)
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func anyToStrings(vs []any) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, ok := v.(string)
		if !ok {
			return nil, typeMismatch("element", "string", v)
		}
		out[i] = s
	}
	return out, nil
}

// ---- Shutdown ----

// Shutdown notifies the peer that the sender is terminating the connection
// cleanly.
type Shutdown struct{}

func (Shutdown) Fields() []Field     { return nil }
func (Shutdown) MessageName() string { return "shutdown" }

// ---- BackendAlive ----

// BackendAlive is a periodic liveness beacon sent by the backend.
type BackendAlive struct{}

func (BackendAlive) Fields() []Field     { return nil }
func (BackendAlive) MessageName() string { return "backendAlive" }

// ---- ContentSync ----

// ContentSync carries a range-replace edit to a file's buffer.
type ContentSync struct {
	File  string
	Data  string
	Start int
	End   *int
}

func (m *ContentSync) Fields() []Field {
	return []Field{
		StringField("file", func() string { return m.File }, func(v string) { m.File = v }, "", false),
		StringField("data", func() string { return m.Data }, func(v string) { m.Data = v }, "", false),
		IntField("start", func() int { return m.Start }, func(v int) { m.Start = v }, 0, true),
		OptIntField("end", func() *int { return m.End }, func(v *int) { m.End = v }),
	}
}

func (*ContentSync) MessageName() string { return "contentSync" }

// ---- OutOfSync ----

// OutOfSync tells the frontend its buffer mirror for File has diverged and
// must be resent in full.
type OutOfSync struct {
	File string
}

func (m *OutOfSync) Fields() []Field {
	return []Field{
		StringField("file", func() string { return m.File }, func(v string) { m.File = v }, "", false),
	}
}

func (*OutOfSync) MessageName() string { return "outOfSync" }

// ---- CompletionRequest ----

// CompletionRequest asks the backend for completions at Pos in File.
type CompletionRequest struct {
	File  string
	Pos   int
	Limit *int
	Token string
}

func (m *CompletionRequest) Fields() []Field {
	return []Field{
		StringField("file", func() string { return m.File }, func(v string) { m.File = v }, "", false),
		IntField("pos", func() int { return m.Pos }, func(v int) { m.Pos = v }, 0, false),
		OptIntField("limit", func() *int { return m.Limit }, func(v *int) { m.Limit = v }),
		StringField("token", func() string { return m.Token }, func(v string) { m.Token = v }, "", false),
	}
}

func (*CompletionRequest) MessageName() string { return "completionRequest" }
func (m *CompletionRequest) GetToken() string  { return m.Token }
func (m *CompletionRequest) SetToken(t string) { m.Token = t }

// ---- CompletionResponse ----

// CompletionResponse answers a CompletionRequest with a replacement range
// and candidate options.
type CompletionResponse struct {
	Start         int
	End           int
	LimitExceeded bool
	Options       []CompletionOption
	Token         string
}

func (m *CompletionResponse) Fields() []Field {
	return []Field{
		IntField("start", func() int { return m.Start }, func(v int) { m.Start = v }, 0, false),
		IntField("end", func() int { return m.End }, func(v int) { m.End = v }, 0, false),
		BoolField("limitExceeded", func() bool { return m.LimitExceeded }, func(v bool) { m.LimitExceeded = v }, false),
		SeqField("options", KindRecord,
			func() []any {
				out := make([]any, len(m.Options))
				for i := range m.Options {
					out[i] = &m.Options[i]
				}
				return out
			},
			func(vs []any) {
				opts := make([]CompletionOption, len(vs))
				for i, v := range vs {
					opts[i] = *(v.(*CompletionOption))
				}
				m.Options = opts
			},
			func() Record { return &CompletionOption{} },
		),
		StringField("token", func() string { return m.Token }, func(v string) { m.Token = v }, "", false),
	}
}

func (*CompletionResponse) MessageName() string { return "completionResponse" }
func (m *CompletionResponse) GetToken() string  { return m.Token }
func (m *CompletionResponse) SetToken(t string) { m.Token = t }

// ---- CompletionOption ----

// CompletionOption is one candidate completion offered in a
// CompletionResponse.
type CompletionOption struct {
	Insert      string
	Desc        *string
	LongDesc    *string
	Semantics   *SemanticType
	ExtensionId *string
}

func (m *CompletionOption) Fields() []Field {
	return []Field{
		StringField("insert", func() string { return m.Insert }, func(v string) { m.Insert = v }, "", false),
		OptStringField("desc", func() *string { return m.Desc }, func(v *string) { m.Desc = v }),
		OptStringField("longDesc", func() *string { return m.LongDesc }, func(v *string) { m.LongDesc = v }),
		OptEnumField("semantics",
			func() bool { return m.Semantics == nil },
			func() any { return *m.Semantics },
			func(v any) {
				if v == nil {
					m.Semantics = nil
					return
				}
				st := v.(SemanticType)
				m.Semantics = &st
			},
			encodeSemanticType, decodeSemanticType,
		),
		OptStringField("extensionId", func() *string { return m.ExtensionId }, func(v *string) { m.ExtensionId = v }),
	}
}

// ---- CompletionInvocation ----

// CompletionInvocation tells the backend which extension triggered the
// upcoming completion request, for multi-extension disambiguation.
type CompletionInvocation struct {
	ExtensionId string
}

func (m *CompletionInvocation) Fields() []Field {
	return []Field{
		StringField("extensionId", func() string { return m.ExtensionId }, func(v string) { m.ExtensionId = v }, "", false),
	}
}

func (*CompletionInvocation) MessageName() string { return "completionInvocation" }

// ---- ProblemUpdate ----

// ProblemUpdate carries the backend's current diagnostics, optionally as a
// partial update layered over a prior full update.
type ProblemUpdate struct {
	FileProblems []FileProblems
	Partial      bool
}

func (m *ProblemUpdate) Fields() []Field {
	return []Field{
		SeqField("fileProblems", KindRecord,
			func() []any {
				out := make([]any, len(m.FileProblems))
				for i := range m.FileProblems {
					out[i] = &m.FileProblems[i]
				}
				return out
			},
			func(vs []any) {
				fps := make([]FileProblems, len(vs))
				for i, v := range vs {
					fps[i] = *(v.(*FileProblems))
				}
				m.FileProblems = fps
			},
			func() Record { return &FileProblems{} },
		),
		BoolField("partial", func() bool { return m.Partial }, func(v bool) { m.Partial = v }, false),
	}
}

func (*ProblemUpdate) MessageName() string { return "problemUpdate" }

// ---- FileProblems ----

// FileProblems is the set of diagnostics for a single file, optionally
// windowed over a line range.
type FileProblems struct {
	File     string
	Problems []Problem
	Total    *int
	Start    int
	End      *int
}

func (m *FileProblems) Fields() []Field {
	return []Field{
		StringField("file", func() string { return m.File }, func(v string) { m.File = v }, "", false),
		SeqField("problems", KindRecord,
			func() []any {
				out := make([]any, len(m.Problems))
				for i := range m.Problems {
					out[i] = &m.Problems[i]
				}
				return out
			},
			func(vs []any) {
				ps := make([]Problem, len(vs))
				for i, v := range vs {
					ps[i] = *(v.(*Problem))
				}
				m.Problems = ps
			},
			func() Record { return &Problem{} },
		),
		OptIntField("total", func() *int { return m.Total }, func(v *int) { m.Total = v }),
		IntField("start", func() int { return m.Start }, func(v int) { m.Start = v }, 0, true),
		OptIntField("end", func() *int { return m.End }, func(v *int) { m.End = v }),
	}
}

// ---- Problem ----

// Problem is a single diagnostic at a given line.
type Problem struct {
	Message  string
	Severity Severity
	Line     int
}

func (m *Problem) Fields() []Field {
	return []Field{
		StringField("message", func() string { return m.Message }, func(v string) { m.Message = v }, "", false),
		EnumField("severity",
			func() any { return m.Severity },
			func(v any) error { m.Severity = v.(Severity); return nil },
			encodeSeverity, decodeSeverity,
		),
		IntField("line", func() int { return m.Line }, func(v int) { m.Line = v }, 0, false),
	}
}

// ---- StaticSyntaxRequest ----

// StaticSyntaxRequest asks the backend for syntax definitions in Format,
// optionally narrowed to FileExtensions.
type StaticSyntaxRequest struct {
	Format         SyntaxFormatType
	FileExtensions []string
}

func (m *StaticSyntaxRequest) Fields() []Field {
	return []Field{
		EnumField("format",
			func() any { return m.Format },
			func(v any) error { m.Format = v.(SyntaxFormatType); return nil },
			encodeSyntaxFormatType, decodeSyntaxFormatType,
		),
		SeqField("fileExtensions", KindScalar,
			func() []any { return stringsToAny(m.FileExtensions) },
			func(vs []any) {
				ss, err := anyToStrings(vs)
				if err == nil {
					m.FileExtensions = ss
				}
			},
			nil,
		),
	}
}

func (*StaticSyntaxRequest) MessageName() string { return "staticSyntaxRequest" }

// ---- StaticSyntaxList ----

// StaticSyntaxList answers a StaticSyntaxRequest with the matching syntax
// definitions.
type StaticSyntaxList struct {
	Format   SyntaxFormatType
	Syntaxes []StaticSyntax
}

func (m *StaticSyntaxList) Fields() []Field {
	return []Field{
		EnumField("format",
			func() any { return m.Format },
			func(v any) error { m.Format = v.(SyntaxFormatType); return nil },
			encodeSyntaxFormatType, decodeSyntaxFormatType,
		),
		SeqField("syntaxes", KindRecord,
			func() []any {
				out := make([]any, len(m.Syntaxes))
				for i := range m.Syntaxes {
					out[i] = &m.Syntaxes[i]
				}
				return out
			},
			func(vs []any) {
				ss := make([]StaticSyntax, len(vs))
				for i, v := range vs {
					ss[i] = *(v.(*StaticSyntax))
				}
				m.Syntaxes = ss
			},
			func() Record { return &StaticSyntax{} },
		),
	}
}

func (*StaticSyntaxList) MessageName() string { return "staticSyntaxList" }

// ---- StaticSyntax ----

// StaticSyntax is one named syntax definition, in the wire format named by
// its containing StaticSyntaxList/StaticSyntaxRequest.
type StaticSyntax struct {
	Name           string
	FileExtensions []string
	Definition     string
}

func (m *StaticSyntax) Fields() []Field {
	return []Field{
		StringField("name", func() string { return m.Name }, func(v string) { m.Name = v }, "", false),
		SeqField("fileExtensions", KindScalar,
			func() []any { return stringsToAny(m.FileExtensions) },
			func(vs []any) {
				ss, err := anyToStrings(vs)
				if err == nil {
					m.FileExtensions = ss
				}
			},
			nil,
		),
		StringField("definition", func() string { return m.Definition }, func(v string) { m.Definition = v }, "", false),
	}
}
