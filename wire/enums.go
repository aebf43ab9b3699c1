package wire

// Severity is the closed enum of problem severities.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
	SeverityFatal
)

var severityNames = map[Severity]string{
	SeverityDebug: "debug",
	SeverityInfo:  "info",
	SeverityWarn:  "warn",
	SeverityError: "error",
	SeverityFatal: "fatal",
}

var severityByName = reverseOf(severityNames)

// String returns the wire's textual name for sev.
func (sev Severity) String() string {
	if name, ok := severityNames[sev]; ok {
		return name
	}
	return "unknown"
}

func encodeSeverity(v any) (string, error) {
	sev, ok := v.(Severity)
	if !ok {
		return "", typeMismatch("severity", "Severity", v)
	}
	name, ok := severityNames[sev]
	if !ok {
		return "", wrapf(ErrBadEnumName, "severity value %d", int(sev))
	}
	return name, nil
}

func decodeSeverity(name string) (any, error) {
	sev, ok := severityByName[name]
	if !ok {
		return nil, wrapf(ErrBadEnumName, "severity %q", name)
	}
	return sev, nil
}

// SemanticType is the closed enum of completion-option semantic categories.
type SemanticType int

const (
	SemanticComment SemanticType = iota
	SemanticDataType
	SemanticString
	SemanticNumber
	SemanticIdentifier
	SemanticKeyword
	SemanticLabel
	SemanticLink
	SemanticSpecial1
	SemanticSpecial2
	SemanticSpecial3
	SemanticSpecial4
	SemanticSpecial5
)

var semanticTypeNames = map[SemanticType]string{
	SemanticComment:    "comment",
	SemanticDataType:   "type",
	SemanticString:     "string",
	SemanticNumber:     "number",
	SemanticIdentifier: "identifier",
	SemanticKeyword:    "keyword",
	SemanticLabel:      "label",
	SemanticLink:       "link",
	SemanticSpecial1:   "special1",
	SemanticSpecial2:   "special2",
	SemanticSpecial3:   "special3",
	SemanticSpecial4:   "special4",
	SemanticSpecial5:   "special5",
}

var semanticTypeByName = reverseOf(semanticTypeNames)

func (st SemanticType) String() string {
	if name, ok := semanticTypeNames[st]; ok {
		return name
	}
	return "unknown"
}

func encodeSemanticType(v any) (string, error) {
	st, ok := v.(SemanticType)
	if !ok {
		return "", typeMismatch("semantics", "SemanticType", v)
	}
	name, ok := semanticTypeNames[st]
	if !ok {
		return "", wrapf(ErrBadEnumName, "semantic type value %d", int(st))
	}
	return name, nil
}

func decodeSemanticType(name string) (any, error) {
	st, ok := semanticTypeByName[name]
	if !ok {
		return nil, wrapf(ErrBadEnumName, "semantic type %q", name)
	}
	return st, nil
}

// SyntaxFormatType is the closed enum of static-syntax wire formats.
type SyntaxFormatType int

const (
	SyntaxFormatTextmate SyntaxFormatType = iota
	SyntaxFormatVim
)

var syntaxFormatNames = map[SyntaxFormatType]string{
	SyntaxFormatTextmate: "textmate",
	SyntaxFormatVim:      "vim",
}

var syntaxFormatByName = reverseOf(syntaxFormatNames)

func (sf SyntaxFormatType) String() string {
	if name, ok := syntaxFormatNames[sf]; ok {
		return name
	}
	return "unknown"
}

func encodeSyntaxFormatType(v any) (string, error) {
	sf, ok := v.(SyntaxFormatType)
	if !ok {
		return "", typeMismatch("format", "SyntaxFormatType", v)
	}
	name, ok := syntaxFormatNames[sf]
	if !ok {
		return "", wrapf(ErrBadEnumName, "syntax format value %d", int(sf))
	}
	return name, nil
}

func decodeSyntaxFormatType(name string) (any, error) {
	sf, ok := syntaxFormatByName[name]
	if !ok {
		return nil, wrapf(ErrBadEnumName, "syntax format %q", name)
	}
	return sf, nil
}

// ParseSyntaxFormatType looks up a SyntaxFormatType by its wire name, for
// callers outside the codec (e.g. syntax.Registry.LoadDir matching
// directory names to formats).
func ParseSyntaxFormatType(name string) (SyntaxFormatType, bool) {
	sf, ok := syntaxFormatByName[name]
	return sf, ok
}

func reverseOf[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
