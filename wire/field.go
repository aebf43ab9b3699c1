package wire

// Kind classifies how a field's value is mapped to and from the generic
// structural value (scalar, byte string, ordered sequence, keyed mapping).
type Kind int

const (
	// KindScalar covers strings, booleans, and integers that pass through
	// unchanged.
	KindScalar Kind = iota
	// KindEnum covers enumerations, serialized as their textual name.
	KindEnum
	// KindRecord covers nested records, which recurse through Marshal/Unmarshal.
	KindRecord
	// KindSeq covers homogeneous ordered sequences of ElemKind.
	KindSeq
)

// Record is any type whose instances can be converted to and from the
// generic structural value via its declared Fields. Both top-level messages
// and nested record types (Problem, FileProblems, ...) implement Record.
type Record interface {
	// Fields returns the attribute descriptors for this instance. Each
	// descriptor's Get/Set closures are bound to the specific instance
	// Fields was called on.
	Fields() []Field
}

// Message is a top-level variant of the closed message schema. Its
// MessageName is the value written under the wire protocol's reserved
// "_message" key.
type Message interface {
	Record
	MessageName() string
}

// Field is a declarative attribute descriptor: name, datatype, optional
// element type, optional default. The serializer is driven purely by these
// descriptors, never by reflecting over the host struct's fields.
type Field struct {
	Name       string
	Kind       Kind
	ElemKind   Kind // meaningful only when Kind == KindSeq
	Default    any
	HasDefault bool

	Get func() any
	Set func(any) error

	// NewElem constructs a zero-value nested Record, used to recurse into
	// KindRecord fields and KindSeq-of-KindRecord elements on decode.
	NewElem func() Record

	// EncodeEnum/DecodeEnum convert an enum's underlying value to/from its
	// textual wire name. Meaningful only when Kind (or ElemKind, for a
	// sequence of enums) == KindEnum.
	EncodeEnum func(any) (string, error)
	DecodeEnum func(string) (any, error)
}

// StringField declares a required or default-valued string attribute.
func StringField(name string, get func() string, set func(string), def string, hasDefault bool) Field {
	return Field{
		Name: name, Kind: KindScalar, Default: def, HasDefault: hasDefault,
		Get: func() any { return get() },
		Set: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return typeMismatch(name, "string", v)
			}
			set(s)
			return nil
		},
	}
}

// OptStringField declares an optional (*string) attribute, omitted on the
// wire when nil.
func OptStringField(name string, get func() *string, set func(*string)) Field {
	return Field{
		// Default is a bare nil interface, matching what Get returns for an
		// unset pointer; a typed nil here would defeat the DeepEqual
		// omission check in Marshal.
		Name: name, Kind: KindScalar, Default: nil, HasDefault: true,
		Get: func() any {
			if p := get(); p != nil {
				return *p
			}
			return nil
		},
		Set: func(v any) error {
			if v == nil {
				set(nil)
				return nil
			}
			s, ok := v.(string)
			if !ok {
				return typeMismatch(name, "string", v)
			}
			set(&s)
			return nil
		},
	}
}

// BoolField declares a boolean attribute with a declared default.
func BoolField(name string, get func() bool, set func(bool), def bool) Field {
	return Field{
		Name: name, Kind: KindScalar, Default: def, HasDefault: true,
		Get: func() any { return get() },
		Set: func(v any) error {
			b, ok := v.(bool)
			if !ok {
				return typeMismatch(name, "bool", v)
			}
			set(b)
			return nil
		},
	}
}

// IntField declares a required or default-valued integer attribute. Decode
// accepts any of the integer/float shapes a MessagePack decoder commonly
// produces for a map value typed as interface{}.
func IntField(name string, get func() int, set func(int), def int, hasDefault bool) Field {
	return Field{
		Name: name, Kind: KindScalar, Default: def, HasDefault: hasDefault,
		Get: func() any { return get() },
		Set: func(v any) error {
			n, ok := coerceInt(v)
			if !ok {
				return typeMismatch(name, "int", v)
			}
			set(n)
			return nil
		},
	}
}

// OptIntField declares an optional (*int) attribute, omitted on the wire
// when nil.
func OptIntField(name string, get func() *int, set func(*int)) Field {
	return Field{
		Name: name, Kind: KindScalar, Default: nil, HasDefault: true,
		Get: func() any {
			if p := get(); p != nil {
				return *p
			}
			return nil
		},
		Set: func(v any) error {
			if v == nil {
				set(nil)
				return nil
			}
			n, ok := coerceInt(v)
			if !ok {
				return typeMismatch(name, "int", v)
			}
			set(&n)
			return nil
		},
	}
}

// RecordField declares a required nested-record attribute.
func RecordField(name string, get func() Record, set func(Record), newElem func() Record) Field {
	return Field{
		Name: name, Kind: KindRecord, HasDefault: false,
		Get:     func() any { return get() },
		NewElem: newElem,
		Set: func(v any) error {
			rec, ok := v.(Record)
			if !ok {
				return typeMismatch(name, "record", v)
			}
			set(rec)
			return nil
		},
	}
}

// SeqField declares a homogeneous ordered sequence attribute. get/set work
// with []any so a single engine handles scalar, enum, and record elements
// alike; callers convert to/from their concrete slice type in the closures.
func SeqField(name string, elemKind Kind, get func() []any, set func([]any), newElem func() Record) Field {
	return Field{
		Name: name, Kind: KindSeq, ElemKind: elemKind, HasDefault: false,
		Get:     func() any { return get() },
		NewElem: newElem,
		Set: func(v any) error {
			seq, ok := v.([]any)
			if !ok {
				return typeMismatch(name, "sequence", v)
			}
			set(seq)
			return nil
		},
	}
}

// EnumField declares an enum-valued attribute, serialized as its textual
// name.
func EnumField(name string, get func() any, set func(any) error, encode func(any) (string, error), decode func(string) (any, error)) Field {
	return Field{
		Name: name, Kind: KindEnum, HasDefault: false,
		Get: get, Set: set,
		EncodeEnum: encode, DecodeEnum: decode,
	}
}

// OptEnumField declares an optional enum-valued attribute, omitted when the
// pointer is nil.
func OptEnumField(name string, isNil func() bool, get func() any, set func(any), encode func(any) (string, error), decode func(string) (any, error)) Field {
	return Field{
		Name: name, Kind: KindEnum, Default: nil, HasDefault: true,
		Get: func() any {
			if isNil() {
				return nil
			}
			return get()
		},
		Set: func(v any) error {
			if v == nil {
				set(nil)
				return nil
			}
			set(v)
			return nil
		},
		EncodeEnum: encode, DecodeEnum: decode,
	}
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func typeMismatch(field, want string, got any) error {
	return wrapf(ErrTypeMismatch, "field %q expected %s, got %T", field, want, got)
}
