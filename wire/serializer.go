package wire

import (
	"fmt"
	"reflect"
)

// wrapf wraps a sentinel with additional context, keeping errors.Is working
// against the sentinels declared in errors.go.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}

// Marshal converts rec into the generic structural value (a map keyed by
// field name) per the default-omission rule: a field is written only when
// its current value differs from its declared default. Fields with no
// declared default are always written.
func Marshal(rec Record) (map[string]any, error) {
	out := make(map[string]any)
	for _, f := range rec.Fields() {
		v := f.Get()
		if f.HasDefault && reflect.DeepEqual(v, f.Default) {
			continue
		}
		enc, err := encodeFieldValue(f, v)
		if err != nil {
			return nil, wrapf(err, "field %q", f.Name)
		}
		out[f.Name] = enc
	}
	return out, nil
}

func encodeFieldValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindEnum:
		name, err := f.EncodeEnum(v)
		if err != nil {
			return nil, err
		}
		return name, nil
	case KindRecord:
		rec, ok := v.(Record)
		if !ok {
			return nil, typeMismatch(f.Name, "record", v)
		}
		return Marshal(rec)
	case KindSeq:
		seq, ok := v.([]any)
		if !ok {
			return nil, typeMismatch(f.Name, "sequence", v)
		}
		out := make([]any, len(seq))
		for i, elem := range seq {
			enc, err := encodeSeqElem(f, elem)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

func encodeSeqElem(f Field, elem any) (any, error) {
	switch f.ElemKind {
	case KindEnum:
		return f.EncodeEnum(elem)
	case KindRecord:
		rec, ok := elem.(Record)
		if !ok {
			return nil, typeMismatch(f.Name, "record element", elem)
		}
		return Marshal(rec)
	default:
		return elem, nil
	}
}

// Unmarshal populates rec's fields from data, filling declared defaults for
// absent fields and returning ErrMissingField for any field with no default
// that data does not supply.
func Unmarshal(data map[string]any, rec Record) error {
	for _, f := range rec.Fields() {
		raw, present := data[f.Name]
		if !present {
			if f.HasDefault {
				if err := f.Set(defaultValue(f)); err != nil {
					return wrapf(err, "field %q", f.Name)
				}
				continue
			}
			return wrapf(ErrMissingField, "field %q", f.Name)
		}
		dec, err := decodeFieldValue(f, raw)
		if err != nil {
			return wrapf(err, "field %q", f.Name)
		}
		if err := f.Set(dec); err != nil {
			return wrapf(err, "field %q", f.Name)
		}
	}
	return nil
}

func defaultValue(f Field) any {
	switch f.Kind {
	case KindEnum, KindRecord, KindSeq:
		return nil
	default:
		return f.Default
	}
}

func decodeFieldValue(f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindEnum:
		name, ok := raw.(string)
		if !ok {
			return nil, typeMismatch(f.Name, "enum name string", raw)
		}
		v, err := f.DecodeEnum(name)
		if err != nil {
			return nil, err
		}
		return v, nil
	case KindRecord:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeMismatch(f.Name, "map", raw)
		}
		elem := f.NewElem()
		if err := Unmarshal(m, elem); err != nil {
			return nil, err
		}
		return elem, nil
	case KindSeq:
		seq, ok := toAnySlice(raw)
		if !ok {
			return nil, typeMismatch(f.Name, "sequence", raw)
		}
		out := make([]any, len(seq))
		for i, elem := range seq {
			dec, err := decodeSeqElem(f, elem)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return raw, nil
	}
}

func decodeSeqElem(f Field, raw any) (any, error) {
	switch f.ElemKind {
	case KindEnum:
		name, ok := raw.(string)
		if !ok {
			return nil, typeMismatch(f.Name, "enum name string", raw)
		}
		return f.DecodeEnum(name)
	case KindRecord:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeMismatch(f.Name, "map", raw)
		}
		elem := f.NewElem()
		if err := Unmarshal(m, elem); err != nil {
			return nil, err
		}
		return elem, nil
	default:
		return raw, nil
	}
}

// toAnySlice accepts both []any (the common shape after a generic decode)
// and typed slices obtained via msgpack's ArrayAny-style fallback.
func toAnySlice(raw any) ([]any, bool) {
	if s, ok := raw.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
