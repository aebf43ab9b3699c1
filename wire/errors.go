// Package wire implements the structural serializer and the closed message
// schema of the Joint Editors Protocol: mapping typed records to and from a
// generic structural value using declarative attribute descriptors, and the
// visitor-dispatch hooks used to deliver decoded messages to listeners.
package wire

import "errors"

// Sentinel errors for the serializer's closed failure set.
var (
	// ErrBadEnumName is returned when a decoded enum value has no matching
	// name in the enum's table.
	ErrBadEnumName = errors.New("wire: unknown enum name")
	// ErrMissingField is returned when a field without a declared default
	// is absent from the decoded structural value.
	ErrMissingField = errors.New("wire: missing required field")
	// ErrTypeMismatch is returned when a decoded value's dynamic type does
	// not match what the field descriptor expects.
	ErrTypeMismatch = errors.New("wire: type mismatch")
	// ErrUnknownMessage is returned by the schema registry when a decoded
	// map's "_message" key names a variant outside the closed set.
	ErrUnknownMessage = errors.New("wire: unknown message variant")
)
