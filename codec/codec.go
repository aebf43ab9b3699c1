// Package codec implements the Joint Editors Protocol's framed codec: a
// streaming decoder over an append-only byte buffer that never delivers a
// message twice and always retains incomplete data for the next push, plus
// the matching encoder.
//
// The wire format carries no explicit length prefix: each message is a
// self-delimiting MessagePack value, and the decoder relies on the
// MessagePack decoder's own knowledge of where a value ends.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jointeditors/jep/wire"
)

// ErrUnknownMessage is returned by Pull when a decoded value's "_message"
// key names a variant outside the closed schema.
var ErrUnknownMessage = wire.ErrUnknownMessage

// messageKey is the reserved map key naming a message's variant.
const messageKey = "_message"

// Decoder accumulates pushed bytes and yields complete messages one at a
// time. It is not safe for concurrent use; callers run it on a single
// cooperative loop per connection, matching the rest of the protocol's
// concurrency model.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Push appends newly read bytes to the decoder's buffer. It never blocks
// and never parses; parsing happens in Pull.
func (d *Decoder) Push(data []byte) {
	d.buf = append(d.buf, data...)
}

// Pull attempts to decode exactly one complete message from the front of
// the buffered bytes. It returns (msg, true, nil) on success, consuming
// those bytes; (nil, false, nil) when the buffer does not start with a
// complete MessagePack map (the bytes are retained, untouched, for the
// next Pull after a further Push; a byte-level decode error is
// indistinguishable from a message that has not fully arrived yet); and
// (nil, false, err) when a complete map was consumed but is not a valid
// closed-schema message.
func (d *Decoder) Pull() (wire.Message, bool, error) {
	if len(d.buf) == 0 {
		return nil, false, nil
	}

	r := bytes.NewReader(d.buf)
	dec := msgpack.NewDecoder(r)
	raw, err := dec.DecodeMap()
	if err != nil {
		return nil, false, nil
	}

	consumed := len(d.buf) - r.Len()
	name, ok := raw[messageKey].(string)
	if !ok {
		d.advance(consumed)
		return nil, false, fmt.Errorf("codec: decoded value has no %q tag", messageKey)
	}

	msg, ok := wire.ByName(name)
	if !ok {
		d.advance(consumed)
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
	}

	delete(raw, messageKey)
	if err := wire.Unmarshal(raw, msg); err != nil {
		d.advance(consumed)
		return nil, false, fmt.Errorf("codec: unmarshal %q: %w", name, err)
	}

	d.advance(consumed)
	return msg, true, nil
}

// Drain yields every complete message at the front of the buffer, in
// order, stopping once the remaining bytes are not a complete message. The
// sequence is finite and single-use; after it ends, the buffer is either
// empty or holds a strict prefix of the next message. A complete map that
// fails schema validation is logged and skipped so one bad message cannot
// stall the stream behind it.
func (d *Decoder) Drain() iter.Seq[wire.Message] {
	return func(yield func(wire.Message) bool) {
		for {
			msg, ok, err := d.Pull()
			if err != nil {
				logger.WarnKV("message decode error", "error", err)
				continue
			}
			if !ok {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Pending reports how many bytes are currently buffered awaiting a
// complete message.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) advance(n int) {
	d.buf = d.buf[n:]
}

// Encode serializes msg into its wire representation: the message's
// structural value (via wire.Marshal) with the reserved "_message" key set
// to msg.MessageName(), MessagePack-encoded.
func Encode(msg wire.Message) ([]byte, error) {
	fields, err := wire.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %q: %w", msg.MessageName(), err)
	}
	fields[messageKey] = msg.MessageName()

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("codec: encode %q: %w", msg.MessageName(), err)
	}
	return buf.Bytes(), nil
}

// EncodeTo writes msg's wire representation directly to w, for callers
// that already hold an open connection and want to avoid an intermediate
// allocation.
func EncodeTo(w io.Writer, msg wire.Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
