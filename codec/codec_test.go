package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jointeditors/jep/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := &wire.OutOfSync{File: "main.go"}
	data, err := Encode(orig)
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(data)
	msg, ok, err := d.Pull()
	require.NoError(t, err)
	require.True(t, ok)

	got, isOutOfSync := msg.(*wire.OutOfSync)
	require.True(t, isOutOfSync)
	assert.Equal(t, orig.File, got.File)
	assert.Equal(t, 0, d.Pending())
}

func TestPullOnEmptyBufferIsNotAnError(t *testing.T) {
	d := NewDecoder()
	msg, ok, err := d.Pull()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
}

func TestPullRetainsIncompleteMessage(t *testing.T) {
	data, err := Encode(&wire.OutOfSync{File: "main.go"})
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(data[:len(data)-1])
	msg, ok, err := d.Pull()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
	assert.Equal(t, len(data)-1, d.Pending())

	d.Push(data[len(data)-1:])
	msg, ok, err = d.Pull()
	require.NoError(t, err)
	require.True(t, ok)
	_, isOutOfSync := msg.(*wire.OutOfSync)
	assert.True(t, isOutOfSync)
}

// TestPartitionInvariant checks that splitting a stream of concatenated
// messages into any sequence of Push calls yields the same ordered list of
// decoded messages as pushing it all at once.
func TestPartitionInvariant(t *testing.T) {
	msgs := []wire.Message{
		&wire.OutOfSync{File: "a.go"},
		wire.BackendAlive{},
		&wire.CompletionRequest{File: "b.go", Pos: 4, Token: "t1"},
		wire.Shutdown{},
	}

	var all []byte
	for _, m := range msgs {
		data, err := Encode(m)
		require.NoError(t, err)
		all = append(all, data...)
	}

	partitions := [][]int{
		{len(all)},
		splitEvery(all, 1),
		splitEvery(all, 3),
		splitEvery(all, 7),
	}

	for _, sizes := range partitions {
		d := NewDecoder()
		var decoded []wire.Message
		offset := 0
		for _, size := range sizes {
			d.Push(all[offset : offset+size])
			offset += size
			for {
				msg, ok, err := d.Pull()
				require.NoError(t, err)
				if !ok {
					break
				}
				decoded = append(decoded, msg)
			}
		}
		require.Len(t, decoded, len(msgs))
		for i, m := range msgs {
			assert.Equal(t, m.MessageName(), decoded[i].MessageName())
		}
	}
}

func splitEvery(data []byte, n int) []int {
	var sizes []int
	for len(data) > 0 {
		if n > len(data) {
			n = len(data)
		}
		sizes = append(sizes, n)
		data = data[n:]
	}
	return sizes
}

func TestPullUnknownMessageName(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{messageKey: "notARealVariant"})
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(data)
	_, ok, err := d.Pull()
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestPullRetainsMalformedBytes(t *testing.T) {
	// Bytes that are not a valid MessagePack map are indistinguishable from
	// a message that has not fully arrived yet, so they stay buffered.
	d := NewDecoder()
	d.Push([]byte{0xc1, 0xff, 0xff})
	msg, ok, err := d.Pull()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
	assert.Equal(t, 3, d.Pending())
}

func TestDrainYieldsBufferedMessagesInOrder(t *testing.T) {
	d := NewDecoder()
	for _, m := range []wire.Message{
		&wire.OutOfSync{File: "a.go"},
		wire.BackendAlive{},
		&wire.OutOfSync{File: "b.go"},
	} {
		data, err := Encode(m)
		require.NoError(t, err)
		d.Push(data)
	}

	var names []string
	for msg := range d.Drain() {
		names = append(names, msg.MessageName())
	}
	assert.Equal(t, []string{"outOfSync", "backendAlive", "outOfSync"}, names)
	assert.Equal(t, 0, d.Pending())
}

func TestDrainStopsAtIncompleteTail(t *testing.T) {
	complete, err := Encode(&wire.OutOfSync{File: "a.go"})
	require.NoError(t, err)
	partial, err := Encode(&wire.OutOfSync{File: "b.go"})
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(complete)
	d.Push(partial[:len(partial)-2])

	count := 0
	for range d.Drain() {
		count++
	}
	assert.Equal(t, 1, count)
	// The strict prefix of the next message is retained for the next Push.
	assert.Equal(t, len(partial)-2, d.Pending())
}

func TestDrainSkipsUnknownVariant(t *testing.T) {
	unknown, err := msgpack.Marshal(map[string]any{messageKey: "notARealVariant"})
	require.NoError(t, err)
	known, err := Encode(&wire.OutOfSync{File: "a.go"})
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(unknown)
	d.Push(known)

	var names []string
	for msg := range d.Drain() {
		names = append(names, msg.MessageName())
	}
	assert.Equal(t, []string{"outOfSync"}, names)
}

func TestNoDoubleDelivery(t *testing.T) {
	data, err := Encode(&wire.OutOfSync{File: "a.go"})
	require.NoError(t, err)

	d := NewDecoder()
	d.Push(data)
	_, ok, err := d.Pull()
	require.NoError(t, err)
	require.True(t, ok)

	msg, ok, err := d.Pull()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
}
