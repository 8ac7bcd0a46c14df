package networking

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"make directory", MakeDirectory{RelativePath: "root/sub"}},
		{"make directory empty path", MakeDirectory{RelativePath: ""}},
		{"make directory unicode", MakeDirectory{RelativePath: "root/ünïcødé/日本"}},
		{"begin file", BeginFile{RelativePath: "root/a.txt", FileSize: 11}},
		{"begin file empty path", BeginFile{RelativePath: "", FileSize: 0}},
		{"begin file max size", BeginFile{RelativePath: "big.bin", FileSize: math.MaxUint64}},
		{"file chunk", FileChunk{Data: []byte("hello world")}},
		{"file chunk zero value", FileChunk{}},
		{"file chunk full block", FileChunk{Data: bytes.Repeat([]byte{0x5A}, 64*1024)}},
		{"end file", EndFile{}},
		{"ack", EndFileAcknowledgment{Checksum: bytes.Repeat([]byte{0x01}, 20)}},
		{"ack zero value", EndFileAcknowledgment{}},
		{"end session", EndSession{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestCodec_EmptyBytesDecodeAsNil(t *testing.T) {
	chunk, err := Decode(Encode(FileChunk{Data: []byte{}}))
	require.NoError(t, err)
	assert.Nil(t, chunk.(FileChunk).Data)
	assert.True(t, reflect.DeepEqual(FileChunk{}, chunk))

	ack, err := Decode(Encode(EndFileAcknowledgment{}))
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(EndFileAcknowledgment{}, ack))
}

func TestCodec_WireLayout(t *testing.T) {
	got := Encode(BeginFile{RelativePath: "ab", FileSize: 258})

	want := []byte{
		0x00, 0x00, 0x00, 0x01, // tag
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, // path length
		'a', 'b',
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02, // file size
	}
	assert.Equal(t, want, got)

	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x03}, Encode(EndFile{}))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, Encode(EndSession{}))
}

func TestCodec_TagsFollowDeclarationOrder(t *testing.T) {
	msgs := []Message{
		MakeDirectory{}, BeginFile{}, FileChunk{}, EndFile{}, EndFileAcknowledgment{}, EndSession{},
	}
	for i, m := range msgs {
		assert.Equal(t, uint32(i), binary.BigEndian.Uint32(Encode(m)[:4]), Describe(m))
	}
}

func TestDecode_Errors(t *testing.T) {
	chunk := Encode(FileChunk{Data: []byte("abcdef")})

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", []byte{}},
		{"short tag", []byte{0x00, 0x00}},
		{"unknown tag", []byte{0x00, 0x00, 0x00, 0x06}},
		{"huge tag", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"missing path length", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{"truncated chunk data", chunk[:len(chunk)-2]},
		{"declared length beyond buffer", append([]byte{0x00, 0x00, 0x00, 0x02}, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)},
		{"payload missing its tag", Encode(MakeDirectory{RelativePath: "x"})[4:]},
		{"trailing bytes", append(Encode(EndFile{}), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.payload)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.True(t, IsDecodeError(err), "got %T", err)
		})
	}
}

func TestDecode_BeginFileMissingSize(t *testing.T) {
	payload := Encode(BeginFile{RelativePath: "file.txt", FileSize: 7})
	_, err := Decode(payload[:len(payload)-8])
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestStream_SendReceive(t *testing.T) {
	var wire bytes.Buffer
	sender := NewStream(&wire)

	sent := []Message{
		MakeDirectory{RelativePath: "root"},
		BeginFile{RelativePath: "root/a.txt", FileSize: 3},
		FileChunk{Data: []byte("abc")},
		EndFile{},
		EndSession{},
	}
	for _, m := range sent {
		require.NoError(t, sender.Send(m))
	}

	receiver := NewStream(&wire)
	for _, want := range sent {
		got, err := receiver.Receive()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
