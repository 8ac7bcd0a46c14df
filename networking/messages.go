package networking

import (
	"encoding/binary"
	"fmt"

	"go_dir_sync/networking/opcode"
)

// Message is one protocol event. The set of implementations is closed.
type Message interface {
	Opcode() uint32
	appendFields(buf []byte) []byte
}

// MakeDirectory asks the server to create a directory under the backup root
type MakeDirectory struct {
	RelativePath string
}

// BeginFile opens (or truncates) a destination file
type BeginFile struct {
	RelativePath string
	FileSize     uint64
}

// FileChunk carries the next block of the open file
type FileChunk struct {
	Data []byte
}

// EndFile closes the open file and requests an acknowledgment
type EndFile struct{}

// EndFileAcknowledgment carries the server's digest of the finished file
type EndFileAcknowledgment struct {
	Checksum []byte
}

// EndSession terminates the connection
type EndSession struct{}

func (MakeDirectory) Opcode() uint32         { return opcode.MAKEDIRECTORY }
func (BeginFile) Opcode() uint32             { return opcode.BEGINFILE }
func (FileChunk) Opcode() uint32             { return opcode.FILECHUNK }
func (EndFile) Opcode() uint32               { return opcode.ENDFILE }
func (EndFileAcknowledgment) Opcode() uint32 { return opcode.ENDFILEACK }
func (EndSession) Opcode() uint32            { return opcode.ENDSESSION }

func (m MakeDirectory) appendFields(buf []byte) []byte {
	return appendBytes(buf, []byte(m.RelativePath))
}

func (m BeginFile) appendFields(buf []byte) []byte {
	buf = appendBytes(buf, []byte(m.RelativePath))
	return binary.BigEndian.AppendUint64(buf, m.FileSize)
}

func (m FileChunk) appendFields(buf []byte) []byte {
	return appendBytes(buf, m.Data)
}

func (EndFile) appendFields(buf []byte) []byte { return buf }

func (m EndFileAcknowledgment) appendFields(buf []byte) []byte {
	return appendBytes(buf, m.Checksum)
}

func (EndSession) appendFields(buf []byte) []byte { return buf }

// appendBytes writes a uint64 length followed by the bytes themselves
func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(b)))
	return append(buf, b...)
}

// Encode serializes a message as tag followed by its fields, all big-endian
func Encode(msg Message) []byte {
	buf := make([]byte, 0, encodedSize(msg))
	buf = binary.BigEndian.AppendUint32(buf, msg.Opcode())
	return msg.appendFields(buf)
}

func encodedSize(msg Message) int {
	const tag, length = 4, 8
	switch m := msg.(type) {
	case MakeDirectory:
		return tag + length + len(m.RelativePath)
	case BeginFile:
		return tag + length + len(m.RelativePath) + 8
	case FileChunk:
		return tag + length + len(m.Data)
	case EndFileAcknowledgment:
		return tag + length + len(m.Checksum)
	default:
		return tag
	}
}

// Decode is the inverse of Encode
func Decode(payload []byte) (Message, error) {
	d := decoder{buf: payload}

	tag, err := d.readUint32()
	if err != nil {
		return nil, err
	}

	var msg Message
	switch tag {
	case opcode.MAKEDIRECTORY:
		path, err := d.readBytes("relative path")
		if err != nil {
			return nil, err
		}
		msg = MakeDirectory{RelativePath: string(path)}
	case opcode.BEGINFILE:
		path, err := d.readBytes("relative path")
		if err != nil {
			return nil, err
		}
		size, err := d.readUint64("file size")
		if err != nil {
			return nil, err
		}
		msg = BeginFile{RelativePath: string(path), FileSize: size}
	case opcode.FILECHUNK:
		data, err := d.readBytes("chunk data")
		if err != nil {
			return nil, err
		}
		msg = FileChunk{Data: data}
	case opcode.ENDFILE:
		msg = EndFile{}
	case opcode.ENDFILEACK:
		sum, err := d.readBytes("checksum")
		if err != nil {
			return nil, err
		}
		msg = EndFileAcknowledgment{Checksum: sum}
	case opcode.ENDSESSION:
		msg = EndSession{}
	default:
		return nil, decodeErrorf("unknown message tag %d", tag)
	}

	if rest := len(d.buf) - d.off; rest > 0 {
		return nil, decodeErrorf("%d trailing bytes after message tag %d", rest, tag)
	}
	return msg, nil
}

// decoder walks a payload with bounds checks on every field
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) readUint32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, decodeErrorf("payload of %d bytes is too short for a message tag", len(d.buf))
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) readUint64(field string) (uint64, error) {
	if d.remaining() < 8 {
		return 0, decodeErrorf("%s: need 8 bytes, have %d", field, d.remaining())
	}
	v := binary.BigEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) readBytes(field string) ([]byte, error) {
	n, err := d.readUint64(field + " length")
	if err != nil {
		return nil, err
	}
	if n > uint64(d.remaining()) {
		return nil, decodeErrorf("%s: declared %d bytes, have %d", field, n, d.remaining())
	}
	if n == 0 {
		return nil, nil
	}
	// Copy so the message does not pin the frame buffer.
	out := make([]byte, n)
	copy(out, d.buf[d.off:])
	d.off += int(n)
	return out, nil
}

// Describe returns a short human readable form of a message for logs
func Describe(msg Message) string {
	switch m := msg.(type) {
	case MakeDirectory:
		return fmt.Sprintf("MakeDirectory(%q)", m.RelativePath)
	case BeginFile:
		return fmt.Sprintf("BeginFile(%q, %d)", m.RelativePath, m.FileSize)
	case FileChunk:
		return fmt.Sprintf("FileChunk(%d bytes)", len(m.Data))
	case EndFile:
		return "EndFile"
	case EndFileAcknowledgment:
		return fmt.Sprintf("EndFileAcknowledgment(%x)", m.Checksum)
	case EndSession:
		return "EndSession"
	default:
		return fmt.Sprintf("unknown message %T", msg)
	}
}
