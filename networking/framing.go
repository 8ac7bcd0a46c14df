package networking

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// LengthPrefixSize is the size of the big-endian frame length.
const LengthPrefixSize = 4

// Frames up to this size are read into a buffer allocated up front.
const eagerAllocLimit = 1 << 20

// SendFrame writes the length prefix and payload as one unit
func SendFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return &IOError{Op: "write frame", Err: fmt.Errorf("payload of %d bytes does not fit a frame", len(payload))}
	}

	frame := make([]byte, LengthPrefixSize, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	if _, err := w.Write(frame); err != nil {
		return &IOError{Op: "write frame", Err: err}
	}
	return nil
}

// ReceiveFrame blocks until one complete frame has been read and returns its payload
func ReceiveFrame(r io.Reader) ([]byte, error) {
	var length [LengthPrefixSize]byte

	// Read length first.
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, &IOError{Op: "read frame length", Err: err}
	}

	size := binary.BigEndian.Uint32(length[:])
	if size <= eagerAllocLimit {
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &IOError{Op: "read frame payload", Err: err}
		}
		return payload, nil
	}

	// No upper bound on frame size, but only grow the buffer as bytes actually arrive.
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, &IOError{Op: "read frame payload", Err: err}
	}
	if n != int64(size) {
		return nil, &IOError{Op: "read frame payload", Err: io.ErrUnexpectedEOF}
	}
	return buf.Bytes(), nil
}
