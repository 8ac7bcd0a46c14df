package networking

import (
	"bufio"
	"io"
)

// Stream exchanges framed messages over a byte stream.
// It is not safe for concurrent use; each connection owns one.
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewStream wraps a connection (or any reader/writer pair)
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		reader: bufio.NewReader(rw),
		writer: rw,
	}
}

// Send encodes and frames one message
func (s *Stream) Send(msg Message) error {
	return SendFrame(s.writer, Encode(msg))
}

// Receive blocks for the next frame and decodes it
func (s *Stream) Receive() (Message, error) {
	payload, err := ReceiveFrame(s.reader)
	if err != nil {
		return nil, err
	}
	return Decode(payload)
}
