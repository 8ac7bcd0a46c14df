package fileio

import (
	"errors"
	"io"
	"os"
)

// BufferedReader does blocking, fixed-size reads of a source file
type BufferedReader struct {
	file      *os.File
	size      uint64
	chunkSize int
	buf       []byte
}

// New opens file for reading or returns error upon failing to do so
func (b *BufferedReader) New(filename string, chunkSize int) error {
	if chunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	b.file = file
	b.size = uint64(info.Size())
	b.chunkSize = chunkSize
	b.buf = make([]byte, chunkSize)
	return nil
}

// Size returns file size at the time it was opened
func (b *BufferedReader) Size() uint64 {
	return b.size
}

// NextChunk returns the next block of up to chunkSize bytes, or io.EOF once the file is consumed.
// The returned slice is only valid until the next call.
func (b *BufferedReader) NextChunk() ([]byte, error) {
	if b.file == nil {
		return nil, errors.New("cannot read without file handle")
	}
	// Fill the whole block so chunk boundaries do not depend on short reads.
	read, err := io.ReadFull(b.file, b.buf)
	if read > 0 {
		return b.buf[:read], nil
	}
	return nil, err
}

// Close releases the file handle
func (b *BufferedReader) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}
