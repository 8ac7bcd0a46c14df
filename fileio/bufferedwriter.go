package fileio

import (
	"bufio"
	"errors"
	"os"
)

// BufferedWriter does buffered writes to one destination file
type BufferedWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// New creates (or truncates) file for writing or returns error upon failing to do so
func (b *BufferedWriter) New(filename string, bufferSize int) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	b.file = file
	b.writer = bufio.NewWriterSize(b.file, bufferSize)
	return nil
}

// Write appends chunk to the file
func (b *BufferedWriter) Write(chunk []byte) error {
	if b.file == nil {
		return errors.New("cannot write without file handle")
	}
	_, err := b.writer.Write(chunk)
	return err
}

// Close flushes any buffered bytes and closes the file
func (b *BufferedWriter) Close() error {
	if b.file == nil {
		return nil
	}
	flushErr := b.writer.Flush()
	closeErr := b.file.Close()
	b.file = nil
	b.writer = nil
	return errors.Join(flushErr, closeErr)
}

// Discard drops the handle without flushing. Buffered bytes are lost.
func (b *BufferedWriter) Discard() {
	if b.file == nil {
		return
	}
	b.file.Close()
	b.file = nil
	b.writer = nil
}
