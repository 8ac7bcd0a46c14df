package networking

import (
	"errors"
	"fmt"
)

// IOError wraps a failed socket or file operation. It is always fatal to the session.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// DecodeError reports a payload that does not match the message schema
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Msg
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Msg: fmt.Sprintf(format, args...)}
}

// IsIOError returns true if err is or wraps an IOError
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// IsDecodeError returns true if err is or wraps a DecodeError
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}
