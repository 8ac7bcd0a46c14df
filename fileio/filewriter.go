package fileio

// FileWriter receives blocks for one destination file
type FileWriter interface {
	New(filename string, bufferSize int) error
	Write(chunk []byte) error
	Close() error
	Discard()
}
