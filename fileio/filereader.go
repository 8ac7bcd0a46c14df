package fileio

// FileReader reads a source file one block at a time
type FileReader interface {
	New(filename string, chunkSize int) error
	Size() uint64
	NextChunk() ([]byte, error)
	Close() error
}
