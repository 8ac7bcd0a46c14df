package fileio

// IOFactory hands out a fresh reader or writer per transferred file.
// The client driver reads sources through it and the server handler writes destinations through it,
// so tests can substitute failing or recording implementations.
type IOFactory interface {
	NewReader() FileReader
	NewWriter() FileWriter
}

// BufferedFactory returns the chunked BufferedReader and the bufio backed BufferedWriter
type BufferedFactory struct{}

func (b *BufferedFactory) NewReader() FileReader {
	return new(BufferedReader)
}

func (b *BufferedFactory) NewWriter() FileWriter {
	return new(BufferedWriter)
}
