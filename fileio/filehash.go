package fileio

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"go_dir_sync/constants"
)

// DigestSize is the length of a SHA-1 checksum in bytes.
const DigestSize = sha1.Size

// Digest returns the SHA-1 checksum of given file
func Digest(file string) ([]byte, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	hash := sha1.New()
	if _, err := io.CopyBuffer(hash, handle, make([]byte, constants.FILE_CHUNK_SIZE)); err != nil {
		return nil, fmt.Errorf("hash %s: %w", file, err)
	}

	return hash.Sum(nil), nil
}

// DigestBytes returns the SHA-1 checksum of an in-memory buffer
func DigestBytes(data []byte) []byte {
	sum := sha1.Sum(data)
	return sum[:]
}
