package fileio

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrPathEscapesRoot = errors.New("path escapes backup root")

// ResolveWithin joins a slash-separated wire path onto root, refusing anything that would land outside it
func ResolveWithin(root, rel string) (string, error) {
	root = filepath.Clean(root)

	cleaned := path.Clean(rel)
	if cleaned == "." {
		return root, nil
	}
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%q: %w", rel, ErrPathEscapesRoot)
	}

	// Neither Clean nor Localize accept OS specific separators in the wire format.
	local, err := filepath.Localize(cleaned)
	if err != nil {
		return "", fmt.Errorf("%q: %w", rel, ErrPathEscapesRoot)
	}

	return filepath.Join(root, local), nil
}

// EnsureDir creates dir and any missing parents. Existing directories are fine.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// EnsureParent creates the parent directory of file
func EnsureParent(file string) error {
	return EnsureDir(filepath.Dir(file))
}
