package fileio

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one item of a directory walk
type Entry struct {
	Path    string // Location on disk
	RelPath string // Slash separated, relative to the walk root ("." for the root itself)
	IsDir   bool
	Mode    fs.FileMode // Type bits only
}

type WalkFunc func(entry Entry) error

// TreeWalker enumerates a directory tree, each entry exactly once
type TreeWalker struct {
	Exclude []string // doublestar patterns matched against RelPath
}

// Walk calls fn for the root and every entry below it that is not excluded.
// Excluding a directory skips everything under it.
func (w *TreeWalker) Walk(root string, fn WalkFunc) error {
	for _, pattern := range w.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && w.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return fn(Entry{
			Path:    path,
			RelPath: rel,
			IsDir:   d.IsDir(),
			Mode:    d.Type(),
		})
	})
}

func (w *TreeWalker) excluded(rel string) bool {
	for _, pattern := range w.Exclude {
		// Patterns were validated up front.
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
