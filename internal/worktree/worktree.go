// Package worktree owns the scratch directory of one packaging run.
package worktree

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// Tree is an exclusive temporary directory holding intermediate artifacts.
// Close removes it together with everything inside.
type Tree struct {
	root string
}

// New creates a fresh tree under the system temporary directory.
func New(prefix string) (*Tree, error) {
	root, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("create working tree: %w", err)
	}

	return &Tree{root: root}, nil
}

// Root returns the absolute tree location.
func (t *Tree) Root() string {
	return t.root
}

// Path joins elements onto the tree root.
func (t *Tree) Path(elem ...string) string {
	return filepath.Join(append([]string{t.root}, elem...)...)
}

// Mkdir creates a directory (and parents) inside the tree and returns its path.
func (t *Tree) Mkdir(elem ...string) (string, error) {
	dir := t.Path(elem...)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	return dir, nil
}

// WriteFile writes data to a tree-relative path, creating parent directories.
func (t *Tree) WriteFile(rel string, data []byte) (string, error) {
	path := t.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// Exists reports whether a tree-relative or absolute path is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Close removes the tree. It is safe to call more than once.
func (t *Tree) Close() error {
	if t.root == "" {
		return nil
	}

	err := os.RemoveAll(t.root)
	t.root = ""

	if err != nil {
		return fmt.Errorf("remove working tree: %w", err)
	}

	return nil
}
