// Package fs implements core.FileSystem on top of go-billy, so the same
// working-tree code runs against the OS or an in-memory tree.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/aretw0/rowgit/pkg/core"
)

// FileSystem is a working tree rooted at a billy filesystem.
type FileSystem struct {
	bfs billy.Filesystem
}

// New wraps an existing billy filesystem (typically a go-git worktree).
func New(bfs billy.Filesystem) *FileSystem {
	return &FileSystem{bfs: bfs}
}

// NewOS returns a FileSystem rooted at dir on the local disk.
func NewOS(dir string) (*FileSystem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	return New(osfs.New(dir)), nil
}

// Billy exposes the underlying filesystem.
func (f *FileSystem) Billy() billy.Filesystem {
	return f.bfs
}

func clean(p string) (string, error) {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("%w: empty path", core.ErrFileSystem)
	}
	return p, nil
}

func (f *FileSystem) WriteFile(name string, data []byte) error {
	p, err := clean(name)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.bfs, p, data); err != nil {
		return fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	return nil
}

func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	p, err := clean(name)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(f.bfs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	return data, nil
}

// DeleteFile removes name. Deleting a missing file is not an error.
func (f *FileSystem) DeleteFile(name string) error {
	p, err := clean(name)
	if err != nil {
		return err
	}
	if err := f.bfs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	return nil
}

// RemoveDirectory removes dir only when it exists and is empty.
func (f *FileSystem) RemoveDirectory(dir string) error {
	p, err := clean(dir)
	if err != nil {
		return err
	}
	info, err := f.bfs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	if !info.IsDir() {
		return nil
	}
	entries, err := f.bfs.ReadDir(p)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := f.bfs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}
	return nil
}

// ReadDir lists the regular files directly inside dir, sorted by name.
// Temp files of in-flight writes are skipped.
func (f *FileSystem) ReadDir(dir string) ([]string, error) {
	p, err := clean(dir)
	if err != nil {
		return nil, err
	}
	entries, err := f.bfs.ReadDir(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", core.ErrFileSystem, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), TempFilePrefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

var _ core.FileSystem = (*FileSystem)(nil)
