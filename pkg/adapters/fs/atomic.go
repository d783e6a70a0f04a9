package fs

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v6"
)

const (
	// TempFilePrefix is the prefix used for temporary atomic write files.
	TempFilePrefix = "rowgit-tmp-"
)

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename, so readers never observe a partial file.
func writeFileAtomic(bfs billy.Filesystem, filename string, data []byte) error {
	dir := path.Dir(filename)
	if err := bfs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := bfs.TempFile(dir, TempFilePrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	renamed := false
	defer func() {
		if !renamed {
			bfs.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// Sync is optional on billy files.
	if syncer, ok := tmpFile.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			tmpFile.Close()
			return fmt.Errorf("failed to sync temp file: %w", err)
		}
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := bfs.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	renamed = true

	return nil
}
