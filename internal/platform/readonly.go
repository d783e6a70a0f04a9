package platform

import (
	"fmt"

	"github.com/aretw0/rowgit/pkg/core"
)

// readOnlyFS rejects every mutation of the working tree.
type readOnlyFS struct {
	core.FileSystem
}

func (readOnlyFS) WriteFile(path string, _ []byte) error {
	return fmt.Errorf("%w: write %s", core.ErrReadOnly, path)
}

func (readOnlyFS) DeleteFile(path string) error {
	return fmt.Errorf("%w: delete %s", core.ErrReadOnly, path)
}

func (readOnlyFS) RemoveDirectory(path string) error {
	return fmt.Errorf("%w: remove %s", core.ErrReadOnly, path)
}
