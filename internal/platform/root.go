package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindRoot looks upwards from startDir for a workspace root: a directory
// holding systemDir or a .git directory. It returns the absolute path.
func FindRoot(startDir, systemDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}

	dir := abs
	for {
		if hasFile(dir, systemDir) || hasFile(dir, ".git") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no workspace found above %s", abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
