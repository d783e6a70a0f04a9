package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// ensureIgnore appends the system directory to root/.gitignore.
// It reports whether the file was modified.
func ensureIgnore(root, systemDir string) (bool, error) {
	ignorePath := filepath.Join(root, ".gitignore")
	entry := strings.TrimSuffix(filepath.ToSlash(systemDir), "/") + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}
