package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName is the directory inside a workspace that the broker uses as
// its log/data directory (the formatted storage).
const DataDirName = "data"

// EnsureDir creates a directory and all parents if they don't exist.
// Uses mode 0755. Returns nil if the directory already exists.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Provision creates a uniquely named workspace directory under baseDir with
// the given name prefix, creating baseDir first if needed. The returned path
// is absolute.
func Provision(baseDir, prefix string) (string, error) {
	if err := EnsureDir(baseDir); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(baseDir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("create workspace under %s: %w", baseDir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path %s: %w", dir, err)
	}
	return abs, nil
}

// DataDir returns the broker data directory path inside a workspace.
// The directory itself is created by the broker's storage format step.
func DataDir(dir string) string {
	return filepath.Join(dir, DataDirName)
}

// Remove recursively deletes a workspace. Removing a workspace that is
// already gone is not an error.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", dir, err)
	}
	return nil
}
