package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/omegabuild/buildworker/pkg/errors"
)

// ResolveProjectDir resolves a job's project dir against the workspace root.
// Absolute paths are used as-is; relative paths are joined under root. The
// result must exist and be a directory.
func ResolveProjectDir(root, dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", errors.ErrProjectDirNotFound, dir)
	}
	return dir, nil
}

// EnsureDir creates dir and any missing parents. Safe to call when the
// directory already exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
