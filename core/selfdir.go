package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// SelfDir returns the absolute directory containing the running executable,
// independent of the caller's working directory and invocation path. Symlinks
// are resolved as far as the platform primitive allows; when resolution fails
// the unresolved executable path is used.
func SelfDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe), nil
}
