package middlewares

import (
	"fmt"
	"path/filepath"
	"strings"
)

var nameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"..", "_",
	"~", "_",
	":", "_",
	"\x00", "_",
	" ", "_",
)

// SanitizeStepName turns a step name into a string safe to embed in a
// filename.
func SanitizeStepName(name string) string {
	cleaned := nameReplacer.Replace(name)
	if cleaned == "" {
		cleaned = "step"
	}
	return cleaned
}

// ValidateReportFolder rejects folder values that would escape the intended
// report location.
func ValidateReportFolder(folder string) error {
	if folder == "" {
		return fmt.Errorf("report folder cannot be empty")
	}
	if strings.ContainsRune(folder, '\x00') {
		return fmt.Errorf("report folder contains null byte")
	}
	if strings.Contains(filepath.ToSlash(folder), "../") {
		return fmt.Errorf("report folder must not contain parent references")
	}
	return nil
}
