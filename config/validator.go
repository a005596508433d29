// Package config provides safety validation for values that end up in
// compose command lines.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandValidator validates user-supplied values before they are passed to
// the compose binary.
type CommandValidator struct {
	serviceNamePattern *regexp.Regexp
	composePathPattern *regexp.Regexp
	dangerousPatterns  []*regexp.Regexp
}

// NewCommandValidator creates a validator with the default rules
func NewCommandValidator() *CommandValidator {
	return &CommandValidator{
		// Compose service names: alphanumeric, underscore, hyphen, dot
		serviceNamePattern: regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`),
		// Compose file paths: alphanumeric, underscore, hyphen, dot, forward slash
		composePathPattern: regexp.MustCompile(`^[a-zA-Z0-9_\-\./]+$`),
		// Patterns that could indicate injection attempts
		dangerousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\$\(`),   // Command substitution $(...)
			regexp.MustCompile("`"),      // Backtick command substitution
			regexp.MustCompile(`\|`),     // Pipe to command
			regexp.MustCompile(`;`),      // Command separator
			regexp.MustCompile(`&{1,2}`), // Background or AND operator
			regexp.MustCompile(`>`),      // Redirect output
			regexp.MustCompile(`<`),      // Redirect input
			regexp.MustCompile(`\x00`),   // Null byte injection
		},
	}
}

// ValidateServiceName validates a compose service name for safety
func (v *CommandValidator) ValidateServiceName(service string) error {
	if service == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if len(service) > 255 {
		return fmt.Errorf("service name too long (max 255 characters)")
	}

	for _, pattern := range v.dangerousPatterns {
		if pattern.MatchString(service) {
			return fmt.Errorf("service name contains dangerous pattern: %s", service)
		}
	}

	if !v.serviceNamePattern.MatchString(service) {
		return fmt.Errorf("service name contains invalid characters: %s", service)
	}

	return nil
}

// ValidateComposePath validates a compose file path for safety
func (v *CommandValidator) ValidateComposePath(path string) error {
	if path == "" {
		return fmt.Errorf("compose file path cannot be empty")
	}

	if len(path) > 4096 {
		return fmt.Errorf("compose file path too long (max 4096 characters)")
	}

	path = strings.ReplaceAll(path, "//", "/")

	for _, pattern := range v.dangerousPatterns {
		if pattern.MatchString(path) {
			return fmt.Errorf("compose file path contains dangerous pattern: %s", path)
		}
	}

	sensitivePrefix := []string{"/etc/", "/proc/", "/sys/", "/dev/"}
	for _, prefix := range sensitivePrefix {
		if strings.HasPrefix(path, prefix) {
			return fmt.Errorf("compose file path points into a sensitive directory: %s", path)
		}
	}

	if !v.composePathPattern.MatchString(path) {
		return fmt.Errorf("compose file path contains invalid characters: %s", path)
	}

	return nil
}

// ValidateCommandArgs validates passthrough command arguments for safety
func (v *CommandValidator) ValidateCommandArgs(args []string) error {
	for i, arg := range args {
		if len(arg) > 4096 {
			return fmt.Errorf("argument %d too long (max 4096 characters)", i)
		}

		if strings.Contains(arg, "\x00") {
			return fmt.Errorf("argument %d contains null byte", i)
		}
	}

	return nil
}
