package core

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComposeFile is the subset of the compose format the runner needs: the
// optional project name and the defined services.
type ComposeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]ComposeService `yaml:"services"`
}

type ComposeService struct {
	Image         string `yaml:"image"`
	ContainerName string `yaml:"container_name"`
}

// LoadComposeFile reads and parses a compose file.
func LoadComposeFile(path string) (*ComposeFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrComposeFileNotFound, path)
		}
		return nil, fmt.Errorf("read compose file %q: %w", path, err)
	}

	var f ComposeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse compose file %q: %w", path, err)
	}
	return &f, nil
}

// HasService reports whether the named service is defined.
func (f *ComposeFile) HasService(name string) bool {
	_, ok := f.Services[name]
	return ok
}

// ServiceImage returns the image reference of the named service, empty when
// the service is undefined or built locally.
func (f *ComposeFile) ServiceImage(name string) string {
	return f.Services[name].Image
}

// ServiceNames returns the defined service names.
func (f *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	return names
}

var projectNameInvalid = regexp.MustCompile(`[^a-z0-9_-]`)

// ProjectName returns the compose project name: the top-level `name` key when
// present, otherwise the normalized base name of the project directory, the
// same derivation compose applies.
func ProjectName(f *ComposeFile, dir string) string {
	if f != nil && f.Name != "" {
		return f.Name
	}
	base := strings.ToLower(filepath.Base(dir))
	base = projectNameInvalid.ReplaceAllString(base, "")
	base = strings.TrimLeft(base, "_-")
	return base
}
