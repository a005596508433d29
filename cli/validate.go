package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/artefactual-labs/itrun/core"
)

// ValidateCommand validates the config file and the compose project it
// points at.
type ValidateCommand struct {
	ConfigFile string `long:"config" env:"ITRUN_CONFIG" description:"configuration file" default:"./itrun.ini"`
	LogLevel   string `long:"log-level" env:"ITRUN_LOG_LEVEL" description:"Set log level (overrides config)"`
	Logger     core.Logger
}

// Execute runs the validation command
func (c *ValidateCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	c.Logger.Debugf("Validating %q ... ", c.ConfigFile)
	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		c.Logger.Errorf("ERROR")
		return err
	}
	if c.LogLevel == "" {
		if err := ApplyLogLevel(conf.Global.LogLevel); err != nil {
			c.Logger.Warningf("Failed to apply log level (using default): %v", err)
		}
	}

	if err := conf.Validate(); err != nil {
		c.Logger.Errorf("ERROR")
		return err
	}

	if err := validateComposeProject(conf); err != nil {
		c.Logger.Errorf("ERROR")
		return err
	}

	out, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	c.Logger.Debugf("OK")
	return nil
}

// validateComposeProject checks that the compose file exists and defines the
// configured service.
func validateComposeProject(conf *Config) error {
	dir := conf.Project.Dir
	if dir == "" {
		var err error
		dir, err = core.SelfDir()
		if err != nil {
			return err
		}
	}

	path := conf.Project.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	f, err := core.LoadComposeFile(path)
	if err != nil {
		if errors.Is(err, core.ErrComposeFileNotFound) {
			return fmt.Errorf("%w: %s", core.ErrComposeFileNotFound, path)
		}
		return err
	}

	if !f.HasService(conf.Project.Service) {
		return fmt.Errorf("%w: service %q not found in %s (services: %v)",
			core.ErrServiceNotDefined, conf.Project.Service, path, f.ServiceNames())
	}
	return nil
}

// resolveComposePath returns the absolute compose file path for reporting.
func resolveComposePath(conf *Config) string {
	dir := conf.Project.Dir
	if dir == "" {
		if d, err := core.SelfDir(); err == nil {
			dir = d
		} else {
			dir = "."
		}
	}
	if filepath.IsAbs(conf.Project.File) {
		return conf.Project.File
	}
	return filepath.Join(dir, conf.Project.File)
}
