package cli

import (
	"context"
	"os"
	"time"

	"github.com/artefactual-labs/itrun/core"
)

// RunCommand runs the one-off service container and tears the compose
// environment down afterwards, no matter how the run ended.
type RunCommand struct {
	ConfigFile    string        `long:"config" env:"ITRUN_CONFIG" description:"configuration file" default:"./itrun.ini"`
	LogLevel      string        `long:"log-level" env:"ITRUN_LOG_LEVEL" description:"Set log level (overrides config)"`
	ProjectDir    string        `long:"project-dir" description:"compose project directory (default: directory of the itrun binary)"`
	ComposeFile   string        `long:"file" short:"f" description:"compose file, relative to the project directory"`
	Service       string        `long:"service" description:"service to run"`
	DownVolumes   bool          `long:"down-volumes" description:"remove named volumes during teardown"`
	RemoveOrphans bool          `long:"remove-orphans" description:"remove orphan containers during teardown"`
	MaxRuntime    time.Duration `long:"max-runtime" description:"abort the run step after this duration (e.g. 30m)"`
	Logger        core.Logger

	runner *core.Runner
}

// Execute performs the run cycle. Positional arguments are appended to the
// service command line inside the container.
func (c *RunCommand) Execute(extra []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	conf, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.LogLevel == "" {
		if err := ApplyLogLevel(conf.Global.LogLevel); err != nil {
			c.Logger.Warningf("Failed to apply log level (using default): %v", err)
		}
	}

	c.applyOverrides(conf)
	if err := conf.Validate(); err != nil {
		return err
	}

	project := conf.ComposeProject()
	project.ExtraArgs = extra
	project.Stdout = os.Stdout
	project.Stderr = os.Stderr

	c.runner = core.NewRunner(project, c.Logger)
	c.runner.MaxRuntime = conf.Project.MaxRuntime
	c.runner.Retry = conf.RetryConfig()
	c.runner.Use(conf.Middlewares()...)

	// Best effort: verify after teardown that nothing was left behind.
	if probe, err := core.NewDockerProbe(); err == nil {
		defer probe.Close()
		c.runner.Probe = probe
	}

	return c.runner.Execute(context.Background())
}

// loadConfig reads the config file; a missing file at the default location
// just means defaults.
func (c *RunCommand) loadConfig() (*Config, error) {
	if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
		if c.ConfigFile != DefaultConfigFile {
			return nil, err
		}
		c.Logger.Debugf("no config file at %s, using defaults", c.ConfigFile)
		return NewConfig(c.Logger), nil
	}
	return BuildFromFile(c.ConfigFile, c.Logger)
}

// applyOverrides lets command-line flags win over the config file.
func (c *RunCommand) applyOverrides(conf *Config) {
	if c.ProjectDir != "" {
		conf.Project.Dir = c.ProjectDir
	}
	if c.ComposeFile != "" {
		conf.Project.File = c.ComposeFile
	}
	if c.Service != "" {
		conf.Project.Service = c.Service
	}
	if c.DownVolumes {
		conf.Project.DownVolumes = true
	}
	if c.RemoveOrphans {
		conf.Project.RemoveOrphans = true
	}
	if c.MaxRuntime > 0 {
		conf.Project.MaxRuntime = c.MaxRuntime
	}
}
