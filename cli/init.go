package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manifoldco/promptui"
	ini "gopkg.in/ini.v1"

	"github.com/artefactual-labs/itrun/config"
	"github.com/artefactual-labs/itrun/core"
	"github.com/artefactual-labs/itrun/middlewares"
)

// InitCommand creates an interactive wizard for generating a config file
type InitCommand struct {
	Output   string `long:"output" short:"o" description:"Output file path" default:"./itrun.ini"`
	LogLevel string `long:"log-level" env:"ITRUN_LOG_LEVEL" description:"Set log level"`
	Logger   core.Logger
}

// Execute runs the interactive configuration wizard
func (c *InitCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	c.Logger.Noticef("🚀 Welcome to itrun Configuration Setup!")
	c.Logger.Noticef("This wizard will help you create your config file.")

	if _, err := os.Stat(c.Output); err == nil {
		if !c.confirmOverwrite() {
			c.Logger.Noticef("Setup canceled")
			return nil
		}
	}

	answers := &initAnswers{}
	if err := c.promptProject(answers); err != nil {
		return fmt.Errorf("failed to gather project settings: %w", err)
	}
	if err := c.promptGlobal(answers); err != nil {
		return fmt.Errorf("failed to gather global settings: %w", err)
	}

	if err := c.saveConfig(answers); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.Logger.Noticef("✅ Configuration saved to: %s", c.Output)

	if err := c.postCreationActions(); err != nil {
		c.Logger.Warningf("Post-creation action failed: %v", err)
	}

	c.printNextSteps()
	return nil
}

// initAnswers holds the configuration being built
type initAnswers struct {
	Service     string
	ComposeFile string
	Command     string
	DownVolumes bool
	MaxRuntime  string
	LogLevel    string
	SaveFolder  string
}

// confirmOverwrite asks user to confirm overwriting existing file
func (c *InitCommand) confirmOverwrite() bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("File %s already exists. Overwrite", c.Output),
		IsConfirm: true,
		Default:   "n",
	}
	_, err := prompt.Run()
	return err == nil
}

// promptProject gathers the compose project settings
func (c *InitCommand) promptProject(answers *initAnswers) error {
	c.Logger.Noticef("=== Project Settings ===")

	v := config.NewCommandValidator()

	servicePrompt := promptui.Prompt{
		Label:    "Service to run",
		Default:  core.DefaultService,
		Validate: v.ValidateServiceName,
	}
	service, err := servicePrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	answers.Service = service

	filePrompt := promptui.Prompt{
		Label:    "Compose file (relative to the project directory)",
		Default:  core.DefaultComposeFile,
		Validate: v.ValidateComposePath,
	}
	answers.ComposeFile, err = filePrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	commandPrompt := promptui.Prompt{
		Label:   "Command passed to the service (optional, empty uses the image default)",
		Default: "",
	}
	answers.Command, err = commandPrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	downVolumesPrompt := promptui.Prompt{
		Label:     "Remove named volumes during teardown",
		IsConfirm: true,
		Default:   "n",
	}
	_, err = downVolumesPrompt.Run()
	answers.DownVolumes = err == nil

	runtimePrompt := promptui.Prompt{
		Label:    "Maximum runtime of the test container (optional, e.g. 30m)",
		Default:  "",
		Validate: validateDuration,
	}
	answers.MaxRuntime, err = runtimePrompt.Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}

	return nil
}

// promptGlobal gathers global configuration
func (c *InitCommand) promptGlobal(answers *initAnswers) error {
	c.Logger.Noticef("=== Global Settings ===")

	logLevelPrompt := promptui.Select{
		Label:     "Log level",
		Items:     []string{"panic", "fatal", "error", "warning", "info", "debug", "trace"},
		CursorPos: 4, // Default to "info"
	}
	_, logLevel, err := logLevelPrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
	}
	answers.LogLevel = logLevel

	savePrompt := promptui.Prompt{
		Label:     "Save run reports to disk",
		IsConfirm: true,
		Default:   "n",
	}
	if _, err := savePrompt.Run(); err == nil {
		folderPrompt := promptui.Prompt{
			Label:    "Report folder",
			Default:  "./reports",
			Validate: middlewares.ValidateReportFolder,
		}
		answers.SaveFolder, err = folderPrompt.Run()
		if err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures, not internal errors
		}
	}

	return nil
}

// validateDuration accepts an empty value or anything time.ParseDuration takes
func validateDuration(input string) error {
	if input == "" {
		return nil
	}
	if _, err := time.ParseDuration(input); err != nil {
		return fmt.Errorf("invalid duration: %w\n  Examples: 90s, 30m, 1h30m", err)
	}
	return nil
}

// saveConfig writes the configuration to INI file
func (c *InitCommand) saveConfig(answers *initAnswers) error {
	dir := filepath.Dir(c.Output)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	cfg := ini.Empty()

	global := cfg.Section("global")
	if answers.LogLevel != "" {
		global.Key("log-level").SetValue(answers.LogLevel)
	}
	if answers.SaveFolder != "" {
		global.Key("save-folder").SetValue(answers.SaveFolder)
	}

	project := cfg.Section("project")
	project.Key("service").SetValue(answers.Service)
	project.Key("file").SetValue(answers.ComposeFile)
	if answers.Command != "" {
		project.Key("command").SetValue(answers.Command)
	}
	if answers.DownVolumes {
		project.Key("down-volumes").SetValue("true")
	}
	if answers.MaxRuntime != "" {
		project.Key("max-runtime").SetValue(answers.MaxRuntime)
	}

	if err := cfg.SaveTo(c.Output); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// postCreationActions offers validation and other post-creation options
func (c *InitCommand) postCreationActions() error {
	validatePrompt := promptui.Prompt{
		Label:     "Validate configuration now",
		IsConfirm: true,
		Default:   "Y",
	}
	if _, err := validatePrompt.Run(); err == nil {
		conf, err := BuildFromFile(c.Output, c.Logger)
		if err != nil {
			c.Logger.Errorf("❌ Configuration validation failed: %v", err)
			return err
		}
		if err := conf.Validate(); err != nil {
			c.Logger.Errorf("❌ Configuration validation failed: %v", err)
			return err
		}
		c.Logger.Noticef("✅ Configuration is valid!")

		showPrompt := promptui.Prompt{
			Label:     "Show generated configuration",
			IsConfirm: true,
			Default:   "n",
		}
		if _, err := showPrompt.Run(); err == nil {
			content, _ := os.ReadFile(c.Output)
			c.Logger.Noticef("\n%s", string(content))
		}
	}

	return nil
}

// printNextSteps displays helpful next steps
func (c *InitCommand) printNextSteps() {
	c.Logger.Noticef("📋 Setup complete! Next steps:")
	c.Logger.Noticef("  → Review configuration: cat %s", c.Output)
	c.Logger.Noticef("  → Validate: itrun validate --config=%s", c.Output)
	c.Logger.Noticef("  → Check the environment: itrun doctor --config=%s", c.Output)
	c.Logger.Noticef("  → Run the suite: itrun run --config=%s", c.Output)
}
