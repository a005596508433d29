package middlewares

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artefactual-labs/itrun/core"
)

// SaveConfig configuration for the Save middleware
type SaveConfig struct {
	// SaveFolder is the directory where run output and metadata are saved.
	// Leave empty to disable saving.
	SaveFolder string `gcfg:"save-folder" mapstructure:"save-folder"`
	// SaveOnlyOnError when true, only saves output when the run fails.
	SaveOnlyOnError *bool `gcfg:"save-only-on-error" mapstructure:"save-only-on-error"`
}

// NewSave returns a Save middleware if the given configuration is not empty
func NewSave(c *SaveConfig) core.Middleware {
	var m core.Middleware
	if !IsEmpty(c) {
		m = &Save{*c}
	}

	return m
}

// Save dumps the stdout and stderr of the run to disk after every execution.
type Save struct {
	SaveConfig
}

// ContinueOnStop always returns true; we always want to report the final status
func (m *Save) ContinueOnStop() bool {
	return true
}

// Run saves the result of the execution to disk
func (m *Save) Run(ctx *core.Context) error {
	err := ctx.Next()
	ctx.Stop(err)

	if ctx.Execution.Failed || !boolVal(m.SaveOnlyOnError) {
		if saveErr := m.saveToDisk(ctx); saveErr != nil {
			ctx.Logger.Errorf("Save error: %q", saveErr)
		}
	}

	return err
}

func (m *Save) saveToDisk(ctx *core.Context) error {
	if err := ValidateReportFolder(m.SaveFolder); err != nil {
		return fmt.Errorf("invalid report folder: %w", err)
	}

	if err := os.MkdirAll(m.SaveFolder, 0o750); err != nil {
		return fmt.Errorf("mkdir %q: %w", m.SaveFolder, err)
	}

	safeName := SanitizeStepName(ctx.Step.GetName())

	root := filepath.Join(m.SaveFolder, fmt.Sprintf(
		"%s_%s",
		ctx.Execution.Date.Format("20060102_150405"), safeName,
	))

	e := ctx.Execution
	if err := m.writeFile(e.ErrorStream.Bytes(), root+".stderr.log"); err != nil {
		return fmt.Errorf("write stderr log: %w", err)
	}

	if err := m.writeFile(e.OutputStream.Bytes(), root+".stdout.log"); err != nil {
		return fmt.Errorf("write stdout log: %w", err)
	}

	if err := m.saveContextToDisk(ctx, root+".json"); err != nil {
		return fmt.Errorf("write context json: %w", err)
	}

	return nil
}

func (m *Save) saveContextToDisk(ctx *core.Context, filename string) error {
	js, _ := json.MarshalIndent(map[string]any{
		"Step":      ctx.Step.GetName(),
		"Command":   ctx.Step.GetCommand(),
		"Execution": ctx.Execution,
	}, "", "  ")

	if err := m.writeFile(js, filename); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func (m *Save) writeFile(data []byte, filename string) error {
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write file %q: %w", filename, err)
	}
	return nil
}
