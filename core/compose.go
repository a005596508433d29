package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gobs/args"
)

// DefaultService is the service the original integration environment runs.
const DefaultService = "archivematica-storage-service"

// DefaultComposeFile is the compose file looked up in the project directory.
const DefaultComposeFile = "docker-compose.yml"

// ComposeProject describes the compose project the runner operates on.
type ComposeProject struct {
	Dir           string
	File          string
	Service       string
	Command       string   // extra command string appended after the service on `run`
	ExtraArgs     []string // passthrough arguments appended after Command
	DownVolumes   bool
	RemoveOrphans bool

	// Binary is the compose invocation prefix, e.g. {"docker", "compose"}.
	// Resolved from PATH when empty.
	Binary []string

	// Optional live output writers, tee'd with the execution buffers.
	Stdout, Stderr io.Writer
}

// ResolveBinary locates the compose implementation to invoke. The compose
// plugin is preferred; the legacy standalone binary is a fallback.
func (p *ComposeProject) ResolveBinary() error {
	if len(p.Binary) > 0 {
		return nil
	}
	if _, err := exec.LookPath("docker"); err == nil {
		p.Binary = []string{"docker", "compose"}
		return nil
	}
	if path, err := exec.LookPath("docker-compose"); err == nil {
		p.Binary = []string{path}
		return nil
	}
	return ErrComposeBinaryMissing
}

func (p *ComposeProject) composeFile() string {
	if p.File == "" {
		return DefaultComposeFile
	}
	return p.File
}

func (p *ComposeProject) runArgs() []string {
	argv := []string{"-f", p.composeFile(), "run", "--rm", p.Service}
	if p.Command != "" {
		argv = append(argv, args.GetArgs(p.Command)...)
	}
	argv = append(argv, p.ExtraArgs...)
	return argv
}

func (p *ComposeProject) downArgs() []string {
	argv := []string{"-f", p.composeFile(), "down"}
	if p.DownVolumes {
		argv = append(argv, "--volumes")
	}
	if p.RemoveOrphans {
		argv = append(argv, "--remove-orphans")
	}
	return argv
}

func (p *ComposeProject) buildCommand(ctx context.Context, argv []string, e *Execution) *exec.Cmd {
	full := append(append([]string{}, p.Binary[1:]...), argv...)
	// #nosec G204 -- argv is built from validated project config
	cmd := exec.CommandContext(ctx, p.Binary[0], full...)
	cmd.Dir = p.Dir
	cmd.Env = os.Environ()
	// Bound the wait for output pipes once the process is killed on cancellation.
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = e.OutputStream
	cmd.Stderr = e.ErrorStream
	if p.Stdout != nil {
		cmd.Stdout = io.MultiWriter(e.OutputStream, p.Stdout)
	}
	if p.Stderr != nil {
		cmd.Stderr = io.MultiWriter(e.ErrorStream, p.Stderr)
	}
	return cmd
}

type composeStep struct {
	name    string
	project *ComposeProject
	middlewareContainer
}

func (s *composeStep) GetName() string { return s.name }

func (s *composeStep) exec(ctx *Context, argv []string) error {
	cmd := s.project.buildCommand(ctx.Ctx, argv, ctx.Execution)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Ctx.Err() != nil && errors.Is(ctx.Ctx.Err(), context.DeadlineExceeded) {
		return ErrMaxTimeRunning
	}
	if ee, ok := errors.AsType[*exec.ExitError](err); ok && ee.ExitCode() > 0 {
		return NonZeroExitError{ExitCode: ee.ExitCode()}
	}
	return err
}

// RunStep starts a one-off container for the configured service and waits for
// it to exit.
type RunStep struct {
	composeStep
}

func NewRunStep(p *ComposeProject) *RunStep {
	return &RunStep{composeStep{name: "run " + p.Service, project: p}}
}

func (s *RunStep) GetCommand() string {
	return strings.Join(append(append([]string{}, s.project.Binary...), s.project.runArgs()...), " ")
}

func (s *RunStep) Run(ctx *Context) error {
	if s.project.Service == "" {
		return ErrEmptyService
	}
	if err := s.exec(ctx, s.project.runArgs()); err != nil {
		return fmt.Errorf("compose run: %w", err)
	}
	return nil
}

// DownStep stops and removes the containers and networks of the compose
// project.
type DownStep struct {
	composeStep
}

func NewDownStep(p *ComposeProject) *DownStep {
	return &DownStep{composeStep{name: "down", project: p}}
}

func (s *DownStep) GetCommand() string {
	return strings.Join(append(append([]string{}, s.project.Binary...), s.project.downArgs()...), " ")
}

func (s *DownStep) Run(ctx *Context) error {
	if err := s.exec(ctx, s.project.downArgs()); err != nil {
		return fmt.Errorf("compose down: %w", err)
	}
	return nil
}
