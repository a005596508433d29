package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// State tracks the runner's linear lifecycle.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateTornDown:
		return "torn-down"
	}
	return "unknown"
}

// Runner executes the integration suite: it enters the project directory,
// runs the one-off service container and unconditionally tears the compose
// environment down afterwards.
// LeftoverLister is the probe slice the runner uses to verify a teardown left
// nothing behind. Optional; nil skips the verification.
type LeftoverLister interface {
	LeftoverContainers(ctx context.Context, project string) ([]string, error)
}

type Runner struct {
	Project    *ComposeProject
	Logger     Logger
	MaxRuntime time.Duration
	Retry      RetryConfig
	Probe      LeftoverLister

	state       atomic.Int32
	middlewares []Middleware
	lastRun     *Execution
	lastDown    *Execution
}

func NewRunner(p *ComposeProject, logger Logger) *Runner {
	return &Runner{Project: p, Logger: logger}
}

// Use attaches middlewares to the run step.
func (r *Runner) Use(ms ...Middleware) {
	r.middlewares = append(r.middlewares, ms...)
}

func (r *Runner) State() State {
	return State(r.state.Load())
}

// LastRun returns the execution of the final run attempt, nil before any ran.
func (r *Runner) LastRun() *Execution { return r.lastRun }

// LastDown returns the teardown execution, nil when teardown never started.
func (r *Runner) LastDown() *Execution { return r.lastDown }

// Execute performs the full cycle. The run step's error, including the
// container's non-zero exit status, is returned after teardown completes;
// a teardown failure is only surfaced when the run itself succeeded.
func (r *Runner) Execute(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateInit), int32(StateRunning)) {
		return ErrRunnerAlreadyUsed
	}

	if err := r.enterProjectDir(); err != nil {
		return err
	}

	if err := r.Project.ResolveBinary(); err != nil {
		return err
	}

	runErr := r.runWithRetry(ctx)

	// Teardown is unconditional and survives cancellation of the run context.
	downCtx := context.WithoutCancel(ctx)
	downErr := r.down(downCtx)
	r.state.Store(int32(StateTornDown))

	if downErr == nil {
		r.verifyTeardown(downCtx)
	}

	if runErr != nil {
		if downErr != nil {
			r.Logger.Errorf("Teardown failed after run failure: %v", downErr)
		}
		return runErr
	}
	if downErr != nil {
		return fmt.Errorf("%w: %w", ErrTeardownFailed, downErr)
	}
	return nil
}

// enterProjectDir resolves the project directory and makes it the working
// directory so relative compose-file references resolve. Failure here aborts
// the remaining steps.
func (r *Runner) enterProjectDir() error {
	dir := r.Project.Dir
	if dir == "" {
		var err error
		dir, err = SelfDir()
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrProjectDirNotFound, dir)
	}

	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("chdir %q: %w", dir, err)
	}

	r.Project.Dir = dir
	r.Logger.Debugf("Working directory set to %s", dir)
	return nil
}

func (r *Runner) runWithRetry(ctx context.Context) error {
	step := NewRunStep(r.Project)
	step.Use(r.middlewares...)

	re := NewRetryExecutor(r.Logger)
	return re.ExecuteWithRetry(step.GetName(), r.Retry, func() error {
		return r.runOnce(ctx, step)
	})
}

func (r *Runner) runOnce(ctx context.Context, step *RunStep) error {
	runCtx := ctx
	if r.MaxRuntime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.MaxRuntime)
		defer cancel()
	}

	e, err := NewExecution()
	if err != nil {
		return err
	}
	r.lastRun = e

	c := NewContext(runCtx, r.Logger, step, e)
	c.Start()
	c.Log("Started - " + step.GetCommand())

	_ = c.Next()
	c.Stop(nil) // no-op when a middleware already stopped the execution

	c.Log(fmt.Sprintf("Finished in %s", e.Duration))
	return e.Error
}

// verifyTeardown is best effort and log-only: a reported leftover means the
// down step did not remove everything it should have.
func (r *Runner) verifyTeardown(ctx context.Context) {
	if r.Probe == nil {
		return
	}

	f, _ := LoadComposeFile(filepath.Join(r.Project.Dir, r.Project.composeFile()))
	project := ProjectName(f, r.Project.Dir)

	names, err := r.Probe.LeftoverContainers(ctx, project)
	if err != nil {
		r.Logger.Debugf("Teardown verification skipped: %v", err)
		return
	}
	if len(names) > 0 {
		r.Logger.Warningf("Teardown left %d container(s) of project %q behind: %v", len(names), project, names)
	}
}

func (r *Runner) down(ctx context.Context) error {
	step := NewDownStep(r.Project)

	e, err := NewExecution()
	if err != nil {
		return err
	}
	r.lastDown = e

	c := NewContext(ctx, r.Logger, step, e)
	c.Start()
	c.Log("Started - " + step.GetCommand())

	_ = c.Next()
	c.Stop(nil)

	c.Log(fmt.Sprintf("Finished in %s", e.Duration))
	return e.Error
}
