package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/armon/circbuf"
)

// ErrSkippedStep pass this error to `Execution.Stop` if you wish to mark
// it as skipped.
var ErrSkippedStep = errors.New("skipped step")

const (
	// maximum size of a stdout/stderr stream kept in memory and optionally saved/mailed
	maxStreamSize = 10 * 1024 * 1024
	logPrefix     = "[Step %q (%s)] %s"
)

// Step is a single compose operation executed by the runner, such as the
// one-off service run or the teardown.
type Step interface {
	GetName() string
	GetCommand() string
	Middlewares() []Middleware
	Use(...Middleware)
	Run(*Context) error
}

type Context struct {
	Logger    Logger
	Step      Step
	Execution *Execution
	Ctx       context.Context //nolint:containedctx // intentional: propagates the runner's context through the middleware chain

	current     int
	executed    bool
	middlewares []Middleware
}

func NewContext(ctx context.Context, logger Logger, s Step, e *Execution) *Context {
	return &Context{
		Logger:      logger,
		Step:        s,
		Execution:   e,
		Ctx:         ctx,
		middlewares: s.Middlewares(),
	}
}

func (c *Context) Start() {
	c.Execution.Start()
}

func (c *Context) Next() error {
	if err := c.doNext(); err != nil || c.executed {
		c.Stop(err)
	}

	return nil
}

func (c *Context) doNext() error {
	for {
		m, end := c.getNext()
		if end {
			break
		}

		if !c.Execution.IsRunning && !m.ContinueOnStop() {
			continue
		}

		if err := m.Run(c); err != nil {
			return fmt.Errorf("middleware run: %w", err)
		}
		return nil
	}

	if !c.Execution.IsRunning {
		return nil
	}

	c.executed = true
	if err := c.Step.Run(c); err != nil {
		return fmt.Errorf("step run: %w", err)
	}
	return nil
}

func (c *Context) getNext() (Middleware, bool) {
	if c.current >= len(c.middlewares) {
		return nil, true
	}

	c.current++
	return c.middlewares[c.current-1], false
}

func (c *Context) Stop(err error) {
	if !c.Execution.IsRunning {
		return
	}

	c.Execution.Stop(err)
}

func (c *Context) Log(msg string) {
	args := []any{c.Step.GetName(), c.Execution.ID, msg}

	switch {
	case c.Execution.Failed:
		c.Logger.Errorf(logPrefix, args...)
	case c.Execution.Skipped:
		c.Logger.Warningf(logPrefix, args...)
	default:
		c.Logger.Noticef(logPrefix, args...)
	}
}

func (c *Context) Warn(msg string) {
	args := []any{c.Step.GetName(), c.Execution.ID, msg}
	c.Logger.Warningf(logPrefix, args...)
}

// Execution contains all the information relative to a Step execution.
type Execution struct {
	ID        string
	Date      time.Time
	Duration  time.Duration
	IsRunning bool
	Failed    bool
	Skipped   bool
	Error     error

	OutputStream, ErrorStream *circbuf.Buffer `json:"-"`
}

// NewExecution returns a new Execution, with a random ID
func NewExecution() (*Execution, error) {
	bufOut, err := circbuf.NewBuffer(maxStreamSize)
	if err != nil {
		return nil, fmt.Errorf("allocate output buffer: %w", err)
	}

	bufErr, err := circbuf.NewBuffer(maxStreamSize)
	if err != nil {
		return nil, fmt.Errorf("allocate error buffer: %w", err)
	}

	id, err := randomID()
	if err != nil {
		return nil, err
	}

	return &Execution{
		ID:           id,
		OutputStream: bufOut,
		ErrorStream:  bufErr,
	}, nil
}

// Start starts the execution, initializes the running flag and the start date.
func (e *Execution) Start() {
	e.IsRunning = true
	e.Date = time.Now()
}

// Stop halts the execution. If an ErrSkippedStep is given the execution is
// marked as skipped; any other error marks it as failed. Also clears the
// IsRunning flag and saves the duration.
func (e *Execution) Stop(err error) {
	e.IsRunning = false
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Duration = time.Since(e.Date)
	if e.Duration <= 0 {
		e.Duration = time.Nanosecond
	}

	if err != nil && !errors.Is(err, ErrSkippedStep) {
		e.Error = err
		e.Failed = true
	} else if errors.Is(err, ErrSkippedStep) {
		e.Skipped = true
	}
}

// GetStdout returns the captured stdout content.
func (e *Execution) GetStdout() string {
	if e.OutputStream == nil {
		return ""
	}
	return e.OutputStream.String()
}

// GetStderr returns the captured stderr content.
func (e *Execution) GetStderr() string {
	if e.ErrorStream == nil {
		return ""
	}
	return e.ErrorStream.String()
}

// Middleware can wrap any step execution, allowing code to run before
// or/and after each `Step.Run`
type Middleware interface {
	// Run is called instead of the original `Step.Run`, you MUST call
	// `ctx.Next` inside of the middleware `Run` function otherwise you will
	// break the step workflow.
	Run(*Context) error
	// ContinueOnStop reports whether Run should be called even when the
	// execution has been stopped
	ContinueOnStop() bool
}

type middlewareContainer struct {
	m     map[string]Middleware
	order []string
}

func (c *middlewareContainer) Use(ms ...Middleware) {
	if c.m == nil {
		c.m = make(map[string]Middleware, 0)
	}

	for _, m := range ms {
		if m == nil {
			continue
		}

		t := fmt.Sprintf("%T", m)
		if _, ok := c.m[t]; ok {
			continue
		}

		c.order = append(c.order, t)
		c.m[t] = m
	}
}

func (c *middlewareContainer) Middlewares() []Middleware {
	ms := make([]Middleware, 0, len(c.order))
	for _, t := range c.order {
		ms = append(ms, c.m[t])
	}
	return ms
}

type Logger interface {
	Criticalf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

func randomID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}

	return fmt.Sprintf("%x", b), nil
}
