package middlewares

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artefactual-labs/itrun/core"
	"github.com/artefactual-labs/itrun/test"
)

// TestStep is a minimal core.Step used to drive middlewares in tests.
type TestStep struct {
	StepName string
	Err      error
	Runs     int

	middlewares []core.Middleware
}

func (s *TestStep) GetName() string                   { return s.StepName }
func (s *TestStep) GetCommand() string                { return "compose run --rm svc" }
func (s *TestStep) Middlewares() []core.Middleware    { return s.middlewares }
func (s *TestStep) Use(ms ...core.Middleware)         { s.middlewares = append(s.middlewares, ms...) }
func (s *TestStep) Run(*core.Context) error {
	s.Runs++
	return s.Err
}

func setupTestContext(t *testing.T) (*core.Context, *TestStep, *test.Logger) {
	t.Helper()

	step := &TestStep{StepName: "run svc"}
	e, err := core.NewExecution()
	require.NoError(t, err)

	logger := test.NewTestLogger()
	ctx := core.NewContext(context.Background(), logger, step, e)
	return ctx, step, logger
}
