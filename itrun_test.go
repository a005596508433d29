package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestDefaultToRun(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"run"}, defaultToRun(nil))
	assert.Equal(t, []string{"run"}, defaultToRun([]string{"run"}))
	assert.Equal(t, []string{"doctor", "--json"}, defaultToRun([]string{"doctor", "--json"}))
	assert.Equal(t, []string{"--help"}, defaultToRun([]string{"--help"}))
	assert.Equal(t, []string{"run", "--log-level=debug"}, defaultToRun([]string{"--log-level=debug"}))
	assert.Equal(t, []string{"run", "-k", "fixity"}, defaultToRun([]string{"-k", "fixity"}))

	// a command after leading global flags still wins
	assert.Equal(t, []string{"--log-level=debug", "validate"}, defaultToRun([]string{"--log-level=debug", "validate"}))
	assert.Equal(t, []string{"--config=./x.ini", "doctor", "--json"}, defaultToRun([]string{"--config=./x.ini", "doctor", "--json"}))
}

func TestBuildLogger(t *testing.T) {
	orig := logrus.GetLevel()
	defer logrus.SetLevel(orig)

	logger := buildLogger("debug")
	assert.NotNil(t, logger)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	buildLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
