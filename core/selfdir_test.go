package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfDir(t *testing.T) {
	dir, err := SelfDir()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(dir))

	exe, err := os.Executable()
	require.NoError(t, err)
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	assert.Equal(t, filepath.Dir(exe), dir)
}

func TestSelfDirIndependentOfWorkingDir(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	before, err := SelfDir()
	require.NoError(t, err)

	require.NoError(t, os.Chdir(t.TempDir()))

	after, err := SelfDir()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
