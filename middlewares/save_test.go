package middlewares

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaveEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewSave(&SaveConfig{}))
}

func TestSaveRunWritesFiles(t *testing.T) {
	t.Parallel()
	ctx, _, _ := setupTestContext(t)
	folder := t.TempDir()

	ctx.Start()
	_, err := ctx.Execution.OutputStream.Write([]byte("4 passed\n"))
	require.NoError(t, err)
	_, err = ctx.Execution.ErrorStream.Write([]byte("1 warning\n"))
	require.NoError(t, err)

	m := NewSave(&SaveConfig{SaveFolder: folder})
	require.NoError(t, m.Run(ctx))

	matches, err := filepath.Glob(filepath.Join(folder, "*_run_svc.stdout.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "4 passed\n", string(data))

	jsonMatches, err := filepath.Glob(filepath.Join(folder, "*_run_svc.json"))
	require.NoError(t, err)
	require.Len(t, jsonMatches, 1)

	meta, err := os.ReadFile(jsonMatches[0])
	require.NoError(t, err)
	assert.Contains(t, string(meta), `"Command"`)
}

func TestSaveOnlyOnErrorSkipsSuccess(t *testing.T) {
	t.Parallel()
	ctx, _, _ := setupTestContext(t)
	folder := t.TempDir()

	ctx.Start()

	m := NewSave(&SaveConfig{SaveFolder: folder, SaveOnlyOnError: BoolPtr(true)})
	require.NoError(t, m.Run(ctx))

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveOnlyOnErrorWritesOnFailure(t *testing.T) {
	t.Parallel()
	ctx, step, _ := setupTestContext(t)
	folder := t.TempDir()
	step.Err = assert.AnError

	ctx.Start()

	m := NewSave(&SaveConfig{SaveFolder: folder, SaveOnlyOnError: BoolPtr(true)})
	// Next swallows the step error, the failure lives on the execution
	require.NoError(t, m.Run(ctx))
	assert.True(t, ctx.Execution.Failed)
	assert.ErrorContains(t, ctx.Execution.Error, assert.AnError.Error())

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSaveInvalidFolderLogsError(t *testing.T) {
	t.Parallel()
	ctx, _, logger := setupTestContext(t)

	ctx.Start()

	m := NewSave(&SaveConfig{SaveFolder: "../escape"})
	require.NoError(t, m.Run(ctx))
	assert.True(t, logger.HasError("Save error"))
}
