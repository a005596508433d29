package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artefactual-labs/itrun/test"
)

const sampleComposeContent = `
services:
  archivematica-storage-service:
    image: artefactual/archivematica-storage-service:latest
  mysql:
    image: percona:8.0
`

// writeProject creates a project directory with a compose file and a config
// file pointing at it.
func writeProject(t *testing.T, composeFile, iniExtra string) (dir, configPath string) {
	t.Helper()

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, composeFile), []byte(sampleComposeContent), 0o644))

	configPath = filepath.Join(dir, "itrun.ini")
	content := "[project]\ndir = " + dir + "\nfile = " + composeFile + "\n" + iniExtra
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return dir, configPath
}

func TestValidateExecuteValidFile(t *testing.T) {
	_, configPath := writeProject(t, "docker-compose.yml", "")

	r, w, _ := os.Pipe()
	oldStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	cmd := ValidateCommand{ConfigFile: configPath, Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	require.NoError(t, err)

	w.Close()
	out, _ := io.ReadAll(r)

	var conf Config
	err = json.Unmarshal(out, &conf)
	require.NoError(t, err)
	assert.Equal(t, "archivematica-storage-service", conf.Project.Service)
	assert.Equal(t, "docker-compose.yml", conf.Project.File)
}

func TestValidateExecuteUnknownService(t *testing.T) {
	t.Parallel()

	_, configPath := writeProject(t, "docker-compose.yml", "service = not-there\n")

	cmd := ValidateCommand{ConfigFile: configPath, Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	assert.Error(t, err)
	assert.ErrorContains(t, err, "not-there")
}

func TestValidateExecuteMissingComposeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "itrun.ini")
	require.NoError(t, os.WriteFile(configPath, []byte("[project]\ndir = "+dir+"\n"), 0o644))

	cmd := ValidateCommand{ConfigFile: configPath, Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	assert.Error(t, err)
}

func TestValidateExecuteInvalidFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "itrun.ini")
	require.NoError(t, os.WriteFile(configPath, []byte("[project\nservice = x\n"), 0o644))

	cmd := ValidateCommand{ConfigFile: configPath, Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	assert.Error(t, err)
}

func TestValidateExecuteMissingFile(t *testing.T) {
	t.Parallel()

	cmd := ValidateCommand{ConfigFile: "/nonexistent/itrun/itrun.ini", Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	assert.Error(t, err)
}

func TestValidateExecuteDangerousService(t *testing.T) {
	t.Parallel()

	_, configPath := writeProject(t, "docker-compose.yml", "service = svc;rm\n")

	cmd := ValidateCommand{ConfigFile: configPath, Logger: test.NewTestLogger()}
	err := cmd.Execute(nil)
	assert.Error(t, err)
}
