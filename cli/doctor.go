package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artefactual-labs/itrun/core"
)

// DoctorCommand runs health checks on the configuration and the environment
// a run would execute in.
type DoctorCommand struct {
	ConfigFile string `long:"config" env:"ITRUN_CONFIG" description:"configuration file" default:"./itrun.ini"`
	LogLevel   string `long:"log-level" env:"ITRUN_LOG_LEVEL" description:"Set log level"`
	JSON       bool   `long:"json" description:"Output results as JSON"`
	Logger     core.Logger
}

// Status constants for health check results.
const (
	statusPass = "pass"
	statusFail = "fail"
	statusSkip = "skip"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Status   string   `json:"status"` // "pass", "fail", "skip"
	Message  string   `json:"message,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// DoctorReport contains all health check results
type DoctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
}

// dockerProbe is the subset of core.DockerProbe the doctor needs; tests swap
// newDockerProbe for a stub.
type dockerProbe interface {
	Ping(ctx context.Context) error
	LeftoverContainers(ctx context.Context, project string) ([]string, error)
	HasImageLocally(ctx context.Context, ref string) (bool, error)
	Close() error
}

var newDockerProbe = func() (dockerProbe, error) {
	return core.NewDockerProbe()
}

// Execute runs all health checks
func (c *DoctorCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	report := &DoctorReport{
		Healthy: true,
		Checks:  []CheckResult{},
	}

	conf := c.checkConfiguration(report)
	c.checkComposeBinary(report, conf)
	composeFile := c.checkComposeFile(report, conf)
	c.checkDaemon(report, conf, composeFile)

	if c.JSON {
		return c.outputJSON(report)
	}
	return c.outputHuman(report)
}

// checkConfiguration validates the config file. A missing file at the default
// location is fine, itrun runs with defaults.
func (c *DoctorCommand) checkConfiguration(report *DoctorReport) *Config {
	if _, err := os.Stat(c.ConfigFile); err != nil {
		if os.IsNotExist(err) && c.ConfigFile == DefaultConfigFile {
			report.Checks = append(report.Checks, CheckResult{
				Category: "Configuration",
				Name:     "File Exists",
				Status:   statusSkip,
				Message:  fmt.Sprintf("No config file at %s, defaults in effect", c.ConfigFile),
				Hints: []string{
					"Run 'itrun init' to create a config file interactively",
				},
			})
			return NewConfig(c.Logger)
		}
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "File Readable",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot read config file: %v", err),
			Hints: []string{
				fmt.Sprintf("Check permissions: ls -l %s", c.ConfigFile),
				"Or specify another path with: --config=/path/to/itrun.ini",
			},
		})
		return nil
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Configuration",
		Name:     "File Exists",
		Status:   statusPass,
		Message:  c.ConfigFile,
	})

	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "Valid Syntax",
			Status:   statusFail,
			Message:  fmt.Sprintf("Parse error: %v", err),
			Hints: []string{
				"Check INI syntax (sections, keys, values)",
				fmt.Sprintf("Validate with: itrun validate --config=%s", c.ConfigFile),
			},
		})
		return nil
	}

	if err := conf.Validate(); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Configuration",
			Name:     "Valid Values",
			Status:   statusFail,
			Message:  fmt.Sprintf("Validation error: %v", err),
		})
		return nil
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Configuration",
		Name:     "Valid Syntax",
		Status:   statusPass,
	})
	return conf
}

// checkComposeBinary verifies a compose implementation is installed.
func (c *DoctorCommand) checkComposeBinary(report *DoctorReport, conf *Config) {
	if conf == nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose",
			Name:     "Binary",
			Status:   statusSkip,
			Message:  "Skipped (configuration validation failed)",
		})
		return
	}

	project := conf.ComposeProject()
	if err := project.ResolveBinary(); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose",
			Name:     "Binary",
			Status:   statusFail,
			Message:  fmt.Sprintf("No compose implementation found: %v", err),
			Hints: []string{
				"Install the compose plugin: https://docs.docker.com/compose/install/",
				"Or install the legacy docker-compose binary",
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Compose",
		Name:     "Binary",
		Status:   statusPass,
		Message:  fmt.Sprintf("Using %v", project.Binary),
	})
}

// checkComposeFile verifies the compose file exists and defines the service.
func (c *DoctorCommand) checkComposeFile(report *DoctorReport, conf *Config) *core.ComposeFile {
	if conf == nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose",
			Name:     "Project File",
			Status:   statusSkip,
			Message:  "Skipped (configuration validation failed)",
		})
		return nil
	}

	path := resolveComposePath(conf)
	f, err := core.LoadComposeFile(path)
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose",
			Name:     "Project File",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot load %s: %v", path, err),
			Hints: []string{
				"Place itrun next to the compose file, or set project dir with --project-dir",
			},
		})
		return nil
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Compose",
		Name:     "Project File",
		Status:   statusPass,
		Message:  path,
	})

	if !f.HasService(conf.Project.Service) {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Compose",
			Name:     "Service Defined",
			Status:   statusFail,
			Message:  fmt.Sprintf("Service %q not found in %s", conf.Project.Service, path),
			Hints: []string{
				fmt.Sprintf("Defined services: %v", f.ServiceNames()),
			},
		})
		return f
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Compose",
		Name:     "Service Defined",
		Status:   statusPass,
		Message:  conf.Project.Service,
	})
	return f
}

// checkDaemon verifies docker connectivity, the service image and leftover
// containers from earlier runs.
func (c *DoctorCommand) checkDaemon(report *DoctorReport, conf *Config, f *core.ComposeFile) {
	if conf == nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Connectivity",
			Status:   statusSkip,
			Message:  "Skipped (configuration validation failed)",
		})
		return
	}

	probe, err := newDockerProbe()
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Connectivity",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot create docker client: %v", err),
			Hints: []string{
				"Check DOCKER_HOST and related environment variables",
			},
		})
		return
	}
	defer probe.Close()

	ctx := context.Background()
	if err := probe.Ping(ctx); err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Connectivity",
			Status:   statusFail,
			Message:  fmt.Sprintf("Docker ping failed: %v", err),
			Hints: []string{
				"Check Docker daemon: docker info",
				"Check socket: ls -l /var/run/docker.sock",
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Docker",
		Name:     "Connectivity",
		Status:   statusPass,
		Message:  "Docker daemon responding",
	})

	c.checkServiceImage(ctx, report, conf, f, probe)
	c.checkLeftovers(ctx, report, conf, f, probe)
}

// checkServiceImage verifies the service image exists locally.
func (c *DoctorCommand) checkServiceImage(ctx context.Context, report *DoctorReport, conf *Config, f *core.ComposeFile, probe dockerProbe) {
	if f == nil {
		return
	}

	img := f.ServiceImage(conf.Project.Service)
	if img == "" {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker Images",
			Name:     "Image Availability",
			Status:   statusSkip,
			Message:  fmt.Sprintf("Service %q builds its image locally", conf.Project.Service),
		})
		return
	}

	hasImage, err := probe.HasImageLocally(ctx, img)
	if err != nil {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker Images",
			Name:     img,
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot check image: %v", err),
		})
		return
	}
	if !hasImage {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker Images",
			Name:     img,
			Status:   statusSkip,
			Message:  "Image not found locally, compose will pull it on first run",
			Hints: []string{
				fmt.Sprintf("Pre-pull with: docker pull %s", img),
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Docker Images",
		Name:     img,
		Status:   statusPass,
		Message:  "Image found locally",
	})
}

// checkLeftovers looks for containers from a previous run that a failed
// teardown left behind.
func (c *DoctorCommand) checkLeftovers(ctx context.Context, report *DoctorReport, conf *Config, f *core.ComposeFile, probe dockerProbe) {
	dir := conf.Project.Dir
	if dir == "" {
		if d, err := core.SelfDir(); err == nil {
			dir = d
		} else {
			dir = "."
		}
	}
	project := core.ProjectName(f, filepath.Clean(dir))

	names, err := probe.LeftoverContainers(ctx, project)
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Leftover Containers",
			Status:   statusSkip,
			Message:  fmt.Sprintf("Cannot list containers: %v", err),
		})
		return
	}

	if len(names) > 0 {
		report.Healthy = false
		report.Checks = append(report.Checks, CheckResult{
			Category: "Docker",
			Name:     "Leftover Containers",
			Status:   statusFail,
			Message:  fmt.Sprintf("%d container(s) from project %q still present: %v", len(names), project, names),
			Hints: []string{
				fmt.Sprintf("Remove with: docker compose -p %s down --remove-orphans", project),
			},
		})
		return
	}

	report.Checks = append(report.Checks, CheckResult{
		Category: "Docker",
		Name:     "Leftover Containers",
		Status:   statusPass,
		Message:  fmt.Sprintf("No containers for project %q", project),
	})
}

// outputJSON outputs results as JSON
func (c *DoctorCommand) outputJSON(report *DoctorReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	c.Logger.Noticef("%s", string(data))

	if !report.Healthy {
		return fmt.Errorf("health check failed")
	}
	return nil
}

// outputHuman outputs results in human-readable format
func (c *DoctorCommand) outputHuman(report *DoctorReport) error {
	c.Logger.Noticef("🏥 itrun Health Check\n")

	categories := make(map[string][]CheckResult)
	categoryOrder := []string{"Configuration", "Compose", "Docker", "Docker Images"}

	for _, check := range report.Checks {
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, category := range categoryOrder {
		checks, exists := categories[category]
		if !exists {
			continue
		}

		c.Logger.Noticef("%s", category)
		for _, check := range checks {
			statusIcon := getStatusIcon(check.Status)
			if check.Message != "" {
				c.Logger.Noticef("  %s %s: %s", statusIcon, check.Name, check.Message)
			} else {
				c.Logger.Noticef("  %s %s", statusIcon, check.Name)
			}

			for _, hint := range check.Hints {
				c.Logger.Noticef("    → %s", hint)
			}
		}
		c.Logger.Noticef("")
	}

	failCount := 0
	skipCount := 0
	for _, check := range report.Checks {
		switch check.Status {
		case statusFail:
			failCount++
		case statusSkip:
			skipCount++
		}
	}

	if report.Healthy {
		c.Logger.Noticef("Summary: All checks passed ✅")
		if skipCount > 0 {
			c.Logger.Noticef("  (%d check(s) skipped as not applicable)", skipCount)
		}
		return nil
	}

	c.Logger.Noticef("Summary: %d issue(s) found ❌", failCount)
	if skipCount > 0 {
		c.Logger.Noticef("  (%d check(s) skipped due to blockers)", skipCount)
	}
	return fmt.Errorf("health check failed")
}

// getStatusIcon returns emoji for check status
func getStatusIcon(status string) string {
	switch status {
	case statusPass:
		return "✅"
	case statusFail:
		return "❌"
	case statusSkip:
		return "⚠️"
	default:
		return "❓"
	}
}
