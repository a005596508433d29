package cli

import (
	"fmt"
	"strings"
	"time"

	defaults "github.com/creasty/defaults"
	validator "github.com/go-playground/validator/v10"
	"github.com/gobs/args"
	"github.com/mitchellh/mapstructure"
	ini "gopkg.in/ini.v1"

	"github.com/artefactual-labs/itrun/config"
	"github.com/artefactual-labs/itrun/core"
	"github.com/artefactual-labs/itrun/middlewares"
)

// DefaultConfigFile is looked up relative to the working directory; a missing
// config file is not an error, the defaults reproduce the plain run cycle.
const DefaultConfigFile = "./itrun.ini"

// Config contains the configuration
type Config struct {
	Global struct {
		middlewares.SaveConfig `mapstructure:",squash"`
		middlewares.MailConfig `mapstructure:",squash"`
		LogLevel               string `mapstructure:"log-level"`
	} `mapstructure:"global"`
	Project ProjectConfig `mapstructure:"project"`

	logger core.Logger
}

// ProjectConfig describes the compose project and how to run it.
type ProjectConfig struct {
	// Dir is the compose project directory; empty means the directory
	// containing the itrun executable.
	Dir              string        `mapstructure:"dir"`
	File             string        `mapstructure:"file" default:"docker-compose.yml" validate:"required"`
	Service          string        `mapstructure:"service" default:"archivematica-storage-service" validate:"required"`
	Command          string        `mapstructure:"command"`
	DownVolumes      bool          `mapstructure:"down-volumes"`
	RemoveOrphans    bool          `mapstructure:"remove-orphans"`
	MaxRuntime       time.Duration `mapstructure:"max-runtime"`
	MaxRetries       int           `mapstructure:"max-retries" validate:"gte=0"`
	RetryDelayMs     int           `mapstructure:"retry-delay-ms" default:"1000" validate:"gt=0"`
	RetryExponential bool          `mapstructure:"retry-exponential" default:"true"`
	RetryMaxDelayMs  int           `mapstructure:"retry-max-delay-ms" default:"60000" validate:"gt=0"`
}

func NewConfig(logger core.Logger) *Config {
	c := &Config{logger: logger}
	_ = defaults.Set(c)
	return c
}

// BuildFromFile builds a config from an INI file
func BuildFromFile(filename string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, filename)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", filename, err)
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, err
	}
	logger.Debugf("loaded config file %s", filename)
	return c, nil
}

// BuildFromString builds a config from INI content
func BuildFromString(content string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := parseIni(cfg, c); err != nil {
		return nil, err
	}
	return c, nil
}

func parseIni(cfg *ini.File, c *Config) error {
	for _, section := range cfg.Sections() {
		// ini.DefaultSection is upper case, the lowered name never matches it
		name := strings.ToLower(section.Name())
		switch name {
		case strings.ToLower(ini.DefaultSection), "global":
			if err := decodeSection(section, &c.Global); err != nil {
				return fmt.Errorf("section %q: %w", name, err)
			}
		case "project":
			if err := decodeSection(section, &c.Project); err != nil {
				return fmt.Errorf("section %q: %w", name, err)
			}
		default:
			c.logger.Warningf("Ignoring unknown config section %q", section.Name())
		}
	}
	return nil
}

func decodeSection(section *ini.Section, output interface{}) error {
	input := make(map[string]interface{}, len(section.Keys()))
	for key, value := range section.KeysHash() {
		input[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		MatchName:        caseInsensitiveMatch,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// caseInsensitiveMatch matches map keys to struct fields case-insensitively
func caseInsensitiveMatch(mapKey, fieldName string) bool {
	return strings.EqualFold(normalizeKey(mapKey), normalizeKey(fieldName))
}

// normalizeKey normalizes a configuration key for comparison.
// Handles both kebab-case (config files) and underscores (mapstructure tags)
func normalizeKey(key string) string {
	k := strings.ToLower(key)
	k = strings.ReplaceAll(k, "-", "")
	k = strings.ReplaceAll(k, "_", "")
	return k
}

// Validate checks field constraints and command-line safety of the values
// that end up in compose argv.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	v := config.NewCommandValidator()
	if err := v.ValidateServiceName(c.Project.Service); err != nil {
		return err
	}
	if err := v.ValidateComposePath(c.Project.File); err != nil {
		return err
	}
	if c.Project.Command != "" {
		if err := v.ValidateCommandArgs(args.GetArgs(c.Project.Command)); err != nil {
			return err
		}
	}
	return nil
}

// ComposeProject builds the core project from the configuration.
func (c *Config) ComposeProject() *core.ComposeProject {
	return &core.ComposeProject{
		Dir:           c.Project.Dir,
		File:          c.Project.File,
		Service:       c.Project.Service,
		Command:       c.Project.Command,
		DownVolumes:   c.Project.DownVolumes,
		RemoveOrphans: c.Project.RemoveOrphans,
	}
}

// RetryConfig builds the retry settings of the run step.
func (c *Config) RetryConfig() core.RetryConfig {
	return core.RetryConfig{
		MaxRetries:       c.Project.MaxRetries,
		RetryDelayMs:     c.Project.RetryDelayMs,
		RetryExponential: c.Project.RetryExponential,
		RetryMaxDelayMs:  c.Project.RetryMaxDelayMs,
	}
}

// Middlewares builds the middleware chain from the global section.
func (c *Config) Middlewares() []core.Middleware {
	var ms []core.Middleware
	if m := middlewares.NewSave(&c.Global.SaveConfig); m != nil {
		ms = append(ms, m)
	}
	if m := middlewares.NewMail(&c.Global.MailConfig); m != nil {
		ms = append(ms, m)
	}
	return ms
}
