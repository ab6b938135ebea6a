package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const ConfigFormatVersion = "0.1"

// ConsoleConfig controls where script console output goes
type ConsoleConfig struct {
	Output string `toml:"output" yaml:"output" validate:"oneof=stdout stderr log"` // stdout, stderr or log
	Color  bool   `toml:"color" yaml:"color"`                                      // colorize stdout/stderr output
	Labels bool   `toml:"labels" yaml:"labels"`                                    // prefix each message with its kind
}

// HeapConfig bounds the memory handed to each interpreter context
type HeapConfig struct {
	LimitBytes int `toml:"limit_bytes" yaml:"limit_bytes" validate:"gte=0"` // 0 means unlimited
}

// RequireConfig enables CommonJS modules for scripts
type RequireConfig struct {
	Enabled       bool     `toml:"enabled" yaml:"enabled"`
	GlobalFolders []string `toml:"global_folders" yaml:"global_folders" validate:"dive,required"`
}

// ConfigParam holds all configuration parameters for the jsbridge command
type ConfigParam struct {
	FormatVersion string        `toml:"format_version" yaml:"format_version" validate:"eq=0.1"`
	LogLevel      string        `toml:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error"`
	PrettyLog     bool          `toml:"pretty_log" yaml:"pretty_log"`
	Timeout       string        `toml:"timeout" yaml:"timeout" validate:"duration"` // Go duration, e.g. "5s"; negative disables
	Console       ConsoleConfig `toml:"console" yaml:"console"`
	Heap          HeapConfig    `toml:"heap" yaml:"heap"`
	Require       RequireConfig `toml:"require" yaml:"require"`
}

// GetTimeout returns the execution budget as time.Duration
func (c *ConfigParam) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// Default returns the configuration used when no file is given
func Default() *ConfigParam {
	return &ConfigParam{
		FormatVersion: ConfigFormatVersion,
		LogLevel:      "info",
		Timeout:       "5s",
		Console: ConsoleConfig{
			Output: "stdout",
			Color:  true,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidateConfig checks if all configuration values are present and valid
func ValidateConfig(c *ConfigParam) error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// Parse decodes content according to the file extension of name (.toml, .yaml or .yml).
// Values missing from content keep their defaults.
func Parse(name string, content []byte) (*ConfigParam, error) {
	c := Default()
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		if _, err := toml.Decode(string(content), c); err != nil {
			return nil, errors.Wrap(err, "error parsing toml config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, c); err != nil {
			return nil, errors.Wrap(err, "error parsing yaml config")
		}
	default:
		return nil, errors.Errorf("unsupported config file extension %q", ext)
	}
	if err := ValidateConfig(c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfig loads configuration from a file. An empty filename selects the defaults.
func LoadConfig(filename string) error {
	if filename == "" {
		cfg = Default()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "error reading config file")
	}
	c, err := Parse(filename, content)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func init() {
	if err := LoadConfig(""); err != nil {
		panic(err)
	}
}
