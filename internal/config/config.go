// Package config defines the data structures related to configuration and
// includes functions for loading, watching and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Configuration holds all configuration for finance-formula.
type Configuration struct {
	Logging   LoggingConfig   `yaml:"logging,omitempty" mapstructure:"logging"`
	Output    OutputConfig    `yaml:"output,omitempty" mapstructure:"output"`
	Formula   FormulaConfig   `yaml:"formula,omitempty" mapstructure:"formula"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty" mapstructure:"telemetry"`
	Catalog   CatalogConfig   `yaml:"catalog,omitempty" mapstructure:"catalog"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, json, yaml
}

// FormulaConfig holds formula engine limits.
type FormulaConfig struct {
	MaxLength        int     `yaml:"maxLength,omitempty" mapstructure:"maxLength"`
	PlaceholderValue float64 `yaml:"placeholderValue,omitempty" mapstructure:"placeholderValue"`
	BatchConcurrency int     `yaml:"batchConcurrency,omitempty" mapstructure:"batchConcurrency"`
}

// TelemetryConfig toggles OpenTelemetry metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Stdout  bool `yaml:"stdout,omitempty" mapstructure:"stdout"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is present:
// built-in defaults plus any environment overrides.
func Default() (*Configuration, error) {
	return decode(newViper())
}

// Watch loads the configuration at configPath and calls onChange with a
// freshly decoded copy whenever the file is written. Reload failures are
// logged and the previous configuration stays in effect.
func Watch(configPath string, logger *zap.Logger, onChange func(*Configuration)) (*Configuration, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		updated, err := decode(v)
		if err != nil {
			logger.Warn("failed to reload configuration",
				zap.String("op", "config.Watch"),
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("configuration reloaded",
			zap.String("op", "config.Watch"),
			zap.String("file", e.Name),
		)
		onChange(updated)
	})
	v.WatchConfig()

	return conf, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register the keys so environment overrides reach Unmarshal.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	v.SetDefault("formula.maxLength", constants.DefaultMaxFormulaLength)
	v.SetDefault("formula.placeholderValue", constants.DefaultPlaceholderValue)
	v.SetDefault("formula.batchConcurrency", constants.DefaultBatchConcurrency)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Normalize()
	return &configuration, nil
}

// Normalize applies defaults to unset values.
func (c *Configuration) Normalize() {
	if c.Formula.PlaceholderValue == 0 {
		c.Formula.PlaceholderValue = constants.DefaultPlaceholderValue
	}
	if c.Formula.BatchConcurrency <= 0 {
		c.Formula.BatchConcurrency = constants.DefaultBatchConcurrency
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Catalog.Normalize()
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Formula.MaxLength < 0 {
		warnings = append(warnings, fmt.Sprintf("formula.maxLength %d is negative; formula length is unlimited", c.Formula.MaxLength))
	}

	warnings = append(warnings, c.Catalog.Validate(c.Formula.MaxLength)...)

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
