package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/finance-formula/internal/config"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cliEnv is the shared state every subcommand starts from.
type cliEnv struct {
	conf         *config.Configuration
	configFound  bool
	logger       *zap.Logger
	outputFormat string
	engine       *formula.Engine
}

// setup loads configuration and builds the logger. A missing configuration
// file is only an error when --config was given explicitly.
func (o *rootOptions) setup(cmd *cobra.Command) (*cliEnv, error) {
	conf, found, err := o.loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := initializeLogger(conf.Logging, o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	outputFormat := conf.Output.Format
	if o.outputFormat != "" {
		outputFormat = o.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return nil, err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}

	return &cliEnv{
		conf:         conf,
		configFound:  found,
		logger:       logger,
		outputFormat: outputFormat,
		engine:       formula.NewEngine(formula.WithMaxLength(conf.Formula.MaxLength)),
	}, nil
}

func (o *rootOptions) loadConfiguration(cmd *cobra.Command) (*config.Configuration, bool, error) {
	if _, err := os.Stat(o.configPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		conf, err := config.Default()
		return conf, false, err
	}

	conf, err := config.LoadConfiguration(o.configPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load configuration at %s: %w", o.configPath, err)
	}
	return conf, true, nil
}

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		level = "info"
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zc zap.Config
	switch loggingConfig.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", loggingConfig.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		zc.OutputPaths = []string{loggingConfig.OutputFile}
		zc.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zc.Build()
}
