package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/finance-formula/pkg/constants"
	"go.uber.org/zap"
)

const sampleConfig = `logging:
  level: debug
  format: console
output:
  format: JSON
formula:
  maxLength: 200
  placeholderValue: 2.5
  batchConcurrency: 4
telemetry:
  enabled: true
catalog:
  streams:
    - id: 1
      name: Subscriptions
      amount: 12000
    - id: "2"
      name: Services
      amount: 3000
      frequency: 3
  drivers:
    - id: 2
      name: Growth rate
      amount: 1.05
  expenses:
    - id: rent
      name: Office rent
      amount: 2500
  personnel:
    - id: 7
      name: Engineering
      formula: stream_1 * 0.4
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Sample config file",
			configPath: writeConfig(t, sampleConfig),
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationValues(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("unexpected logging config %+v", conf.Logging)
	}
	if conf.Output.Format != "json" {
		t.Errorf("expected normalized output format json, got %q", conf.Output.Format)
	}
	if conf.Formula.MaxLength != 200 || conf.Formula.PlaceholderValue != 2.5 || conf.Formula.BatchConcurrency != 4 {
		t.Errorf("unexpected formula config %+v", conf.Formula)
	}
	if !conf.Telemetry.Enabled || conf.Telemetry.Stdout {
		t.Errorf("unexpected telemetry config %+v", conf.Telemetry)
	}

	entities := conf.Catalog.Entities()
	if len(entities) != 5 {
		t.Fatalf("expected 5 entities, got %d", len(entities))
	}

	expectedRefs := []string{"stream_1", "stream_2", "driver_2", "expense_rent", "personnel_7"}
	for i, ref := range expectedRefs {
		if entities[i].Reference() != ref {
			t.Errorf("entity %d reference = %s, expected %s", i, entities[i].Reference(), ref)
		}
	}

	if entities[0].Frequency != constants.DefaultFrequency {
		t.Errorf("expected unset frequency to default to %d, got %d", constants.DefaultFrequency, entities[0].Frequency)
	}
	if entities[1].Frequency != 3 {
		t.Errorf("expected frequency 3, got %d", entities[1].Frequency)
	}
	if entities[4].Formula != "stream_1 * 0.4" {
		t.Errorf("unexpected formula %q", entities[4].Formula)
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	conf, err := LoadConfigurationFromReader(strings.NewReader("output:\n  format: pretty\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if conf.Formula.MaxLength != constants.DefaultMaxFormulaLength {
		t.Errorf("MaxLength = %d, expected %d", conf.Formula.MaxLength, constants.DefaultMaxFormulaLength)
	}
	if conf.Formula.PlaceholderValue != constants.DefaultPlaceholderValue {
		t.Errorf("PlaceholderValue = %v, expected %v", conf.Formula.PlaceholderValue, constants.DefaultPlaceholderValue)
	}
	if conf.Formula.BatchConcurrency != constants.DefaultBatchConcurrency {
		t.Errorf("BatchConcurrency = %d, expected %d", conf.Formula.BatchConcurrency, constants.DefaultBatchConcurrency)
	}
	if len(conf.Catalog.Entities()) != 0 {
		t.Errorf("expected empty catalog")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("FF_OUTPUT_FORMAT", "YAML")

	conf, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if conf.Formula.MaxLength != constants.DefaultMaxFormulaLength {
		t.Errorf("MaxLength = %d, expected %d", conf.Formula.MaxLength, constants.DefaultMaxFormulaLength)
	}
	if conf.Output.Format != "yaml" {
		t.Errorf("expected env override of output format, got %q", conf.Output.Format)
	}
}

func TestLoadConfigurationFromReaderInvalid(t *testing.T) {
	if _, err := LoadConfigurationFromReader(strings.NewReader("catalog: [unterminated")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("FF_LOGGING_LEVEL", "warn")
	t.Setenv("FF_FORMULA_MAXLENGTH", "42")

	conf, err := LoadConfiguration(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Logging.Level != "warn" {
		t.Errorf("expected env override of logging level, got %q", conf.Logging.Level)
	}
	if conf.Formula.MaxLength != 42 {
		t.Errorf("expected env override of max length, got %d", conf.Formula.MaxLength)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	updates := make(chan *Configuration, 16)
	conf, err := Watch(path, zap.NewNop(), func(c *Configuration) {
		updates <- c
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if len(conf.Catalog.Streams) != 2 {
		t.Fatalf("expected 2 streams initially, got %d", len(conf.Catalog.Streams))
	}

	updated := strings.Replace(sampleConfig, "amount: 12000", "amount: 15000", 1)
	if err := os.WriteFile(path, []byte(updated), 0600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-updates:
			if len(c.Catalog.Streams) > 0 && c.Catalog.Streams[0].Amount == 15000 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for configuration reload")
		}
	}
}
