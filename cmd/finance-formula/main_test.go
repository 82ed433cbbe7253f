package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/finance-formula/internal/config"
	"github.com/iwvelando/finance-formula/internal/server"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/testutil"
	"go.uber.org/zap"
)

const testConfig = `logging:
  level: error
catalog:
  streams:
    - id: 1
      name: Subscriptions
      amount: 1000
  drivers:
    - id: 2
      name: Growth
      amount: 500
  expenses:
    - id: rent
      amount: 250
      frequency: 3
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, "config.yaml", testConfig)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "config.yaml")

	_, err := execute(t, "check", "10 + 20 * 2", "--log-level", "error", "--config", missing)
	if err == nil || !strings.Contains(err.Error(), "failed to load configuration") {
		t.Fatalf("an explicit missing config should fail, got %v", err)
	}

	cfgPath := writeTestConfig(t)
	out, err := execute(t, "check", "missing_var / 0", "--config", cfgPath)
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, "Result:  valid syntax") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "check", "10 + * 20", "--config", cfgPath)
	if !errors.Is(err, errInvalidVerdict) {
		t.Fatalf("expected errInvalidVerdict, got %v", err)
	}
	if !strings.Contains(out, "invalid (syntax error, syntax)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "validate", "stream_1 + driver_2 * 1.5",
		"--var", "stream_1=1000", "--var", "driver_2=500",
		"--output-format", "json", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}

	var report struct {
		Result formula.ValidationResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !report.Result.IsValid || report.Result.Value == nil || *report.Result.Value != 1750 {
		t.Errorf("unexpected result %+v", report.Result)
	}

	_, err = execute(t, "validate", "x / y", "--var", "x=1", "--var", "y=0", "--config", cfgPath)
	if !errors.Is(err, errInvalidVerdict) {
		t.Errorf("expected errInvalidVerdict for division by zero, got %v", err)
	}

	_, err = execute(t, "validate", "x", "--var", "x=abc", "--config", cfgPath)
	if err == nil || errors.Is(err, errInvalidVerdict) {
		t.Errorf("expected a usage error for a non-numeric variable, got %v", err)
	}
}

func TestValidateCommandDryRun(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "validate", "stream_9 * 4", "--dry-run", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate --dry-run returned error: %v", err)
	}
	if !strings.Contains(out, "value 4") {
		t.Errorf("expected placeholder evaluation, got:\n%s", out)
	}
}

func TestValidateCommandCatalog(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "validate", "stream_1 * rate", "--catalog", "--var", "rate=0.5", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate --catalog returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "value 500") {
		t.Errorf("expected catalog value to be used, got:\n%s", out)
	}

	out, err = execute(t, "validate", "stream_1 * 2", "--catalog", "--var", "stream_1=3", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate --catalog returned error: %v", err)
	}
	if !strings.Contains(out, "value 6") {
		t.Errorf("expected --var to override the catalog, got:\n%s", out)
	}

	_, err = execute(t, "validate", "stream_1 * 2", "--config", cfgPath)
	if !errors.Is(err, errInvalidVerdict) {
		t.Errorf("without --catalog stream_1 should be unknown, got %v", err)
	}
}

func TestEvalCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "eval", "stream_1 - expense_rent", "--output-format", "yaml", "--config", cfgPath)
	if err != nil {
		t.Fatalf("eval returned error: %v", err)
	}
	if !strings.Contains(out, "value: 750") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "eval", "stream_1 + personnel_3", "--config", cfgPath)
	if !errors.Is(err, errInvalidVerdict) {
		t.Fatalf("expected errInvalidVerdict, got %v", err)
	}
	if !strings.Contains(out, "Missing: personnel_3") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRefsAndCatalogCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "refs", "stream_1 + driver_2 * stream_1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("refs returned error: %v", err)
	}
	if out != "stream_1\tstream\t1\ndriver_2\tdriver\t2\n" {
		t.Errorf("unexpected refs output %q", out)
	}

	out, err = execute(t, "catalog", "--config", cfgPath)
	if err != nil {
		t.Fatalf("catalog returned error: %v", err)
	}
	if !strings.Contains(out, "expense_rent") || !strings.Contains(out, "$83.33") {
		t.Errorf("unexpected catalog output:\n%s", out)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := execute(t, "check", "1", "--output-format", "csv", "--config", writeTestConfig(t))
	if err == nil || !strings.Contains(err.Error(), "expected output format") {
		t.Errorf("expected output format error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if out != "finance-formula dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		override  string
		expectErr bool
	}{
		{name: "Defaults", cfg: config.LoggingConfig{}},
		{name: "Console debug", cfg: config.LoggingConfig{Level: "debug", Format: "console"}},
		{name: "Override wins", cfg: config.LoggingConfig{Level: "bogus"}, override: "warn"},
		{name: "Warning alias", cfg: config.LoggingConfig{Level: "warning"}},
		{name: "Zap-only level", cfg: config.LoggingConfig{Level: "dpanic"}},
		{name: "Upper case level", cfg: config.LoggingConfig{Level: "ERROR"}},
		{name: "Invalid level", cfg: config.LoggingConfig{Level: "trace"}, expectErr: true},
		{name: "Invalid format", cfg: config.LoggingConfig{Format: "xml"}, expectErr: true},
		{name: "Output file", cfg: config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "ff.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.cfg, tt.override)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			_ = logger.Sync()
		})
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	conf, err := config.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	serverCfg, err := server.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	serverCfg.Address = "127.0.0.1:0"

	rt := &cliEnv{
		conf:   conf,
		logger: zap.NewNop(),
		engine: formula.NewEngine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, rt, "", serverCfg)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServeRejectsInvalidBodySize(t *testing.T) {
	_, err := execute(t, "serve", "--config", writeTestConfig(t),
		"--server-config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--max-body-size", "lots")
	if err == nil || !strings.Contains(err.Error(), "invalid --max-body-size") {
		t.Errorf("expected a body size error, got %v", err)
	}
}
