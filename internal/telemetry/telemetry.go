// Package telemetry provides OpenTelemetry integration for formula
// validation.
//
// Telemetry is disabled by default. When disabled, Init installs no-op
// providers and every Recorder call is effectively free.
//
// # Configuration
//
//	telemetry:
//	  enabled: true   # install SDK providers
//	  stdout: true    # export spans/metrics to stdout instead of stderr
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iwvelando/finance-formula/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationScope = "github.com/iwvelando/finance-formula"
	serviceName          = "finance-formula"
	exportInterval       = 15 * time.Second
)

var shutdownFns []func(context.Context) error

// Init configures OTel providers from cfg. When telemetry is disabled this
// installs no-op providers and returns immediately.
func Init(ctx context.Context, cfg config.TelemetryConfig, version string) error {
	if !cfg.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	var w io.Writer = os.Stderr
	if cfg.Stdout {
		w = os.Stdout
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	spanExp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExp),
	)
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	return nil
}

// Tracer returns a tracer for the global instrumentation scope.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationScope)
}

// Meter returns a meter for the global instrumentation scope.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

// Shutdown flushes all spans/metrics and shuts down OTel providers.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
}
