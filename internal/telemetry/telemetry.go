// Package telemetry records review metrics through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/liamcoop/payrollrisk/internal/logger"
)

const meterName = "github.com/liamcoop/payrollrisk"

// Config configures the metric exporter.
type Config struct {
	Enabled        bool
	ServiceName    string
	Endpoint       string
	Insecure       bool
	ExportInterval time.Duration
}

// Recorder owns the meter provider and the review instruments.
// A nil *Recorder records nothing.
type Recorder struct {
	provider     *sdkmetric.MeterProvider
	sessions     metric.Int64Counter
	judgements   metric.Int64Counter
	faults       metric.Int64Counter
	evalDuration metric.Float64Histogram
}

// Setup creates a Recorder. When cfg.Enabled is false the provider has no
// reader and nothing leaves the process.
func Setup(ctx context.Context, cfg Config) (*Recorder, error) {
	if !cfg.Enabled {
		logger.Debug("telemetry disabled")
		return NewRecorder(sdkmetric.NewMeterProvider())
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	logger.Info("telemetry initialized", "service", cfg.ServiceName, "endpoint", cfg.Endpoint)
	return NewRecorder(provider)
}

// NewRecorder registers the review instruments on provider.
func NewRecorder(provider *sdkmetric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)
	r := &Recorder{provider: provider}

	var err error
	if r.sessions, err = meter.Int64Counter("payrollrisk.sessions.processed",
		metric.WithDescription("Review sessions processed")); err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}
	if r.judgements, err = meter.Int64Counter("payrollrisk.judgements",
		metric.WithDescription("Judgements produced, by severity")); err != nil {
		return nil, fmt.Errorf("failed to create judgements counter: %w", err)
	}
	if r.faults, err = meter.Int64Counter("payrollrisk.rule.faults",
		metric.WithDescription("Rule evaluations skipped after an error or panic")); err != nil {
		return nil, fmt.Errorf("failed to create faults counter: %w", err)
	}
	if r.evalDuration, err = meter.Float64Histogram("payrollrisk.evaluation.duration",
		metric.WithDescription("Time to compute deltas and evaluate rules"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return r, nil
}

// RecordSession counts one processed session with its outcome.
func (r *Recorder) RecordSession(ctx context.Context, tier, status string, took time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tier", tier), attribute.String("status", status))
	r.sessions.Add(ctx, 1, attrs)
	r.evalDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("tier", tier)))
}

// RecordJudgements adds judgement counts keyed by severity.
func (r *Recorder) RecordJudgements(ctx context.Context, bySeverity map[string]int) {
	if r == nil {
		return
	}
	for severity, n := range bySeverity {
		r.judgements.Add(ctx, int64(n), metric.WithAttributes(attribute.String("severity", severity)))
	}
}

// RecordFaults adds rule faults.
func (r *Recorder) RecordFaults(ctx context.Context, n int) {
	if r == nil || n == 0 {
		return
	}
	r.faults.Add(ctx, int64(n))
}

// Shutdown flushes and stops the provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.provider.Shutdown(ctx)
}
