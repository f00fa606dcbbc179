// Package metrics exposes the engine's OpenTelemetry instruments. Without a
// configured provider the instruments are no-ops.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"

	sdk "go.opentelemetry.io/otel/sdk/metric"
)

// Config selects the metrics exporter. Empty or "none" disables export.
type Config struct {
	Exporter string        `conf:"exporter" yaml:"exporter" json:"exporter"`
	Interval time.Duration `conf:"interval" yaml:"interval" json:"interval"`
}

// NewProvider builds a meter provider from config. A nil provider means
// metrics stay disabled.
func NewProvider(cfg Config) (*sdk.MeterProvider, error) {
	switch cfg.Exporter {
	case "", "none":
		return nil, nil
	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("metrics: stdout exporter: %w", err)
		}

		interval := cfg.Interval
		if interval == 0 {
			interval = time.Minute
		}

		return sdk.NewMeterProvider(
			sdk.WithReader(sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))),
		), nil
	default:
		return nil, fmt.Errorf("metrics: unsupported exporter %q", cfg.Exporter)
	}
}

var (
	runsStarted    metric.Int64Counter
	runsFinished   metric.Int64Counter
	exportOutcomes metric.Int64Counter
	detectorHits   metric.Int64Counter
)

// SetupMetrics installs the provider globally and creates the engine
// instruments.
func SetupMetrics(provider *sdk.MeterProvider, name string) error {
	otel.SetMeterProvider(provider)

	meter := otel.Meter(name)

	var err error

	if runsStarted, err = meter.Int64Counter("discovery_runs_started"); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if runsFinished, err = meter.Int64Counter("discovery_runs_finished"); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if exportOutcomes, err = meter.Int64Counter("export_gate_outcomes"); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if detectorHits, err = meter.Int64Counter("detector_hits"); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	return nil
}

// RunStarted counts accepted run submissions.
func RunStarted(ctx context.Context, tenantID string) {
	if runsStarted == nil {
		return
	}

	runsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant", tenantID)))
}

// RunFinished counts terminal runs by final status.
func RunFinished(ctx context.Context, tenantID, status string) {
	if runsFinished == nil {
		return
	}

	runsFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", tenantID),
		attribute.String("status", status),
	))
}

// ExportOutcome counts allowed/blocked export attempts.
func ExportOutcome(ctx context.Context, tenantID string, allowed bool) {
	if exportOutcomes == nil {
		return
	}

	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}

	exportOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", tenantID),
		attribute.String("outcome", outcome),
	))
}

// DetectorHit counts detector results by detector type.
func DetectorHit(ctx context.Context, detectorType string, n int) {
	if detectorHits == nil || n == 0 {
		return
	}

	detectorHits.Add(ctx, int64(n), metric.WithAttributes(attribute.String("detector", detectorType)))
}
