package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/runkit/logger"
)

// MeterConfig configures the OTLP/HTTP metric exporter. It shares the
// resource attributes of TracerConfig.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	// Interval between exports. Zero keeps the SDK default of one minute.
	Interval time.Duration
}

// InitMeter installs a global meter provider that pushes to config.Endpoint
// on a timer. Shut it down on exit to flush the last interval.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var reader sdkmetric.Reader
	if config.Interval > 0 {
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.Interval))
	} else {
		reader = sdkmetric.NewPeriodicReader(exporter)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics records runnable invocations as OpenTelemetry instruments.
type Metrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
	errors      metric.Int64Counter
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics creates the runnable instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	invocations, err := meter.Int64Counter("runnable.invocations",
		metric.WithDescription("Completed runnable invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runnable.invocations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("runnable.duration",
		metric.WithDescription("Duration of runnable invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runnable.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("runnable.active",
		metric.WithDescription("Runnable invocations in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runnable.active counter: %w", err)
	}

	errs, err := meter.Int64Counter("runnable.errors",
		metric.WithDescription("Runnable failures by error class"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runnable.errors counter: %w", err)
	}

	return &Metrics{
		invocations: invocations,
		duration:    duration,
		active:      active,
		errors:      errs,
	}, nil
}

func (m *Metrics) InvocationStarted(ctx context.Context, runnable string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("runnable", runnable)))
}

func (m *Metrics) InvocationFinished(ctx context.Context, runnable, status string, d time.Duration) {
	name := attribute.String("runnable", runnable)
	m.active.Add(ctx, -1, metric.WithAttributes(name))
	m.invocations.Add(ctx, 1, metric.WithAttributes(name, attribute.String("status", status)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(name))
}

func (m *Metrics) RecordError(ctx context.Context, runnable, errType string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("runnable", runnable),
		attribute.String("type", errType),
	))
}
