package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestPromMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPromMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.InvocationStarted(ctx, "double")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.active.WithLabelValues("double")))

	m.InvocationFinished(ctx, "double", StatusOK, 10*time.Millisecond)
	m.RecordError(ctx, "double", "timeout")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.active.WithLabelValues("double")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("double", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("double", "timeout")))
}

func TestPromMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromMetrics(reg)
	require.NoError(t, err)
	_, err = NewPromMetrics(reg)
	assert.Error(t, err)
}

func TestPromMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPromMetrics(reg)
	require.NoError(t, err)
	m.InvocationFinished(context.Background(), "upper", StatusError, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `runkit_invocations_total{runnable="upper",status="error"} 1`))
}

func TestMetrics_OTel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.InvocationStarted(ctx, "seq")
	m.InvocationFinished(ctx, "seq", StatusOK, time.Millisecond)
	m.RecordError(ctx, "seq", "execution")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			names[md.Name] = true
		}
	}
	for _, want := range []string{"runnable.invocations", "runnable.duration", "runnable.active", "runnable.errors"} {
		assert.True(t, names[want], want)
	}
}

type countingRecorder struct{ started, finished, errs int }

func (c *countingRecorder) InvocationStarted(context.Context, string) { c.started++ }
func (c *countingRecorder) InvocationFinished(context.Context, string, string, time.Duration) {
	c.finished++
}
func (c *countingRecorder) RecordError(context.Context, string, string) { c.errs++ }

func TestMulti(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	r := Multi(a, NopRecorder{}, b)
	ctx := context.Background()
	r.InvocationStarted(ctx, "x")
	r.InvocationFinished(ctx, "x", StatusOK, 0)
	r.RecordError(ctx, "x", "y")

	for _, c := range []*countingRecorder{a, b} {
		assert.Equal(t, countingRecorder{1, 1, 1}, *c)
	}
}

func TestSpanHelpers(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), SpanInvoke)
	SetSpanAttribute(ctx, AttrRunnable, "double")
	SetSpanAttribute(ctx, "count", 3)
	SetSpanError(ctx, errors.New("boom"))
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "double", attrs[AttrRunnable])
	assert.Equal(t, "3", attrs["count"])
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

type staticChecker Health

func (s staticChecker) CheckHealth(context.Context) Health { return Health(s) }

func TestCheck(t *testing.T) {
	sh := Check(context.Background(), "runkit", "v1",
		staticChecker{Name: "catalog", Status: HealthStatusUp},
		staticChecker{Name: "cache", Status: HealthStatusDegraded},
	)
	assert.Equal(t, HealthStatusDegraded, sh.Status)
	assert.Len(t, sh.Components, 2)

	sh.AddComponent(Health{Name: "x", Status: HealthStatusDown})
	assert.Equal(t, HealthStatusDown, sh.Status)
	sh.AddComponent(Health{Name: "y", Status: HealthStatusDegraded})
	assert.Equal(t, HealthStatusDown, sh.Status)
}

func TestCheck_OrderAndEmpty(t *testing.T) {
	sh := Check(context.Background(), "runkit", "")
	assert.Equal(t, HealthStatusUp, sh.Status)
	assert.Empty(t, sh.Components)

	var checkers []HealthChecker
	for _, name := range []string{"a", "b", "c", "d"} {
		checkers = append(checkers, staticChecker{Name: name, Status: HealthStatusUp})
	}
	sh = Check(context.Background(), "runkit", "", checkers...)
	require.Len(t, sh.Components, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, sh.Components[i].Name)
	}
	assert.Equal(t, HealthStatusUp, sh.Status)

	sh.AddComponent(Health{Name: "odd", Status: "unknown"})
	assert.Equal(t, HealthStatus("unknown"), sh.Status)
}
