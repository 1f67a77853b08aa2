// Package observability wires runkit into OpenTelemetry and Prometheus.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
//	    ServiceName: "runkit",
//	    Endpoint:    "localhost:4318",
//	    Insecure:    true,
//	    SampleRate:  1,
//	})
//	defer tp.Shutdown(ctx)
//
// Metrics are recorded through the Recorder interface. Metrics (OTLP) and
// PromMetrics (Prometheus pull) both implement it; Multi fans out to several:
//
//	prom, _ := observability.NewPromMetrics(prometheus.NewRegistry())
//	r = runnable.WithMetrics[I, O](prom)(r)
//	mux.Handle("/metrics", prom.Handler())
package observability
