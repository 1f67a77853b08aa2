// Package logger provides structured logging for runkit using zerolog.
//
// Every top-level invocation carries a run id on its context. WithContext
// lifts it into the log fields, together with the HTTP request id and the
// trace id of the active OpenTelemetry span, so the lines of one run can be
// correlated across nested steps.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	ctx, runID := logger.EnsureRunID(ctx)
//	log := logger.New(&cfg.Logging, "runkit").WithComponent("chain").WithContext(ctx)
//	log.Info("chain started", logger.Fields(logger.FieldChain, name))
package logger
