// Package server exposes a chain catalog over HTTP using Gin, with h2c so
// HTTP/2 clients work without TLS.
//
// Routes:
//
//   - GET  /health: aggregated component health
//   - GET  /version: build information
//   - GET  /chains: chain summaries
//   - POST /chains/:name/invoke: {"input": ...} -> {"data": {"output": ..., "run_id": ...}}
//   - POST /chains/:name/batch: {"inputs": [...], "max_concurrency": n, "return_errors": bool}
//   - GET  /metrics: when a metrics handler is configured
//
// Failures are rendered as errors.ErrorResponse envelopes. The middleware
// in server/middleware (recovery, request id, request logging, body size
// limit) wraps every route.
package server
