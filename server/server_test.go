package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/runkit/chain"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/security"
	"github.com/kbukum/runkit/security/tlstest"
)

func init() { gin.SetMode(gin.TestMode) }

const (
	shoutDef = `
name: shout
description: upper-case the text field
steps:
  - select: text
  - unit: upper
`
	statsDef = `
name: stats
steps:
  - parallel:
      - {key: words, unit: word_count}
      - {key: length, unit: length}
`
	upperDef = `
name: upper
steps:
  - unit: upper
`
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	loader := chain.NewMapLoader()
	for _, src := range []string{shoutDef, statsDef, upperDef} {
		def, err := chain.Parse([]byte(src))
		require.NoError(t, err)
		loader.Add(def)
	}
	var cfg Config
	cfg.ApplyDefaults()
	cfg.MaxBatchSize = 3
	cfg.MaxBodySize = "1KB"
	catalog := chain.NewCatalog(chain.Builtins(chain.NewRegistry()), loader)
	return New(cfg, catalog, logger.Nop(), opts...)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func TestInvoke(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/shout/invoke", `{"input": {"text": "hi"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data InvokeResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "HI", data.Output)
	assert.NotEmpty(t, data.RunID)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestInvoke_KeepsParallelKeyOrder(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/stats/invoke", `{"input": "one two three"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data struct {
		Output json.RawMessage `json:"output"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, `{"words":3,"length":13}`, string(data.Output))
}

func TestInvoke_RunID(t *testing.T) {
	s := newTestServer(t)
	id := "0b8f4a52-9a3e-4c1d-8f53-8e9f3c2a1b7d"

	_, env := do(t, s, http.MethodPost, "/chains/upper/invoke", `{"input": "x", "run_id": "`+id+`"}`)
	var data InvokeResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, id, data.RunID)

	rr, env := do(t, s, http.MethodPost, "/chains/upper/invoke", `{"input": "x", "run_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestInvoke_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown chain", "/chains/missing/invoke", `{"input": 1}`, http.StatusNotFound, "NOT_FOUND"},
		{"malformed body", "/chains/upper/invoke", `{"input":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"body too large", "/chains/upper/invoke", `{"input": "` + strings.Repeat("x", 2048) + `"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"type mismatch", "/chains/upper/invoke", `{"input": 5}`, http.StatusUnprocessableEntity, "EXECUTION_FAILED"},
		{"missing record key", "/chains/shout/invoke", `{"input": {"other": 1}}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := do(t, s, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestInvoke_StepDetails(t *testing.T) {
	s := newTestServer(t)

	_, env := do(t, s, http.MethodPost, "/chains/shout/invoke", `{"input": {"text": 5}}`)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EXECUTION_FAILED", env.Error.Code)
	assert.Equal(t, float64(1), env.Error.Details["step_index"])
}

func TestBatch(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/upper/batch", `{"inputs": ["a", "b", "c"], "max_concurrency": 2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []any{"A", "B", "C"}, data.Outputs)
	assert.NotEmpty(t, data.RunID)
}

func TestBatch_FailFast(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/upper/batch", `{"inputs": ["a", 1, 2]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, float64(1), env.Error.Details["element_index"])
}

func TestBatch_ReturnErrors(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/upper/batch", `{"inputs": ["a", 1], "return_errors": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 2)
	assert.Equal(t, "A", data.Results[0].Output)
	assert.Nil(t, data.Results[0].Error)
	require.NotNil(t, data.Results[1].Error)
	assert.Equal(t, "EXECUTION_FAILED", string(data.Results[1].Error.Code))
}

func TestBatch_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing inputs", `{}`},
		{"too many inputs", `{"inputs": ["a", "b", "c", "d"]}`},
		{"negative concurrency", `{"inputs": ["a"], "max_concurrency": -1}`},
		{"malformed body", `{"inputs": ["a", {"x": }]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := do(t, s, http.MethodPost, "/chains/upper/batch", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, "INVALID_INPUT", env.Error.Code)
		})
	}
}

func TestBatch_Empty(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodPost, "/chains/upper/batch", `{"inputs": []}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Outputs)
}

func TestListChains(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summaries []chain.Summary
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 3)
	assert.Equal(t, "shout", summaries[0].Name)
	assert.Equal(t, "upper-case the text field", summaries[0].Description)
}

type downChecker struct{}

func (downChecker) CheckHealth(context.Context) observability.Health {
	return observability.Health{Name: "cache", Status: observability.HealthStatusDown}
}

func TestHealth(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		s := newTestServer(t, WithServiceName("runkit-test"))
		s.checkers = append(s.checkers, s.catalog)

		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		require.Equal(t, http.StatusOK, rr.Code)

		var sh observability.ServiceHealth
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sh))
		assert.Equal(t, "runkit-test", sh.Service)
		assert.Equal(t, observability.HealthStatusUp, sh.Status)
		require.Len(t, sh.Components, 1)
		assert.Equal(t, "chains", sh.Components[0].Name)
	})

	t.Run("down", func(t *testing.T) {
		s := newTestServer(t, WithHealthCheckers(downChecker{}))

		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestVersion(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"version"`)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm, err := observability.NewPromMetrics(reg)
	require.NoError(t, err)

	loader := chain.NewMapLoader()
	def, err := chain.Parse([]byte(upperDef))
	require.NoError(t, err)
	loader.Add(def)
	catalog := chain.NewCatalog(chain.Builtins(chain.NewRegistry()), loader,
		chain.WithMiddleware(runnable.WithMetrics[any, any](pm)))

	var cfg Config
	cfg.ApplyDefaults()
	s := New(cfg, catalog, logger.Nop(), WithMetricsHandler(pm.Handler()))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chains/upper/invoke", bytes.NewBufferString(`{"input": "a"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `runkit_invocations_total{runnable="upper",status="ok"} 1`)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)

	rr, env := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestStartStop(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 1
	s := New(cfg, chain.NewCatalog(chain.NewRegistry(), chain.NewMapLoader()), logger.Nop())

	require.NoError(t, s.Start(context.Background()))
	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStartStop_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 1
	cfg.TLS = security.ServerTLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}
	s := New(cfg, chain.NewCatalog(chain.NewRegistry(), chain.NewMapLoader()), logger.Nop())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig:   &tls.Config{RootCAs: certs.CertPool, MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: true,
	}}
	resp, err := client.Get("https://" + s.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, resp.ProtoMajor)
}

func TestStart_BadTLS(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Port = 0
	cfg.TLS = security.ServerTLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	s := New(cfg, chain.NewCatalog(chain.NewRegistry(), chain.NewMapLoader()), logger.Nop())

	assert.ErrorContains(t, s.Start(context.Background()), "server tls")
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, int64(10<<20), cfg.BodyLimit())

	cfg.MaxBodySize = "lots"
	assert.Error(t, cfg.Validate())

	cfg = Config{Port: 70000}
	assert.Error(t, cfg.Validate())

	cfg = Config{MaxBodySize: "1MB", TLS: security.ServerTLSConfig{KeyFile: "key.pem"}}
	assert.ErrorContains(t, cfg.Validate(), "server.tls")

	for in, want := range map[string]int64{"512": 512, "64kb": 64 << 10, "1GB": 1 << 30, "": 0} {
		got, err := parseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
