package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/runkit/chain"
	"github.com/kbukum/runkit/config"
	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/version"
)

const shoutChain = `name: shout
description: Trims and upper-cases a string.
cache:
  ttl: 1m
steps:
  - unit: trim
  - unit: upper
`

const statsChain = `name: stats
steps:
  - parallel:
      - key: words
        sequence:
          - select: text
          - unit: word_count
      - key: length
        sequence:
          - select: text
          - unit: length
`

// workspace writes a config file, an env file and a chains directory and
// returns the global flags pointing at them.
func workspace(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	chains := filepath.Join(dir, "chains")
	require.NoError(t, os.MkdirAll(chains, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chains, "shout.yaml"), []byte(shoutChain), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(chains, "stats.yml"), []byte(statsChain), 0o644))

	cfg := `logging:
  level: error
  format: json
chains:
  dirs:
    - ` + chains + `
cache:
  enabled: true
  backend: memory
telemetry:
  prometheus: true
`
	cfgFile := filepath.Join(dir, "runkit.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o644))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RUNKIT_RUNTIME_BATCH_CONCURRENCY=2\n"), 0o644))

	return []string{"--config", cfgFile, "--env-file", envFile}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, "", append(flags, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "shout")
	assert.Contains(t, out, "Trims and upper-cases a string.")

	out, err = execute(t, "", append(flags, "--json", "list")...)
	require.NoError(t, err)
	var summaries []chain.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "shout", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].Steps)
	assert.Equal(t, "stats", summaries[1].Name)
}

func TestRun(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, "", append(flags, "run", "shout", "--input", `"  hello "`)...)
	require.NoError(t, err)
	assert.Equal(t, "\"HELLO\"\n", out)

	out, err = execute(t, "", append(flags, "run", "stats", "--input", `{"text":"one two three"}`)...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"words":3,"length":13}`, out)
}

func TestRun_Stdin(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, `"quiet"`, append(flags, "run", "shout", "--input-file", "-")...)
	require.NoError(t, err)
	assert.Equal(t, "\"QUIET\"\n", out)
}

func TestRun_JSONEnvelope(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, "", append(flags, "--json", "run", "shout", "--input", `"x"`, "--run-id", "run-1")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":"X","run_id":"run-1"}`, out)
}

func TestRun_Errors(t *testing.T) {
	flags := workspace(t)

	_, err := execute(t, "", append(flags, "run", "missing")...)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)

	_, err = execute(t, "", append(flags, "run", "shout", "--input", `{"a":`)...)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)

	out, err := execute(t, "", append(flags, "--json", "run", "shout", "--input", `42`)...)
	require.ErrorIs(t, err, errReported)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, apperrors.ErrCodeExecutionFailed, resp.Error.Code)
	assert.Equal(t, float64(0), resp.Error.Details["step_index"])
}

func TestRun_ExclusiveInputFlags(t *testing.T) {
	flags := workspace(t)

	_, err := execute(t, "", append(flags, "run", "shout", "--input", `"a"`, "--input-file", "x.json")...)
	require.Error(t, err)
}

func TestBatch(t *testing.T) {
	flags := workspace(t)

	inputs := filepath.Join(t.TempDir(), "inputs.json")
	require.NoError(t, os.WriteFile(inputs, []byte(`["a", " b ", "c"]`), 0o644))

	out, err := execute(t, "", append(flags, "batch", "shout", "--inputs", inputs)...)
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","C"]`, out)

	out, err = execute(t, "\"x\"\n\n\"y\"\n", append(flags, "batch", "shout", "--concurrency", "1")...)
	require.NoError(t, err)
	assert.JSONEq(t, `["X","Y"]`, out)
}

func TestBatch_FailFast(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, `["ok", 7, "fine"]`, append(flags, "--json", "batch", "shout")...)
	require.ErrorIs(t, err, errReported)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, float64(1), resp.Error.Details["element_index"])
}

func TestBatch_ReturnErrors(t *testing.T) {
	flags := workspace(t)

	out, err := execute(t, `["ok", 7]`, append(flags, "--json", "batch", "shout", "--return-errors", "--run-id", "b-1")...)
	require.NoError(t, err)

	var resp struct {
		Results []struct {
			Output any                  `json:"output"`
			Error  *apperrors.ErrorBody `json:"error"`
		} `json:"results"`
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "OK", resp.Results[0].Output)
	assert.Nil(t, resp.Results[0].Error)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, apperrors.ErrCodeExecutionFailed, resp.Results[1].Error.Code)
	assert.Equal(t, "b-1", resp.RunID)
}

func TestDecodeInputs(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []any
		wantErr bool
	}{
		{"empty", "  ", []any{}, false},
		{"array", `[1, "a", null]`, []any{int64(1), "a", nil}, false},
		{"lines", "\"a\"\n\n2\n", []any{"a", int64(2)}, false},
		{"lines of arrays", "[1,2]\n[3,4]\n", []any{[]any{int64(1), int64(2)}, []any{int64(3), int64(4)}}, false},
		{"array of arrays", `[[1], [2]]`, []any{[]any{int64(1)}, []any{int64(2)}}, false},
		{"malformed array", `[1,`, nil, true},
		{"malformed line", "1\n{", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeInputs([]byte(tc.data))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version.Get().String()+"\n", out)

	out, err = execute(t, "", "--json", "version")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chains.Dirs = []string{t.TempDir()}
	cfg.Logging.Level = "error"
	cfg.Telemetry.Prometheus = true
	cfg.Runtime.DefaultTimeout = time.Second
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.metrics)
	assert.Len(t, a.checkers, 1)

	names, err := a.catalog.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NoError(t, a.Close(context.Background()))
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chains.Dirs = []string{t.TempDir()}
	cfg.Logging.Level = "error"
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	cfg.Cache.Redis.DialTimeout = "100ms"
	cfg.ApplyDefaults()

	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
}

func TestServe(t *testing.T) {
	flags := workspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(flags, "serve", "--port", "0"))

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
