package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/runkit/chain"
	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/validation"
	"github.com/kbukum/runkit/version"
)

// InvokeRequest is the body of POST /chains/:name/invoke.
type InvokeRequest struct {
	Input json.RawMessage `json:"input"`
	RunID string          `json:"run_id"`
}

// InvokeResponse is the data of a successful invoke.
type InvokeResponse struct {
	Output any    `json:"output"`
	RunID  string `json:"run_id"`
}

// BatchRequest is the body of POST /chains/:name/batch.
type BatchRequest struct {
	Inputs         []json.RawMessage `json:"inputs" validate:"required"`
	MaxConcurrency int               `json:"max_concurrency" validate:"gte=0"`
	ReturnErrors   bool              `json:"return_errors"`
	RunID          string            `json:"run_id"`
}

// BatchItem is one element of a return_errors batch.
type BatchItem struct {
	Output any                  `json:"output,omitempty"`
	Error  *apperrors.ErrorBody `json:"error,omitempty"`
}

// BatchResponse is the data of a successful batch. Exactly one of Outputs
// and Results is set, depending on return_errors.
type BatchResponse struct {
	Outputs []any       `json:"outputs,omitempty"`
	Results []BatchItem `json:"results,omitempty"`
	RunID   string      `json:"run_id"`
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/version", s.version)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}

	chains := s.engine.Group("/chains")
	chains.GET("", s.listChains)
	chains.POST("/:name/invoke", s.invoke)
	chains.POST("/:name/batch", s.batch)

	s.engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, "route", apperrors.NotFound("route", c.Request.URL.Path))
	})
}

func (s *Server) health(c *gin.Context) {
	sh := observability.Check(c.Request.Context(), s.service, version.Get().Short(), s.checkers...)
	status := http.StatusOK
	if sh.Status == observability.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, sh)
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

func (s *Server) listChains(c *gin.Context) {
	summaries, err := s.catalog.Summaries()
	if err != nil {
		RespondWithError(c, "chains", apperrors.Internal(err))
		return
	}
	RespondOK(c, summaries)
}

func (s *Server) invoke(c *gin.Context) {
	name := c.Param("name")
	observability.SetSpanAttribute(c.Request.Context(), observability.AttrChain, name)

	var req InvokeRequest
	if err := bindJSON(c, &req); err != nil {
		RespondWithError(c, name, err)
		return
	}
	if err := validation.New().OptionalUUID("run_id", req.RunID).Validate(); err != nil {
		RespondWithError(c, name, err)
		return
	}
	input, err := chain.DecodeInput(req.Input)
	if err != nil {
		RespondWithError(c, name, err)
		return
	}

	r, err := s.catalog.Get(name)
	if err != nil {
		RespondWithError(c, name, err)
		return
	}

	ctx, runID := runContext(c, req.RunID)
	out, err := r.Invoke(ctx, input)
	if err != nil {
		RespondWithError(c, name, err)
		return
	}
	RespondOK(c, InvokeResponse{Output: out, RunID: runID})
}

func (s *Server) batch(c *gin.Context) {
	name := c.Param("name")
	observability.SetSpanAttribute(c.Request.Context(), observability.AttrChain, name)

	var req BatchRequest
	if err := bindJSON(c, &req); err != nil {
		RespondWithError(c, name, err)
		return
	}
	v := validation.New().
		OptionalUUID("run_id", req.RunID).
		Custom(s.config.MaxBatchSize <= 0 || len(req.Inputs) <= s.config.MaxBatchSize,
			"inputs", fmt.Sprintf("must have at most %d entries", s.config.MaxBatchSize))
	if err := validation.Validate(&req); err != nil {
		RespondWithError(c, name, err)
		return
	}
	if err := v.Validate(); err != nil {
		RespondWithError(c, name, err)
		return
	}

	inputs := make([]any, len(req.Inputs))
	for i, raw := range req.Inputs {
		in, err := chain.DecodeInput(raw)
		if err != nil {
			RespondWithError(c, name, &runnable.BatchElementError{Index: i, Err: err})
			return
		}
		inputs[i] = in
	}

	r, err := s.catalog.Get(name)
	if err != nil {
		RespondWithError(c, name, err)
		return
	}

	concurrency := req.MaxConcurrency
	if concurrency == 0 {
		concurrency = s.batchConcurrency
	}
	ctx, runID := runContext(c, req.RunID)

	if req.ReturnErrors {
		results := runnable.BatchResults(ctx, r, inputs, runnable.WithMaxConcurrency(concurrency))
		items := make([]BatchItem, len(results))
		for i, res := range results {
			if res.Err != nil {
				body := apperrors.FromExecution(name, res.Err).ToResponse().Error
				items[i].Error = &body
				continue
			}
			items[i].Output = res.Output
		}
		RespondOK(c, BatchResponse{Results: items, RunID: runID})
		return
	}

	outs, err := runnable.Batch(ctx, r, inputs, runnable.WithMaxConcurrency(concurrency))
	if err != nil {
		RespondWithError(c, name, err)
		return
	}
	RespondOK(c, BatchResponse{Outputs: outs, RunID: runID})
}

// bindJSON decodes the request body, reporting oversized and malformed
// bodies as invalid input.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.InvalidInput("body", fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)).WithCause(err)
	}
	return apperrors.InvalidInput("body", "malformed JSON").WithCause(err)
}

func runContext(c *gin.Context, runID string) (ctx context.Context, id string) {
	ctx = c.Request.Context()
	if runID != "" {
		return logger.ContextWithRunID(ctx, runID), runID
	}
	return logger.EnsureRunID(ctx)
}
