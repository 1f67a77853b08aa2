package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/kbukum/runkit/chain"
	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/server"
	"github.com/kbukum/runkit/version"
)

// errReported means the failure was already written to stdout as JSON.
var errReported = errors.New("failure reported")

// withApp loads the app for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, g *globalFlags, fn func(a *app) error) (err error) {
	a, err := loadApp(cmd.Context(), g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(cmd.Context())); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

// fail converts a run error into an AppError. In JSON mode the error
// envelope goes to stdout and the caller only sees errReported.
func fail(out *output, name string, err error) error {
	appErr := apperrors.FromExecution(name, err)
	if !out.jsonMode {
		return appErr
	}
	if perr := out.JSON(appErr.ToResponse()); perr != nil {
		return perr
	}
	return errReported
}

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				summaries, err := a.catalog.Summaries()
				if err != nil {
					return err
				}

				headers := []string{"NAME", "STEPS", "DESCRIPTION", "ERROR"}
				rows := make([][]string, len(summaries))
				for i, s := range summaries {
					rows[i] = []string{s.Name, strconv.Itoa(s.Steps), s.Description, s.Error}
				}
				return newOutput(cmd.OutOrStdout(), g.jsonOut).Print(headers, rows, summaries)
			})
		},
	}
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var input string
	var inputFile string
	var runID string

	cmd := &cobra.Command{
		Use:   "run CHAIN",
		Short: "Invoke a chain once and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			data, err := readInput(cmd.InOrStdin(), input, inputFile)
			if err != nil {
				return err
			}
			// Results have no tabular shape, so both modes print JSON.
			out := newOutput(cmd.OutOrStdout(), g.jsonOut)

			return withApp(cmd, g, func(a *app) error {
				in, err := chain.DecodeInput(data)
				if err != nil {
					return fail(out, name, err)
				}
				r, err := a.catalog.Get(name)
				if err != nil {
					return fail(out, name, err)
				}

				ctx, id := runContext(cmd.Context(), runID)
				result, err := r.Invoke(ctx, in)
				if err != nil {
					return fail(out, name, err)
				}
				if g.jsonOut {
					return out.JSON(server.InvokeResponse{Output: result, RunID: id})
				}
				return out.JSON(result)
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Chain input as JSON")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Read the JSON input from a file, or - for stdin")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id attached to logs (default: generated)")
	cmd.MarkFlagsMutuallyExclusive("input", "input-file")
	return cmd
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	var inputsFile string
	var concurrency int
	var returnErrors bool
	var runID string

	cmd := &cobra.Command{
		Use:   "batch CHAIN",
		Short: "Invoke a chain once per input and print the outputs in order",
		Long: "Inputs are read from a JSON array or from JSON Lines, one input per line.\n" +
			"The run fails on the first failed element unless --return-errors is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			data, err := readInput(cmd.InOrStdin(), "", inputsFile)
			if err != nil {
				return err
			}
			out := newOutput(cmd.OutOrStdout(), g.jsonOut)

			return withApp(cmd, g, func(a *app) error {
				inputs, err := decodeInputs(data)
				if err != nil {
					return fail(out, name, err)
				}
				r, err := a.catalog.Get(name)
				if err != nil {
					return fail(out, name, err)
				}

				n := concurrency
				if !cmd.Flags().Changed("concurrency") {
					n = a.cfg.Runtime.BatchConcurrency
				}
				ctx, id := runContext(cmd.Context(), runID)

				if returnErrors {
					results := runnable.BatchResults(ctx, r, inputs, runnable.WithMaxConcurrency(n))
					items := make([]server.BatchItem, len(results))
					for i, res := range results {
						if res.Err != nil {
							body := apperrors.FromExecution(name, res.Err).ToResponse().Error
							items[i].Error = &body
							continue
						}
						items[i].Output = res.Output
					}
					if g.jsonOut {
						return out.JSON(server.BatchResponse{Results: items, RunID: id})
					}
					return out.JSON(items)
				}

				outs, err := runnable.Batch(ctx, r, inputs, runnable.WithMaxConcurrency(n))
				if err != nil {
					return fail(out, name, err)
				}
				if g.jsonOut {
					return out.JSON(server.BatchResponse{Outputs: outs, RunID: id})
				}
				return out.JSON(outs)
			})
		},
	}

	cmd.Flags().StringVar(&inputsFile, "inputs", "-", "File holding the inputs, or - for stdin")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent elements (default: runtime.batch_concurrency)")
	cmd.Flags().BoolVar(&returnErrors, "return-errors", false, "Report failed elements in place instead of failing the batch")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id attached to logs (default: generated)")
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chain catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, g, func(a *app) error {
				cfg := a.cfg.Server
				if cmd.Flags().Changed("port") {
					cfg.Port = port
				}

				opts := []server.Option{
					server.WithServiceName(a.cfg.Base.Name),
					server.WithHealthCheckers(a.checkers...),
					server.WithBatchConcurrency(a.cfg.Runtime.BatchConcurrency),
				}
				if a.metrics != nil {
					opts = append(opts, server.WithMetricsHandler(a.metrics))
				}

				srv := server.New(cfg, a.catalog, a.log, opts...)
				if err := srv.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				return srv.Stop(context.WithoutCancel(ctx))
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: server.port)")
	return cmd
}

func newVersionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := newOutput(cmd.OutOrStdout(), g.jsonOut)
			if g.jsonOut {
				return out.JSON(info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}

// readInput returns inline, or the contents of path ("-" is stdin).
func readInput(stdin io.Reader, inline, path string) ([]byte, error) {
	switch path {
	case "":
		return []byte(inline), nil
	case "-":
		return io.ReadAll(stdin)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		return data, nil
	}
}

// decodeInputs accepts a JSON array or JSON Lines. A document that is one
// valid array is read as the array; anything else is split into lines, so
// JSON Lines whose records are arrays still work.
func decodeInputs(data []byte) ([]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return []any{}, nil
	}

	var raws []string
	if doc := gjson.Parse(trimmed); gjson.Valid(trimmed) && doc.IsArray() {
		doc.ForEach(func(_, v gjson.Result) bool {
			raws = append(raws, v.Raw)
			return true
		})
	} else {
		for line := range strings.Lines(trimmed) {
			if line = strings.TrimSpace(line); line != "" {
				raws = append(raws, line)
			}
		}
	}

	inputs := make([]any, len(raws))
	for i, raw := range raws {
		in, err := chain.DecodeInput([]byte(raw))
		if err != nil {
			return nil, &runnable.BatchElementError{Index: i, Err: err}
		}
		inputs[i] = in
	}
	return inputs, nil
}

func runContext(ctx context.Context, runID string) (context.Context, string) {
	if runID != "" {
		return logger.ContextWithRunID(ctx, runID), runID
	}
	return logger.EnsureRunID(ctx)
}
