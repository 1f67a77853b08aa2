package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/prompt"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/script"
)

// Build validates def and turns it into a runnable. Units are looked up in
// registry; refs are resolved through loader, which may be nil when def has
// none. The result is named after the definition.
func Build(def *Definition, registry *Registry, loader Loader) (runnable.Runnable[any, any], error) {
	b := &builder{
		registry: registry,
		loader:   loader,
		scripts:  script.NewEnv(),
		stack:    make(map[string]bool),
	}
	return b.build(def)
}

type builder struct {
	registry *Registry
	loader   Loader
	scripts  *script.Env
	// stack holds the chains being built, for cycle detection.
	stack map[string]bool
}

func (b *builder) build(def *Definition) (runnable.Runnable[any, any], error) {
	if err := Validate(def); err != nil {
		return nil, err
	}
	if b.stack[def.Name] {
		return nil, apperrors.InvalidDefinition(def.Name, "circular ref")
	}
	b.stack[def.Name] = true
	defer delete(b.stack, def.Name)

	steps := make([]runnable.Runnable[any, any], len(def.Steps))
	for i := range def.Steps {
		r, err := b.node(def.Name, fmt.Sprintf("steps[%d]", i), &def.Steps[i])
		if err != nil {
			return nil, err
		}
		steps[i] = r
	}
	if len(steps) == 1 {
		return runnable.Named(def.Name, steps[0]), nil
	}
	seq, err := runnable.NewSequence(def.Name, steps...)
	if err != nil {
		return nil, apperrors.InvalidDefinition(def.Name, err.Error()).WithCause(err)
	}
	return seq, nil
}

// node builds n and applies its retry and timeout. Each attempt gets its own
// timeout.
func (b *builder) node(chain, path string, n *Node) (runnable.Runnable[any, any], error) {
	r, err := b.kind(chain, path, n)
	if err != nil {
		return nil, err
	}
	var mws []runnable.Middleware[any, any]
	if n.Retry != nil {
		mws = append(mws, runnable.WithRetry[any, any](*n.Retry))
	}
	if n.Timeout > 0 {
		mws = append(mws, runnable.WithTimeout[any, any](n.Timeout))
	}
	return runnable.Apply(r, mws...), nil
}

func (b *builder) kind(chain, path string, n *Node) (runnable.Runnable[any, any], error) {
	fail := func(format string, args ...any) error {
		return apperrors.InvalidDefinition(chain, fmt.Sprintf(format, args...)).WithDetail("path", path)
	}

	switch {
	case n.Unit != "":
		unit, ok := b.registry.Get(n.Unit)
		if !ok {
			return nil, fail("unknown unit %q", n.Unit)
		}
		return b.named(n, unit), nil

	case n.Ref != "":
		if b.loader == nil {
			return nil, fail("ref %q needs a loader", n.Ref)
		}
		def, err := b.loader.Load(n.Ref)
		if err != nil {
			return nil, apperrors.InvalidDefinition(chain, err.Error()).WithDetail("path", path).WithCause(err)
		}
		r, err := b.build(def)
		if err != nil {
			return nil, err
		}
		return b.named(n, r), nil

	case len(n.Sequence) > 0:
		steps := make([]runnable.Runnable[any, any], len(n.Sequence))
		for i := range n.Sequence {
			r, err := b.node(chain, fmt.Sprintf("%s.sequence[%d]", path, i), &n.Sequence[i])
			if err != nil {
				return nil, err
			}
			steps[i] = r
		}
		if len(steps) == 1 {
			return b.named(n, steps[0]), nil
		}
		seq, err := runnable.NewSequence(nameOr(n, "sequence"), steps...)
		if err != nil {
			return nil, fail("%v", err)
		}
		return seq, nil

	case len(n.Parallel) > 0:
		entries := make([]runnable.Entry[any], len(n.Parallel))
		for i := range n.Parallel {
			entry := &n.Parallel[i]
			r, err := b.node(chain, fmt.Sprintf("%s.parallel[%d]", path, i), entry)
			if err != nil {
				return nil, err
			}
			entries[i] = runnable.Key(entry.Key, r)
		}
		p, err := runnable.NewParallel(nameOr(n, "parallel"), entries...)
		if err != nil {
			return nil, fail("%v", err)
		}
		return runnable.Any[any, *runnable.Values](p.WithMaxConcurrency(n.MaxConcurrency)), nil

	case n.Branch != nil:
		cases := make([]runnable.Case[any, any], len(n.Branch.Cases))
		for i := range n.Branch.Cases {
			c := &n.Branch.Cases[i]
			casePath := fmt.Sprintf("%s.branch.cases[%d]", path, i)
			pred, err := b.scripts.Compile(c.When)
			if err != nil {
				return nil, apperrors.InvalidDefinition(chain, err.Error()).WithDetail("path", casePath+".when").WithCause(err)
			}
			r, err := b.node(chain, casePath, &c.Node)
			if err != nil {
				return nil, err
			}
			cases[i] = runnable.WhenE(pred.Condition(), r)
		}
		def, err := b.node(chain, path+".branch.default", n.Branch.Default)
		if err != nil {
			return nil, err
		}
		br, err := runnable.NewBranch(nameOr(n, "branch"), def, cases...)
		if err != nil {
			return nil, fail("%v", err)
		}
		return br, nil

	case n.Template != "":
		t, err := prompt.New(nameOr(n, "template"), n.Template)
		if err != nil {
			return nil, apperrors.InvalidDefinition(chain, err.Error()).WithDetail("path", path).WithCause(err)
		}
		return runnable.Any[any, string](t), nil

	case n.Select != "":
		return selectPath(nameOr(n, "select:"+n.Select), n.Select), nil

	case n.Passthrough:
		return b.named(n, runnable.Passthrough[any]()), nil
	}
	return nil, fail("node sets no kind")
}

func (b *builder) named(n *Node, r runnable.Runnable[any, any]) runnable.Runnable[any, any] {
	if n.Name == "" {
		return r
	}
	return runnable.Named(n.Name, r)
}

func nameOr(n *Node, fallback string) string {
	if n.Name != "" {
		return n.Name
	}
	return fallback
}

// selectPath extracts a gjson path from the JSON encoding of the input.
// Objects come back as *runnable.Values in document order.
func selectPath(name, path string) runnable.Runnable[any, any] {
	return runnable.Func(name, func(_ context.Context, input any) (any, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, apperrors.InvalidInput(path, "input is not JSON encodable").WithCause(err)
		}
		res := gjson.GetBytes(raw, path)
		if !res.Exists() {
			return nil, apperrors.InvalidInput(path, "path not found in input")
		}
		return resultValue(res)
	})
}

func resultValue(res gjson.Result) (any, error) {
	switch {
	case res.IsObject():
		var v runnable.Values
		if err := json.Unmarshal([]byte(res.Raw), &v); err != nil {
			return nil, err
		}
		return &v, nil
	case res.IsArray():
		items := res.Array()
		out := make([]any, len(items))
		for i, item := range items {
			v, err := resultValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	switch res.Type {
	case gjson.Number:
		if !strings.ContainsAny(res.Raw, ".eE") {
			return res.Int(), nil
		}
		return res.Float(), nil
	case gjson.String:
		return res.String(), nil
	case gjson.True, gjson.False:
		return res.Bool(), nil
	default:
		return nil, nil
	}
}
