package prompt

import (
	"context"
	"fmt"

	"github.com/slongfield/pyfmt"

	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/runnable"
)

// Template renders a format string from a record of variables.
// It implements runnable.Runnable[any, string].
type Template struct {
	name      string
	format    string
	variables []string
	partials  []partial
}

type partial struct {
	key   string
	value any
	r     runnable.Runnable[struct{}, any]
}

// Option configures a Template.
type Option func(*Template)

// WithPartialValue binds key to a fixed value.
func WithPartialValue(key string, v any) Option {
	return func(t *Template) {
		t.setPartial(partial{key: key, value: v})
	}
}

// WithPartial binds key to the output of r. r runs on every invocation
// that does not supply key itself.
func WithPartial(key string, r runnable.Runnable[struct{}, any]) Option {
	return func(t *Template) {
		t.setPartial(partial{key: key, r: r})
	}
}

// New parses format and returns a template named name.
func New(name, format string, opts ...Option) (*Template, error) {
	vars, err := parseVariables(format)
	if err != nil {
		return nil, apperrors.InvalidDefinition(name, err.Error()).WithCause(err)
	}
	if name == "" {
		name = "prompt"
	}
	t := &Template{name: name, format: format, variables: vars}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustNew is like New but panics on a malformed format.
func MustNew(name, format string, opts ...Option) *Template {
	t, err := New(name, format, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Partial returns a copy of t with additional bindings.
func (t *Template) Partial(opts ...Option) *Template {
	out := &Template{
		name:      t.name,
		format:    t.format,
		variables: t.variables,
		partials:  append([]partial(nil), t.partials...),
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

func (t *Template) setPartial(p partial) {
	for i := range t.partials {
		if t.partials[i].key == p.key {
			t.partials[i] = p
			return
		}
	}
	t.partials = append(t.partials, p)
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Format returns the raw format string.
func (t *Template) Format() string { return t.format }

// Variables lists every variable in the format, in first-seen order.
func (t *Template) Variables() []string {
	return append([]string(nil), t.variables...)
}

// InputVariables lists the variables not bound by a partial.
func (t *Template) InputVariables() []string {
	var out []string
	for _, v := range t.variables {
		if !t.hasPartial(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *Template) hasPartial(key string) bool {
	for _, p := range t.partials {
		if p.key == key {
			return true
		}
	}
	return false
}

// Invoke renders the template. input may be a *runnable.Values, a
// map[string]any or, when exactly one input variable is unbound, a bare
// value for that variable.
func (t *Template) Invoke(ctx context.Context, input any) (string, error) {
	vars, err := t.inputRecord(input)
	if err != nil {
		return "", err
	}
	return t.Render(ctx, vars)
}

// Render fills the template from vars and the partial bindings. Values in
// vars take precedence over partials.
func (t *Template) Render(ctx context.Context, vars map[string]any) (string, error) {
	merged := make(map[string]any, len(vars)+len(t.partials))
	for _, p := range t.partials {
		if _, supplied := vars[p.key]; supplied {
			continue
		}
		if p.r == nil {
			merged[p.key] = p.value
			continue
		}
		v, err := p.r.Invoke(ctx, struct{}{})
		if err != nil {
			return "", fmt.Errorf("prompt %s: partial %q: %w", t.name, p.key, err)
		}
		merged[p.key] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	for _, name := range t.variables {
		if _, ok := merged[name]; !ok {
			return "", apperrors.InvalidInput(name, "missing template variable").
				WithDetail("template", t.name)
		}
	}

	out, err := pyfmt.Fmt(t.format, merged)
	if err != nil {
		return "", apperrors.InvalidInput(t.name, err.Error()).WithCause(err)
	}
	return out, nil
}

func (t *Template) inputRecord(input any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}
	if rec, ok := runnable.AsValues(input); ok {
		return rec.Map(), nil
	}
	inputs := t.InputVariables()
	if len(inputs) != 1 {
		return nil, apperrors.InvalidInput(t.name,
			fmt.Sprintf("expected a record with %v, got %T", inputs, input))
	}
	return map[string]any{inputs[0]: input}, nil
}
