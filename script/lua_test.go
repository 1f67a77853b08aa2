package script

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/runkit/runnable"
)

func TestPredicate_Eval(t *testing.T) {
	env := NewEnv()
	tests := []struct {
		name string
		expr string
		vars any
		want bool
	}{
		{"length of key", "#text < 10", runnable.NewValues("text", "hello"), true},
		{"length false", "#text < 3", runnable.NewValues("text", "hello"), false},
		{"explicit return", "return score >= 0.5", map[string]any{"score": 0.75}, true},
		{"statements", "if n > 2 then return true end return false", runnable.NewValues("n", 3), true},
		{"scalar input", "input == 'yes'", "yes", true},
		{"nested table", "user.age > 18 and user.name == 'ana'", map[string]any{"user": map[string]any{"age": 30, "name": "ana"}}, true},
		{"array", "#tags == 2 and tags[1] == 'a'", map[string]any{"tags": []any{"a", "b"}}, true},
		{"nil is false", "missing", runnable.NewValues(), false},
		{"zero is truthy", "0", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := env.Compile(tt.expr)
			require.NoError(t, err)
			got, err := p.Eval(tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate_Value(t *testing.T) {
	env := NewEnv()
	p, err := env.Compile("{count = #items, first = items[1]}")
	require.NoError(t, err)

	v, err := p.Value(map[string]any{"items": []any{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2, "first": "x"}, v)

	p, err = env.Compile("{1, 2, 3}")
	require.NoError(t, err)
	v, err = p.Value(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, v)
}

func TestCompile_Errors(t *testing.T) {
	env := NewEnv()
	_, err := env.Compile("")
	assert.ErrorIs(t, err, ErrLoad)

	_, err = env.Compile("this is not lua (")
	assert.ErrorIs(t, err, ErrLoad)
}

func TestEval_RuntimeError(t *testing.T) {
	p, err := NewEnv().Compile("text + 1")
	require.NoError(t, err)
	_, err = p.Eval(runnable.NewValues("text", "abc"))
	assert.ErrorIs(t, err, ErrExecution)
}

func TestSandbox(t *testing.T) {
	env := NewEnv()
	for _, expr := range []string{"os.exit(1)", "io.write('x')", "require('os')", "load('return 1')()"} {
		t.Run(expr, func(t *testing.T) {
			p, err := env.Compile(expr)
			require.NoError(t, err)
			_, err = p.Eval(nil)
			assert.ErrorIs(t, err, ErrExecution)
		})
	}
}

func TestEval_DoesNotLeakBindings(t *testing.T) {
	env := NewEnv()
	p, err := env.Compile("secret ~= nil")
	require.NoError(t, err)

	ok, err := p.Eval(runnable.NewValues("secret", 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Eval(runnable.NewValues())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompile_Caches(t *testing.T) {
	env := NewEnv()
	a, err := env.Compile("x > 1")
	require.NoError(t, err)
	b, err := env.Compile("  x > 1 ")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "x > 1", a.Source())
}

func TestEval_Concurrent(t *testing.T) {
	p, err := NewEnv().Compile("n % 2 == 0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 50)
	results := make([]bool, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Eval(runnable.NewValues("n", i))
		}()
	}
	wg.Wait()
	for i := range 50 {
		require.NoError(t, errs[i])
		assert.Equal(t, i%2 == 0, results[i])
	}
}

func TestCondition_InBranch(t *testing.T) {
	p, err := NewEnv().Compile("#input < 5")
	require.NoError(t, err)

	br := runnable.MustBranch("by_length", runnable.Const[any, any]("long", "long"),
		runnable.WhenE(p.Condition(), runnable.Const[any, any]("short", "short")),
	)
	out, err := br.Invoke(context.Background(), "hey")
	require.NoError(t, err)
	assert.Equal(t, "short", out)

	out, err = br.Invoke(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "long", out)
}
