package runnable

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignPickGet(t *testing.T) {
	words := Func("words", func(_ context.Context, v *Values) (int, error) {
		text, err := Lookup[string](v, "text")
		return len(strings.Fields(text)), err
	})
	shout := Func("shout", func(_ context.Context, v *Values) (string, error) {
		text, err := Lookup[string](v, "text")
		return strings.ToUpper(text), err
	})
	p := MustParallel("stats", Key("words", words), Key("shout", shout))

	pipeline := Then3(Wrap[string]("text"), Assign(p), Pick("shout", "words"))
	out, err := pipeline.Invoke(context.Background(), "hello big world")
	require.NoError(t, err)
	assert.Equal(t, []string{"shout", "words"}, out.Keys())
	assert.Equal(t, map[string]any{"shout": "HELLO BIG WORLD", "words": 3}, out.Map())

	count, err := Then(pipeline, Get[int]("words")).Invoke(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAssign_KeepsInputKeys(t *testing.T) {
	p := MustParallel("p", Key("x", Const[*Values, int]("x", 9)))
	out, err := Assign(p).Invoke(context.Background(), NewValues("a", 1, "x", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x"}, out.Keys())
	assert.Equal(t, map[string]any{"a": 1, "x": 9}, out.Map())
}

func TestPick_MissingKey(t *testing.T) {
	_, err := Pick("nope").Invoke(context.Background(), NewValues("a", 1))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
