package runnable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_Order(t *testing.T) {
	v := NewValues("b", 1, "a", 2, "b", 3)
	assert.Equal(t, []string{"b", "a"}, v.Keys())
	got, _ := v.Get("b")
	assert.Equal(t, 3, got)
	assert.Equal(t, "{b: 3, a: 2}", v.String())
}

func TestValues_ImmutableUpdates(t *testing.T) {
	v := NewValues("a", 1)
	w := v.With("b", 2)
	m := w.Merge(NewValues("a", 10, "c", 3))

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []string{"a", "b"}, w.Keys())
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assert.Equal(t, map[string]any{"a": 10, "b": 2, "c": 3}, m.Map())
}

func TestValues_JSON(t *testing.T) {
	v := NewValues("zeta", "z", "alpha", []int{1, 2})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":[1,2]}`, string(data))

	var back Values
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":1.5,"n":{"k":2}}`), &back))
	assert.Equal(t, []string{"z", "a", "n"}, back.Keys())
	assert.Equal(t, map[string]any{"z": int64(1), "a": 1.5, "n": map[string]any{"k": int64(2)}}, back.Map())

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &back))
}

func TestValuesOf_SortsKeys(t *testing.T) {
	v := ValuesOf(map[string]any{"c": 1, "a": 2, "b": 3})
	assert.Equal(t, []string{"a", "b", "c"}, v.Keys())
}

func TestLookup(t *testing.T) {
	v := NewValues("n", 5, "s", "x")

	n, err := Lookup[int](v, "n")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = Lookup[int](v, "s")
	var te *TypeError
	assert.ErrorAs(t, err, &te)

	_, err = Lookup[int](v, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestAsValues(t *testing.T) {
	v, ok := AsValues(map[string]any{"a": 1})
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v.Keys())

	_, ok = AsValues(42)
	assert.False(t, ok)

	var nilValues *Values
	_, ok = AsValues(nilValues)
	assert.False(t, ok)
}

func TestValues_NilSafe(t *testing.T) {
	var v *Values
	assert.Equal(t, 0, v.Len())
	assert.Nil(t, v.Keys())
	assert.False(t, v.Has("a"))
	assert.Equal(t, []string{"a"}, v.With("a", 1).Keys())
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, got any)
	}{
		{"empty", "  ", func(t *testing.T, got any) {
			if got != nil {
				t.Errorf("expected nil, got %v", got)
			}
		}},
		{"integer", "42", func(t *testing.T, got any) {
			if got != int64(42) {
				t.Errorf("expected int64 42, got %T %v", got, got)
			}
		}},
		{"object keeps order", `{"b":1,"a":{"y":2}}`, func(t *testing.T, got any) {
			v, ok := got.(*Values)
			if !ok {
				t.Fatalf("expected *Values, got %T", got)
			}
			if keys := v.Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
				t.Errorf("unexpected keys %v", keys)
			}
		}},
		{"array of objects", `[{"k":1},"s"]`, func(t *testing.T, got any) {
			items, ok := got.([]any)
			if !ok || len(items) != 2 {
				t.Fatalf("expected two items, got %v", got)
			}
			if _, ok := items[0].(*Values); !ok {
				t.Errorf("expected *Values element, got %T", items[0])
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, got)
		})
	}

	if _, err := DecodeJSON([]byte(`{"a":`)); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}
