package runnable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Values is an immutable record of named values that remembers insertion
// order. Parallel returns one; Assign, Pick and prompt templates consume one.
type Values struct {
	keys []string
	vals map[string]any
}

// NewValues builds a record from alternating key/value pairs. Pairs whose
// key is not a string are skipped. A repeated key keeps its first position
// and its last value.
func NewValues(kvs ...any) *Values {
	v := &Values{vals: make(map[string]any, len(kvs)/2)}
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			v.set(key, kvs[i+1])
		}
	}
	return v
}

// ValuesOf builds a record from a map, ordering keys lexically.
func ValuesOf(m map[string]any) *Values {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := &Values{keys: keys, vals: make(map[string]any, len(m))}
	for k, val := range m {
		v.vals[k] = val
	}
	return v
}

func (v *Values) set(key string, val any) {
	if _, exists := v.vals[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.vals[key] = val
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.vals[key]
	return val, ok
}

// Has reports whether key is present.
func (v *Values) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Len returns the number of entries.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Map returns a copy of the entries as a plain map.
func (v *Values) Map() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(v.vals))
	for k, val := range v.vals {
		out[k] = val
	}
	return out
}

// Each calls fn for every entry in order until fn returns false.
func (v *Values) Each(fn func(key string, val any) bool) {
	if v == nil {
		return
	}
	for _, k := range v.keys {
		if !fn(k, v.vals[k]) {
			return
		}
	}
}

// With returns a copy of v with key set to val.
func (v *Values) With(key string, val any) *Values {
	out := v.clone()
	out.set(key, val)
	return out
}

// Merge returns a copy of v with every entry of other applied on top, in
// other's order.
func (v *Values) Merge(other *Values) *Values {
	out := v.clone()
	other.Each(func(k string, val any) bool {
		out.set(k, val)
		return true
	})
	return out
}

// Clone implements Cloner. Values is immutable, so the copy is shallow.
func (v *Values) Clone() *Values {
	return v.clone()
}

func (v *Values) clone() *Values {
	out := &Values{vals: make(map[string]any, v.Len())}
	if v == nil {
		return out
	}
	out.keys = append(out.keys, v.keys...)
	for k, val := range v.vals {
		out.vals[k] = val
	}
	return out
}

// String renders the record in insertion order.
func (v *Values) String() string {
	var b bytes.Buffer
	b.WriteByte('{')
	v.Each(func(k string, val any) bool {
		if b.Len() > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, val)
		return true
	})
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the record as an object in insertion order.
func (v *Values) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	var err error
	v.Each(func(k string, val any) bool {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(val); err != nil {
			err = fmt.Errorf("encoding %q: %w", k, err)
			return false
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping the document's key order.
// Nested objects decode as map[string]any.
func (v *Values) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("runnable: values must be a JSON object")
	}

	out := Values{vals: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		out.set(key, normalizeNumber(val))
	}
	*v = out
	return nil
}

// DecodeJSON decodes a JSON document into the shapes runnables exchange:
// objects become *Values in document order, including objects held directly
// in arrays. Members of an object decode as Values members do. Integral
// numbers become int64. An empty document decodes to nil.
func DecodeJSON(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case '{':
		v := new(Values)
		if err := v.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return v, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := DecodeJSON(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumber(v), nil
}

// normalizeNumber turns json.Number into int64 when integral, float64 otherwise.
func normalizeNumber(val any) any {
	switch n := val.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	case []any:
		for i := range n {
			n[i] = normalizeNumber(n[i])
		}
		return n
	case map[string]any:
		for k := range n {
			n[k] = normalizeNumber(n[k])
		}
		return n
	}
	return val
}

// Lookup returns the value under key as a T.
func Lookup[T any](v *Values, key string) (T, error) {
	var zero T
	raw, ok := v.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	out, ok := cast[T](raw)
	if !ok {
		return zero, newTypeError(key, "value", raw, reflect.TypeFor[T]())
	}
	return out, nil
}

// AsValues converts a record-shaped value (a *Values or a map[string]any)
// into *Values.
func AsValues(v any) (*Values, bool) {
	switch t := v.(type) {
	case *Values:
		return t, t != nil
	case Values:
		return &t, true
	case map[string]any:
		return ValuesOf(t), true
	}
	return nil, false
}
