package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kbukum/runkit/runnable"
)

// Builtins registers the standard text and JSON units.
func Builtins(reg *Registry) *Registry {
	reg.Register("identity", runnable.Passthrough[any]())
	Register(reg, runnable.Map("upper", strings.ToUpper))
	Register(reg, runnable.Map("lower", strings.ToLower))
	Register(reg, runnable.Map("trim", strings.TrimSpace))
	Register(reg, runnable.Map("word_count", func(s string) int { return len(strings.Fields(s)) }))
	Register(reg, runnable.Func("length", length))
	Register(reg, runnable.Func("to_json", toJSON))
	Register(reg, runnable.Func("from_json", fromJSON))
	return reg
}

func length(_ context.Context, v any) (int, error) {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t), nil
	case []any:
		return len(t), nil
	case map[string]any:
		return len(t), nil
	case *runnable.Values:
		return t.Len(), nil
	default:
		return 0, fmt.Errorf("length: unsupported input %T", v)
	}
}

func toJSON(_ context.Context, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("to_json: %w", err)
	}
	return string(raw), nil
}

// fromJSON decodes objects into *runnable.Values so key order survives.
func fromJSON(_ context.Context, s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("from_json: empty document")
	}
	v, err := DecodeInput([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("from_json: %w", err)
	}
	return v, nil
}
