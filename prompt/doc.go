// Package prompt provides string templates that are also runnables.
//
// Templates use Python format-string syntax, rendered by pyfmt:
//
//	t, _ := prompt.New("joke", "Tell me a {adjective} joke about {topic}.")
//	s, _ := t.Invoke(ctx, map[string]any{"adjective": "funny", "topic": "go"})
//
// A template with a single unbound variable accepts a bare value as input.
// Variables can be pre-bound with WithPartialValue, or computed on every
// call with WithPartial.
package prompt
