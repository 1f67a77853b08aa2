package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errUnclosed   = errors.New("unclosed '{'")
	errUnmatched  = errors.New("single '}' is not allowed")
	errPositional = errors.New("positional fields are not supported")
)

// parseVariables returns the distinct field names referenced by format.
// "{user.name}" and "{items[0]}" reference "user" and "items".
func parseVariables(format string) ([]string, error) {
	var (
		vars []string
		seen = map[string]bool{}
	)
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w at offset %d", errUnclosed, i)
			}
			field := format[i+1 : i+end]
			name := field
			if cut := strings.IndexAny(field, ".[!:"); cut >= 0 {
				name = field[:cut]
			}
			name = strings.TrimSpace(name)
			if name == "" || isDigits(name) {
				return nil, fmt.Errorf("%w: {%s}", errPositional, field)
			}
			if !seen[name] {
				seen[name] = true
				vars = append(vars, name)
			}
			i += end
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("%w at offset %d", errUnmatched, i)
		}
	}
	return vars, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
