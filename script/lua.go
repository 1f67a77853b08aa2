package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/kbukum/runkit/runnable"
)

const (
	statePoolSize    = 10
	globalTableIndex = -2
	tableTableIndex  = -3
	globalTableName  = "_G"
	inputGlobal      = "input"
)

var (
	// ErrLoad is returned when an expression does not compile or its
	// bytecode cannot be loaded.
	ErrLoad = errors.New("lua load error")
	// ErrExecution is returned when an expression fails at run time.
	ErrExecution = errors.New("lua execution error")
)

var exclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// Env is a sandboxed Lua environment with a pool of reusable states.
// It is safe for concurrent use.
type Env struct {
	statePool chan *lua.State
	compiled  sync.Map
}

// NewEnv creates an environment.
func NewEnv() *Env {
	return &Env{statePool: make(chan *lua.State, statePoolSize)}
}

// Predicate is a compiled expression.
type Predicate struct {
	env      *Env
	source   string
	bytecode []byte
}

// Compile compiles expr. Compiled predicates are cached by source.
func (e *Env) Compile(expr string) (*Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrLoad)
	}
	if p, ok := e.compiled.Load(expr); ok {
		return p.(*Predicate), nil
	}

	bytecode, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	p := &Predicate{env: e, source: expr, bytecode: bytecode}
	actual, _ := e.compiled.LoadOrStore(expr, p)
	return actual.(*Predicate), nil
}

// compile tries expr as an expression first, then as a chunk of statements.
func (e *Env) compile(expr string) ([]byte, error) {
	L := lua.NewState()
	setupSandbox(L)

	src := expr
	if !startsWithReturn(expr) {
		src = "return " + expr
	}
	if err := lua.LoadString(L, src); err != nil {
		if src == expr {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		L.SetTop(0)
		if err := lua.LoadString(L, expr); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return buf.Bytes(), nil
}

// Source returns the expression as written.
func (p *Predicate) Source() string { return p.source }

// Eval runs the expression against vars and reports whether the result is
// truthy in Lua terms: anything but nil and false.
func (p *Predicate) Eval(vars any) (bool, error) {
	var result bool
	err := p.env.run(p, vars, func(L *lua.State) {
		result = L.ToBoolean(-1)
	})
	return result, err
}

// Value runs the expression against vars and returns its result converted
// to Go values.
func (p *Predicate) Value(vars any) (any, error) {
	var result any
	err := p.env.run(p, vars, func(L *lua.State) {
		result = luaToGo(L, -1)
	})
	return result, err
}

// Condition adapts the predicate for use with runnable.WhenE.
func (p *Predicate) Condition() func(context.Context, any) (bool, error) {
	return func(_ context.Context, input any) (bool, error) {
		return p.Eval(input)
	}
}

func (e *Env) run(p *Predicate, vars any, onResult func(*lua.State)) error {
	L := e.getState()
	setupSandbox(L)
	bound := bindGlobals(L, vars)
	defer e.returnState(L, bound)

	if err := L.Load(bytes.NewReader(p.bytecode), "predicate", "b"); err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := L.ProtectedCall(0, 1, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}
	onResult(L)
	L.Pop(1)
	return nil
}

// bindGlobals sets input and, for record inputs, one global per key. It
// returns the names it set.
func bindGlobals(L *lua.State, vars any) []string {
	names := []string{inputGlobal}
	goToLua(L, vars)
	L.SetGlobal(inputGlobal)

	bind := func(key string, val any) bool {
		if key == inputGlobal || !isIdentifier(key) {
			return true
		}
		goToLua(L, val)
		L.SetGlobal(key)
		names = append(names, key)
		return true
	}
	if rec, ok := runnable.AsValues(vars); ok {
		rec.Each(bind)
	}
	return names
}

func setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(globalTableName)
	for _, name := range exclude {
		L.PushNil()
		L.SetField(globalTableIndex, name)
	}
	L.Pop(1)
}

func (e *Env) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

// returnState clears the globals a run bound before pooling the state.
func (e *Env) returnState(L *lua.State, bound []string) {
	L.SetTop(0)
	for _, name := range bound {
		L.PushNil()
		L.SetGlobal(name)
	}

	select {
	case e.statePool <- L:
	default:
	}
}

func startsWithReturn(expr string) bool {
	rest, ok := strings.CutPrefix(expr, "return")
	if !ok {
		return false
	}
	return rest == "" || !isIdentifier(rest[:1]) && (rest[0] < '0' || rest[0] > '9')
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return !reserved[s]
}

var reserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}
