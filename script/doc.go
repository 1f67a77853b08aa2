// Package script evaluates sandboxed Lua expressions as branch conditions.
//
// An Env compiles expressions once to bytecode and runs them on pooled Lua
// states. The io, os, debug and package libraries are removed along with
// require, dofile, loadfile and load, so scripts can only compute over the
// values they are given.
//
//	env := script.NewEnv()
//	pred, err := env.Compile(`#text < 10`)
//	ok, err := pred.Eval(runnable.NewValues("text", "hello"))
//
// Record keys are bound as globals and the whole input is always bound as
// `input`. Expressions without a leading `return` are accepted.
package script
