// Package chain builds runnables from declarative YAML definitions.
//
// A definition names a chain and lists its steps. Each step is a node of
// exactly one kind:
//
//	unit         a runnable from the Registry
//	ref          another chain, loaded by name
//	sequence     nested steps run in order
//	parallel     keyed entries run concurrently into a record
//	branch       Lua conditions with a default
//	template     a prompt template
//	select       a gjson path into the input
//	passthrough  the input unchanged
//
// Any node may also set timeout and retry. Build turns a definition into a
// runnable.Runnable[any, any]; a Catalog loads definitions from disk and
// builds them on first use.
package chain
