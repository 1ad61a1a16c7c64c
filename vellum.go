// Package vellum is the embedding surface for the sandboxed scripting
// engine: a VM type wrapping the parser, compiler, and bytecode
// interpreter under internal/. This is the public API spec.md §6.2
// describes — the teacher shipped only a CLI consumer of its equivalent
// pieces (cmd/avenir/main.go's compileSourceFile/cmdRun), but an embedding
// host needs an importable type instead of a main function.
package vellum

import (
	"io"

	"vellum/internal/bytecode"
	"vellum/internal/value"
	"vellum/internal/vm"
)

// DebugLevel selects how much detail EnableDebug's trace writer emits.
type DebugLevel = vm.DebugLevel

const (
	DebugOff     = vm.DebugOff
	DebugBasic   = vm.DebugBasic
	DebugDetail  = vm.DebugDetail
	DebugVerbose = vm.DebugVerbose
)

// Program is a compiled, not-yet-executed unit produced by Compile.
type Program = bytecode.Program

// Value is the runtime value type every script expression and host binding
// exchanges with the engine.
type Value = value.Value

// State reports vm.state()'s introspection fields (spec §6.2).
type State = vm.State

// VM is one sandboxed execution instance: an operand stack, a call-frame
// stack, and a persistent set of globals seeded with the default built-ins
// (spec §6.3). Safe to reuse across many Run/Execute calls; not safe for
// concurrent use by multiple goroutines, matching the teacher's own VM.
type VM struct {
	inner *vm.VM
}

// New returns a VM with default built-ins already populated.
func New() *VM {
	return &VM{inner: vm.New()}
}

// Run parses, compiles, and executes source in one step (spec §6.2 vm.run).
// context entries are merged into globals before execution.
func (v *VM) Run(source string, context map[string]Value) (Value, error) {
	return v.inner.Run(source, context)
}

// Compile parses and lowers source without executing it (spec §6.2
// vm.compile). Whether the resulting Program's debug map carries source
// positions follows whatever SetDebugSymbols last set on this instance.
func (v *VM) Compile(source string) (*Program, error) {
	return vm.Compile(source, v.inner.DebugSymbols())
}

// Execute runs a previously compiled Program against this VM's persistent
// globals, merging context in first (spec §6.2 vm.execute).
func (v *VM) Execute(prog *Program, context map[string]Value) (Value, error) {
	return v.inner.Execute(prog, context)
}

// Reset clears all globals and reinitializes the default built-ins (spec
// §6.2 vm.reset).
func (v *VM) Reset() { v.inner.Reset() }

// SetMaxInstructions overrides the watchdog's instruction budget (spec §6.2
// vm.set_max_instructions).
func (v *VM) SetMaxInstructions(n int) { v.inner.SetMaxInstructions(n) }

// EnableDebug turns on dispatch-loop tracing at the given level (spec §6.2
// vm.enable_debug).
func (v *VM) EnableDebug(level DebugLevel) { v.inner.EnableDebug(level) }

// DisableDebug turns off dispatch-loop tracing (spec §6.2 vm.disable_debug).
func (v *VM) DisableDebug() { v.inner.DisableDebug() }

// SetDebugSymbols controls whether raised errors carry source positions
// (spec §6.2 vm.set_debug_symbols); Compile must be called again afterward
// for the change to affect a Program's debug map.
func (v *VM) SetDebugSymbols(enabled bool) { v.inner.SetDebugSymbols(enabled) }

// SetTraceWriter redirects debug trace output; nil restores os.Stderr.
func (v *VM) SetTraceWriter(w io.Writer) { v.inner.SetTraceWriter(w) }

// State returns a snapshot of the VM's current globals and call depth (spec
// §6.2 vm.state).
func (v *VM) State() State { return v.inner.State() }
