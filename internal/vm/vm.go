// Package vm implements the stack machine that executes a compiled
// bytecode.Program: an operand stack, a call-frame stack, name-based
// variable resolution against locals/closures/globals, and the closure
// capture rules that give returned functions isolated state. The dispatch
// discipline — an explicit frame stack driven by an iterative loop rather
// than recursive Go calls, with every fallible step returning an error the
// caller inspects instead of panicking — follows the teacher's own
// internal/vm/vm.go, adapted from its per-function Chunk/IP addressing to
// this language's single flat, name-resolved instruction stream.
package vm

import (
	"fmt"
	"io"
	"os"

	"vellum/internal/builtins"
	"vellum/internal/bytecode"
	"vellum/internal/parser"
	"vellum/internal/value"
	"vellum/internal/vmerr"
)

// DebugLevel controls how much the dispatch loop writes to its trace
// writer via enable_debug/disable_debug (spec §6.2, §4.5).
type DebugLevel int

const (
	DebugOff DebugLevel = iota
	DebugBasic
	DebugDetail
	DebugVerbose
)

// DefaultMaxInstructions is the watchdog's default instruction budget.
const DefaultMaxInstructions = 200000

// Frame is a call's activation record (spec §3.4). Locals is name-keyed,
// not slot-indexed, matching the compiler's decision to never assign a
// variable a fixed stack position.
type Frame struct {
	ReturnPC        int
	Locals          map[string]value.Value
	IsConstructor   bool
	NewInstance     value.Value
	CurrentFunction *value.UserFunction
}

// VM holds the operand stack, call-frame stack, and globals of one
// execution instance. State persists across Run/Execute calls until Reset.
type VM struct {
	globals map[string]value.Value
	stack   []value.Value
	frames  []*Frame

	prog       *bytecode.Program
	pc         int
	instrCount int

	maxInstructions int
	debugLevel      DebugLevel
	debugSymbols    bool
	trace           io.Writer

	initialized bool
	closureSeq  int64
}

// New returns a VM with default built-ins already seeded, matching the
// "on the first call, globals are populated with built-ins" contract of
// vm.run so a fresh instance is immediately usable.
func New() *VM {
	m := &VM{
		maxInstructions: DefaultMaxInstructions,
		trace:           os.Stderr,
	}
	m.Reset()
	return m
}

// Reset clears all globals and reinitializes the default built-ins (spec
// §6.2 vm.reset). The operand stack and call-frame stack are also cleared.
func (vm *VM) Reset() {
	vm.globals = builtins.Globals()
	vm.globals["this"] = value.FromObject(value.NewObject())
	vm.stack = vm.stack[:0]
	vm.frames = nil
	vm.pc = 0
	vm.instrCount = 0
	vm.initialized = true
}

// SetMaxInstructions overrides the watchdog's instruction budget.
func (vm *VM) SetMaxInstructions(n int) { vm.maxInstructions = n }

// EnableDebug turns on trace output at the given level.
func (vm *VM) EnableDebug(level DebugLevel) { vm.debugLevel = level }

// DisableDebug turns off trace output.
func (vm *VM) DisableDebug() { vm.debugLevel = DebugOff }

// SetDebugSymbols controls whether RuntimeError carries source positions,
// mirroring the compiler's Options.DebugSymbols.
func (vm *VM) SetDebugSymbols(b bool) { vm.debugSymbols = b }

// DebugSymbols reports the current SetDebugSymbols setting, letting the
// vellum facade thread it through to a standalone Compile call.
func (vm *VM) DebugSymbols() bool { return vm.debugSymbols }

// SetTraceWriter redirects debug trace output; nil restores os.Stderr.
func (vm *VM) SetTraceWriter(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	vm.trace = w
}

// State reports the introspection fields spec §6.2's vm.state() exposes.
type State struct {
	Initialized bool
	GlobalNames []string
	CallDepth   int
}

// State returns a snapshot of the VM's current globals and call depth.
func (vm *VM) State() State {
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name)
	}
	return State{
		Initialized: vm.initialized,
		GlobalNames: names,
		CallDepth:   len(vm.frames),
	}
}

// Compile parses and lowers source without executing it (spec §6.2
// vm.compile).
func Compile(source string, debugSymbols bool) (*bytecode.Program, error) {
	prog, errs := parser.Parse(source)
	if len(errs) > 0 {
		return nil, &vmerr.CompileError{Message: errs[0]}
	}
	return compileProgram(prog, debugSymbols)
}

// Run parses, compiles, and executes source in one step (spec §6.2 vm.run).
// context entries are merged into globals before execution; on a VM's
// first Run/Execute, built-ins are already present from New/Reset.
func (vm *VM) Run(source string, context map[string]value.Value) (value.Value, error) {
	prog, err := Compile(source, vm.debugSymbols)
	if err != nil {
		return value.Value{}, err
	}
	return vm.Execute(prog, context)
}

// Execute runs a previously compiled Program against the VM's persistent
// globals, merging context in first (spec §6.2 vm.execute).
func (vm *VM) Execute(prog *bytecode.Program, context map[string]value.Value) (value.Value, error) {
	if !vm.initialized {
		vm.Reset()
	}
	for name, v := range context {
		vm.globals[name] = v
	}
	vm.prog = prog
	vm.pc = 0
	vm.instrCount = 0
	vm.stack = vm.stack[:0]
	vm.frames = nil
	return vm.run(-1)
}

func (vm *VM) runtimeErrf(op bytecode.Op, format string, args ...interface{}) error {
	e := &vmerr.RuntimeError{
		Message: fmt.Sprintf(format, args...),
		PC:      vm.pc,
		Op:      op.String(),
	}
	if vm.debugSymbols && vm.prog != nil {
		if pos, ok := vm.prog.PosFor(vm.pc); ok {
			e.Pos = pos
			e.HasPos = true
		}
	}
	return e
}
