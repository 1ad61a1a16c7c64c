// Package vmerr defines the three typed error kinds a vellum program can
// fail with, formalizing the (pc, opcode, message) fields the teacher's own
// call sites already pass to fmt.Errorf so an embedding host can recover
// structured detail via errors.As instead of parsing strings.
package vmerr

import (
	"fmt"

	"vellum/internal/token"
)

// CompileError reports a failure to lower an AST into bytecode: an
// unsupported node kind, an invalid assignment target, or break/continue
// used outside a loop or switch.
type CompileError struct {
	Message string
	Pos     token.Position
	HasPos  bool
}

func (e *CompileError) Error() string {
	if e.HasPos {
		return fmt.Sprintf("compile error at %s: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// RuntimeError reports a failure raised by the dispatch loop: an undefined
// variable, a call of a non-callable value, property access on null or
// undefined, a stack underflow, and similar.
type RuntimeError struct {
	Message string
	PC      int
	Op      string
	Pos     token.Position
	HasPos  bool
}

func (e *RuntimeError) Error() string {
	if e.HasPos {
		return fmt.Sprintf("runtime error at pc=%d (%s), %s: %s", e.PC, e.Op, e.Pos, e.Message)
	}
	return fmt.Sprintf("runtime error at pc=%d (%s): %s", e.PC, e.Op, e.Message)
}

// BudgetError reports that the instruction watchdog counter exceeded its
// configured bound.
type BudgetError struct {
	Limit int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget error: exceeded %d instructions", e.Limit)
}
