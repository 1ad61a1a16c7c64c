package vm

import (
	"vellum/internal/ast"
	"vellum/internal/bytecode"
	"vellum/internal/compiler"
)

func compileProgram(prog *ast.Program, debugSymbols bool) (*bytecode.Program, error) {
	return compiler.Compile(prog, compiler.Options{DebugSymbols: debugSymbols})
}
