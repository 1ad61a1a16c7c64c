// Package compiler lowers an internal/ast tree into internal/bytecode,
// one handler per node kind, following the jump-patch-and-backpatch
// discipline and loop-context bookkeeping the teacher's own IR compiler
// uses (internal/ir/compiler.go's funcCompiler/loopStack/recordBreakJump
// shape), retargeted from slot allocation to the language's runtime,
// name-based variable resolution — the compiler here never assigns a
// stack slot to a variable; it only ever emits the variable's name.
package compiler

import (
	"fmt"

	"vellum/internal/ast"
	"vellum/internal/bytecode"
	"vellum/internal/value"
	"vellum/internal/vmerr"
)

// breakTarget is anything a `break` statement can jump out of: a loop or a
// switch. Both keep their own list of pending break jumps to patch once
// the construct's exit point is known.
type breakTarget interface {
	recordBreak(idx int)
}

type loopFrame struct {
	breakJumps    []int
	continueJumps []int
}

func (l *loopFrame) recordBreak(idx int)    { l.breakJumps = append(l.breakJumps, idx) }
func (l *loopFrame) recordContinue(idx int) { l.continueJumps = append(l.continueJumps, idx) }

type switchFrame struct {
	breakJumps []int
}

func (s *switchFrame) recordBreak(idx int) { s.breakJumps = append(s.breakJumps, idx) }

// Compiler lowers a single Program into a single bytecode.Program.
type Compiler struct {
	prog         *bytecode.Program
	debugSymbols bool

	loopStack  []*loopFrame
	breakStack []breakTarget

	tempCounter int
	err         *vmerr.CompileError
}

// Options controls compiler behavior.
type Options struct {
	// DebugSymbols records a source position for every emitted
	// instruction, letting RuntimeError report line/column. CompileError
	// carries its node's position either way.
	DebugSymbols bool
}

// Compile lowers prog into a bytecode.Program, or returns the first
// CompileError encountered.
func Compile(prog *ast.Program, opts Options) (*bytecode.Program, error) {
	c := &Compiler{
		prog:         bytecode.NewProgram(),
		debugSymbols: opts.DebugSymbols,
	}
	c.compileTopLevel(prog)
	if c.err != nil {
		return nil, c.err
	}
	c.prog.Emit(bytecode.OpHalt, 0)
	return c.prog, nil
}

func (c *Compiler) fail(pos ast.Node, format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	c.err = &vmerr.CompileError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos.Pos(),
		HasPos:  true,
	}
}

func (c *Compiler) failed() bool { return c.err != nil }

func (c *Compiler) emit(pos ast.Node, op bytecode.Op, operand int) int {
	idx := c.prog.Emit(op, operand)
	if c.debugSymbols {
		c.prog.SetDebugPos(idx, pos.Pos())
	}
	return idx
}

func (c *Compiler) gensym(prefix string) string {
	c.tempCounter++
	return fmt.Sprintf("__%s_%d", prefix, c.tempCounter)
}

// ---- Top level ----

func (c *Compiler) compileTopLevel(prog *ast.Program) {
	c.compileBody(prog.Body, true)
}

// compileBody compiles a statement list. When topLevel is true, a trailing
// ExpressionStatement (the last statement in the list) does not get its
// value popped, so it survives as the program's result.
func (c *Compiler) compileBody(body []ast.Stmt, topLevel bool) {
	for i, stmt := range body {
		if c.failed() {
			return
		}
		if topLevel && i == len(body)-1 {
			if es, ok := stmt.(*ast.ExpressionStatement); ok {
				c.compileExpr(es.Expression)
				continue
			}
		}
		c.compileStmt(stmt)
	}
}

// ---- Statements ----

func (c *Compiler) compileStmt(s ast.Stmt) {
	if c.failed() {
		return
	}
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		c.compileExpr(n.Expression)
		c.emit(n, bytecode.OpPop, 0)
	case *ast.VariableDeclaration:
		c.compileVarDecl(n)
	case *ast.FunctionDeclaration:
		c.compileFunctionDeclaration(n)
	case *ast.BlockStatement:
		c.compileBody(n.Body, false)
	case *ast.IfStatement:
		c.compileIf(n)
	case *ast.WhileStatement:
		c.compileWhile(n)
	case *ast.DoWhileStatement:
		c.compileDoWhile(n)
	case *ast.ForStatement:
		c.compileFor(n)
	case *ast.ForInStatement:
		c.compileForIn(n)
	case *ast.SwitchStatement:
		c.compileSwitch(n)
	case *ast.BreakStatement:
		c.compileBreak(n)
	case *ast.ContinueStatement:
		c.compileContinue(n)
	case *ast.ReturnStatement:
		if n.Argument != nil {
			c.compileExpr(n.Argument)
		} else {
			c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Undefined))
		}
		c.emit(n, bytecode.OpRet, 0)
	case *ast.ThrowStatement:
		c.compileExpr(n.Argument)
		c.emit(n, bytecode.OpThrow, 0)
	case *ast.TryStatement:
		c.compileTry(n)
	default:
		c.fail(s, "unsupported statement node %T", s)
	}
}

func (c *Compiler) compileVarDecl(n *ast.VariableDeclaration) {
	for _, d := range n.Declarations {
		if d.Init != nil {
			c.compileExpr(d.Init)
		} else {
			c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Undefined))
		}
		c.emit(n, bytecode.OpDeclare, c.prog.AddName(d.ID.Name))
	}
}

func (c *Compiler) compileFunctionDeclaration(n *ast.FunctionDeclaration) {
	fnVal := c.compileFunctionBody(n, n.ID.Name, n.Params, n.Body)
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(fnVal))
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(n.ID.Name))
}

// compileFunctionBody emits the jump-over-body / entry_pc / guaranteed-RET
// sequence shared by function declarations and function expressions, and
// returns the UserFunction constant Value to be pushed by the caller.
func (c *Compiler) compileFunctionBody(pos ast.Node, name string, params []*ast.Identifier, body *ast.BlockStatement) value.Value {
	jmpIdx := c.emit(pos, bytecode.OpJmp, 0)
	entryPC := c.prog.Here()

	savedLoops, savedBreaks := c.loopStack, c.breakStack
	c.loopStack, c.breakStack = nil, nil

	c.compileBody(body.Body, false)
	c.emit(body, bytecode.OpPush, c.prog.AddConstant(value.Undefined))
	c.emit(body, bytecode.OpRet, 0)

	c.loopStack, c.breakStack = savedLoops, savedBreaks

	c.prog.PatchOperand(jmpIdx, c.prog.Here())

	paramNames := make([]string, len(params))
	for i, p := range params {
		paramNames[i] = p.Name
	}
	fn := &value.UserFunction{Name: name, Params: paramNames, EntryPC: entryPC}
	return value.FromUserFunction(fn)
}

func (c *Compiler) compileIf(n *ast.IfStatement) {
	c.compileExpr(n.Test)
	jifIdx := c.emit(n, bytecode.OpJif, 0)
	c.compileStmt(n.Consequent)
	if n.Alternate != nil {
		jmpIdx := c.emit(n, bytecode.OpJmp, 0)
		c.prog.PatchOperand(jifIdx, c.prog.Here())
		c.compileStmt(n.Alternate)
		c.prog.PatchOperand(jmpIdx, c.prog.Here())
	} else {
		c.prog.PatchOperand(jifIdx, c.prog.Here())
	}
}

func (c *Compiler) compileWhile(n *ast.WhileStatement) {
	testPC := c.prog.Here()
	c.compileExpr(n.Test)
	jifIdx := c.emit(n, bytecode.OpJif, 0)

	lf := &loopFrame{}
	c.loopStack = append(c.loopStack, lf)
	c.breakStack = append(c.breakStack, lf)

	c.compileStmt(n.Body)

	c.patchContinues(lf, testPC)
	c.emit(n, bytecode.OpJmp, testPC)
	c.prog.PatchOperand(jifIdx, c.prog.Here())
	c.popLoop(lf)
}

func (c *Compiler) compileDoWhile(n *ast.DoWhileStatement) {
	bodyPC := c.prog.Here()

	lf := &loopFrame{}
	c.loopStack = append(c.loopStack, lf)
	c.breakStack = append(c.breakStack, lf)

	c.compileStmt(n.Body)

	continuePC := c.prog.Here()
	c.patchContinues(lf, continuePC)
	c.compileExpr(n.Test)
	c.emit(n, bytecode.OpJnf, bodyPC)
	c.popLoop(lf)
}

func (c *Compiler) compileFor(n *ast.ForStatement) {
	switch init := n.Init.(type) {
	case *ast.VariableDeclaration:
		c.compileVarDecl(init)
	case ast.Expr:
		c.compileExpr(init)
		c.emit(n, bytecode.OpPop, 0)
	}

	testPC := c.prog.Here()
	var jifIdx int
	hasTest := n.Test != nil
	if hasTest {
		c.compileExpr(n.Test)
		jifIdx = c.emit(n, bytecode.OpJif, 0)
	}

	lf := &loopFrame{}
	c.loopStack = append(c.loopStack, lf)
	c.breakStack = append(c.breakStack, lf)

	c.compileStmt(n.Body)

	continuePC := c.prog.Here()
	c.patchContinues(lf, continuePC)
	if n.Update != nil {
		c.compileExpr(n.Update)
		c.emit(n, bytecode.OpPop, 0)
	}
	c.emit(n, bytecode.OpJmp, testPC)
	if hasTest {
		c.prog.PatchOperand(jifIdx, c.prog.Here())
	}
	c.popLoop(lf)
}

// compileForIn desugars `for (x in obj) body` into key-index iteration over
// a hidden snapshot of the iteree's own keys, per §4.3.5: evaluate the
// iteree, take its keys, iterate by index comparing against a hidden
// length local, loading each key and assigning the loop variable.
func (c *Compiler) compileForIn(n *ast.ForInStatement) {
	keysName := c.gensym("forin_keys")
	idxName := c.gensym("forin_idx")
	lenName := c.gensym("forin_len")

	c.compileExpr(n.Right)
	c.emit(n, bytecode.OpDup, 0)
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String("keys")))
	c.emit(n, bytecode.OpGetProp, 0)
	c.emit(n, bytecode.OpCallMethod, 0)
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(keysName))

	c.emit(n, bytecode.OpLoad, c.prog.AddName(keysName))
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String("length")))
	c.emit(n, bytecode.OpGetProp, 0)
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(lenName))

	c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Number(0)))
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(idxName))

	testPC := c.prog.Here()
	c.emit(n, bytecode.OpLoad, c.prog.AddName(idxName))
	c.emit(n, bytecode.OpLoad, c.prog.AddName(lenName))
	c.emit(n, bytecode.OpLt, 0)
	jifIdx := c.emit(n, bytecode.OpJif, 0)

	c.emit(n, bytecode.OpLoad, c.prog.AddName(keysName))
	c.emit(n, bytecode.OpLoad, c.prog.AddName(idxName))
	c.emit(n, bytecode.OpGetElem, 0)
	c.assignTo(n, n.Left)
	c.emit(n, bytecode.OpPop, 0)

	lf := &loopFrame{}
	c.loopStack = append(c.loopStack, lf)
	c.breakStack = append(c.breakStack, lf)

	c.compileStmt(n.Body)

	continuePC := c.prog.Here()
	c.patchContinues(lf, continuePC)
	c.emit(n, bytecode.OpLoad, c.prog.AddName(idxName))
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Number(1)))
	c.emit(n, bytecode.OpAdd, 0)
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(idxName))
	c.emit(n, bytecode.OpJmp, testPC)
	c.prog.PatchOperand(jifIdx, c.prog.Here())
	c.popLoop(lf)
}

// assignTo stores the value on top of the stack (left as-is, per the
// leave-a-value convention SET_PROP/SET_ELEM/STORE share) into left, which
// is either a bare identifier target or a *VariableDeclaration wrapping one
// (the `for (var x in obj)` form).
func (c *Compiler) assignTo(pos ast.Node, left ast.Node) {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		c.emit(pos, bytecode.OpDeclare, c.prog.AddName(l.Declarations[0].ID.Name))
		c.emit(pos, bytecode.OpLoad, c.prog.AddName(l.Declarations[0].ID.Name))
	case *ast.Identifier:
		c.emit(pos, bytecode.OpDup, 0)
		c.emit(pos, bytecode.OpStore, c.prog.AddName(l.Name))
	default:
		c.fail(pos, "invalid for-in target")
	}
}

func (c *Compiler) patchContinues(lf *loopFrame, target int) {
	for _, idx := range lf.continueJumps {
		c.prog.PatchOperand(idx, target)
	}
}

func (c *Compiler) popLoop(lf *loopFrame) {
	target := c.prog.Here()
	for _, idx := range lf.breakJumps {
		c.prog.PatchOperand(idx, target)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.breakStack = c.breakStack[:len(c.breakStack)-1]
}

// compileSwitch lowers to: a linear chain of (load tag; compile test; EQ;
// JIF next-test) checks, each followed by an unconditional jump to that
// case's body; bodies are then emitted in source order with no jump
// between them, so execution falls through from one case body into the
// next exactly as the language requires unless a `break` intervenes.
func (c *Compiler) compileSwitch(n *ast.SwitchStatement) {
	c.compileExpr(n.Discriminant)
	tagName := c.gensym("switch_tag")
	c.emit(n, bytecode.OpDeclare, c.prog.AddName(tagName))

	sf := &switchFrame{}
	c.breakStack = append(c.breakStack, sf)

	type toBody struct {
		jmpIdx  int
		caseIdx int
	}
	var toBodyJumps []toBody
	lastJif := -1
	defaultIdx := -1

	for i, cs := range n.Cases {
		if cs.Test == nil {
			if defaultIdx < 0 {
				defaultIdx = i
			}
			continue
		}
		if lastJif >= 0 {
			c.prog.PatchOperand(lastJif, c.prog.Here())
		}
		c.emit(n, bytecode.OpLoad, c.prog.AddName(tagName))
		c.compileExpr(cs.Test)
		c.emit(n, bytecode.OpEq, 0)
		lastJif = c.emit(n, bytecode.OpJif, 0)
		jmpIdx := c.emit(n, bytecode.OpJmp, 0)
		toBodyJumps = append(toBodyJumps, toBody{jmpIdx: jmpIdx, caseIdx: i})
	}
	if lastJif >= 0 {
		c.prog.PatchOperand(lastJif, c.prog.Here())
	}
	toDefaultOrEnd := c.emit(n, bytecode.OpJmp, 0)

	bodyStart := make([]int, len(n.Cases))
	for i, cs := range n.Cases {
		bodyStart[i] = c.prog.Here()
		c.compileBody(cs.Consequent, false)
	}
	endPC := c.prog.Here()

	for _, tb := range toBodyJumps {
		c.prog.PatchOperand(tb.jmpIdx, bodyStart[tb.caseIdx])
	}
	if defaultIdx >= 0 {
		c.prog.PatchOperand(toDefaultOrEnd, bodyStart[defaultIdx])
	} else {
		c.prog.PatchOperand(toDefaultOrEnd, endPC)
	}

	for _, idx := range sf.breakJumps {
		c.prog.PatchOperand(idx, endPC)
	}
	c.breakStack = c.breakStack[:len(c.breakStack)-1]
}

func (c *Compiler) compileBreak(n *ast.BreakStatement) {
	if len(c.breakStack) == 0 {
		c.fail(n, "break used outside a loop or switch")
		return
	}
	idx := c.emit(n, bytecode.OpJmp, 0)
	c.breakStack[len(c.breakStack)-1].recordBreak(idx)
}

func (c *Compiler) compileContinue(n *ast.ContinueStatement) {
	if len(c.loopStack) == 0 {
		c.fail(n, "continue used outside a loop")
		return
	}
	idx := c.emit(n, bytecode.OpJmp, 0)
	c.loopStack[len(c.loopStack)-1].recordContinue(idx)
}

// compileTry accepts try/catch/finally syntactically (option (a) of the
// design's open question) but never installs an exception handler: the
// block, and finalizer if present, run unconditionally in sequence, and an
// uncaught throw always surfaces as a RuntimeError from the VM. The catch
// block is never entered.
func (c *Compiler) compileTry(n *ast.TryStatement) {
	c.compileBody(n.Block.Body, false)
	if n.Finalizer != nil {
		c.compileBody(n.Finalizer.Body, false)
	}
}
