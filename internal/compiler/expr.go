package compiler

import (
	"vellum/internal/ast"
	"vellum/internal/bytecode"
	"vellum/internal/value"
)

var binaryOps = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod,
	"<<": bytecode.OpShl, ">>": bytecode.OpShr, ">>>": bytecode.OpUshr,
	"&": bytecode.OpBitAnd, "|": bytecode.OpBitOr, "^": bytecode.OpBitXor,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
}

// compoundOps maps a compound-assignment operator ("+=", ...) to the
// binary opcode it expands to.
var compoundOps = map[string]bytecode.Op{
	"+=": bytecode.OpAdd, "-=": bytecode.OpSub, "*=": bytecode.OpMul,
	"/=": bytecode.OpDiv, "%=": bytecode.OpMod,
	"&=": bytecode.OpBitAnd, "|=": bytecode.OpBitOr, "^=": bytecode.OpBitXor,
	"<<=": bytecode.OpShl, ">>=": bytecode.OpShr, ">>>=": bytecode.OpUshr,
}

// compileExpr lowers e, leaving exactly one value on the operand stack.
func (c *Compiler) compileExpr(e ast.Expr) {
	if c.failed() {
		return
	}
	switch n := e.(type) {
	case *ast.NumericLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Number(n.Value)))
	case *ast.StringLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String(n.Value)))
	case *ast.BooleanLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Bool(n.Value)))
	case *ast.NullLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Null))
	case *ast.UndefinedLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.Undefined))
	case *ast.TemplateLiteral:
		c.compileTemplateLiteral(n)
	case *ast.RegExpLiteral:
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String(n.Flags)))
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String(n.Pattern)))
		c.emit(n, bytecode.OpLoad, c.prog.AddName("RegExp"))
		c.emit(n, bytecode.OpNew, 2)
	case *ast.Identifier:
		c.emit(n, bytecode.OpLoad, c.prog.AddName(n.Name))
	case *ast.ThisExpression:
		c.emit(n, bytecode.OpLoad, c.prog.AddName("this"))
	case *ast.BinaryExpression:
		c.compileBinary(n)
	case *ast.LogicalExpression:
		c.compileLogical(n)
	case *ast.UnaryExpression:
		c.compileUnary(n)
	case *ast.UpdateExpression:
		c.compileUpdate(n)
	case *ast.AssignmentExpression:
		c.compileAssignment(n)
	case *ast.ConditionalExpression:
		c.compileConditional(n)
	case *ast.SequenceExpression:
		for i, sub := range n.Expressions {
			c.compileExpr(sub)
			if i != len(n.Expressions)-1 {
				c.emit(n, bytecode.OpPop, 0)
			}
		}
	case *ast.CallExpression:
		c.compileCall(n)
	case *ast.NewExpression:
		for i := len(n.Arguments) - 1; i >= 0; i-- {
			c.compileExpr(n.Arguments[i])
		}
		c.compileExpr(n.Callee)
		c.emit(n, bytecode.OpNew, len(n.Arguments))
	case *ast.MemberExpression:
		c.compileExpr(n.Object)
		c.compileMemberKey(n)
		c.emit(n, bytecode.OpGetProp, 0)
	case *ast.ArrayExpression:
		for _, el := range n.Elements {
			c.compileExpr(el)
		}
		c.emit(n, bytecode.OpNewArr, len(n.Elements))
	case *ast.ObjectExpression:
		for _, prop := range n.Properties {
			c.compileObjectKey(prop)
			c.compileExpr(prop.Value)
		}
		c.emit(n, bytecode.OpNewObj, len(n.Properties))
	case *ast.FunctionExpression:
		name := ""
		if n.ID != nil {
			name = n.ID.Name
		}
		fnVal := c.compileFunctionBody(n, name, n.Params, n.Body)
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(fnVal))
	default:
		c.fail(e, "unsupported expression node %T", e)
	}
}

// compileMemberKey pushes m's property key: the compiled expression for a
// computed access, or the property name as a string constant otherwise.
// GET_PROP/SET_PROP always read the key off the stack.
func (c *Compiler) compileMemberKey(m *ast.MemberExpression) {
	if m.Computed {
		c.compileExpr(m.Property)
		return
	}
	name := m.Property.(*ast.Identifier).Name
	c.emit(m, bytecode.OpPush, c.prog.AddConstant(value.String(name)))
}

// compileObjectKey pushes an object literal property's key, to be followed
// by its value; NEW_OBJ consumes (key, value) pairs per §4.4.8.
func (c *Compiler) compileObjectKey(prop *ast.ObjectProperty) {
	if prop.Computed {
		c.compileExpr(prop.Key)
		return
	}
	switch k := prop.Key.(type) {
	case *ast.Identifier:
		c.emit(prop.Value, bytecode.OpPush, c.prog.AddConstant(value.String(k.Name)))
	case *ast.StringLiteral:
		c.emit(prop.Value, bytecode.OpPush, c.prog.AddConstant(value.String(k.Value)))
	}
}

func (c *Compiler) compileTemplateLiteral(n *ast.TemplateLiteral) {
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String(n.Quasis[0])))
	for i, expr := range n.Expressions {
		c.compileExpr(expr)
		c.emit(n, bytecode.OpAdd, 0)
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String(n.Quasis[i+1])))
		c.emit(n, bytecode.OpAdd, 0)
	}
}

func (c *Compiler) compileBinary(n *ast.BinaryExpression) {
	if n.Operator == "in" {
		c.compileExpr(n.Right)
		c.emit(n, bytecode.OpDup, 0)
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(value.String("has")))
		c.emit(n, bytecode.OpGetProp, 0)
		c.compileExpr(n.Left)
		c.emit(n, bytecode.OpCallMethod, 1)
		return
	}
	op, ok := binaryOps[n.Operator]
	if !ok {
		c.fail(n, "unsupported binary operator %q", n.Operator)
		return
	}
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	c.emit(n, op, 0)
}

// compileLogical emits the DUP+jump short-circuit form: `a && b` ->
// compile a; DUP; JIF end; POP; compile b; end:, so a falsy a is the result
// and b is never evaluated. `a || b` uses JNF (jump-if-truthy) symmetrically.
func (c *Compiler) compileLogical(n *ast.LogicalExpression) {
	c.compileExpr(n.Left)
	c.emit(n, bytecode.OpDup, 0)
	var skipIdx int
	if n.Operator == "&&" {
		skipIdx = c.emit(n, bytecode.OpJif, 0)
	} else {
		skipIdx = c.emit(n, bytecode.OpJnf, 0)
	}
	c.emit(n, bytecode.OpPop, 0)
	c.compileExpr(n.Right)
	c.prog.PatchOperand(skipIdx, c.prog.Here())
}

func (c *Compiler) compileUnary(n *ast.UnaryExpression) {
	c.compileExpr(n.Argument)
	switch n.Operator {
	case "-":
		c.emit(n, bytecode.OpNeg, 0)
	case "+":
		// No dedicated coercion opcode; double negation forces the same
		// ToNumber conversion NEG already performs and returns the sign
		// unchanged.
		c.emit(n, bytecode.OpNeg, 0)
		c.emit(n, bytecode.OpNeg, 0)
	case "!":
		c.emit(n, bytecode.OpNot, 0)
	case "~":
		c.emit(n, bytecode.OpBitNot, 0)
	case "typeof":
		c.emit(n, bytecode.OpTypeof, 0)
	default:
		c.fail(n, "unsupported unary operator %q", n.Operator)
	}
}

// assignTarget abstracts over identifier and member-expression assignment
// targets so update/assignment/compound-assignment can share their logic.
// Object/key subexpressions of a member target are evaluated exactly once
// (into hidden locals) even though the target may be read and written.
type assignTarget struct {
	ident    string // set when the target is a plain identifier
	isMember bool
	objName  string // hidden local holding the evaluated object
	computed bool
	keyName  string // hidden local holding the evaluated computed key
	static   string // property name, when !computed
}

func (c *Compiler) resolveTarget(pos ast.Node, target ast.Expr) assignTarget {
	switch t := target.(type) {
	case *ast.Identifier:
		return assignTarget{ident: t.Name}
	case *ast.MemberExpression:
		at := assignTarget{isMember: true, computed: t.Computed}
		at.objName = c.gensym("tgt_obj")
		c.compileExpr(t.Object)
		c.emit(pos, bytecode.OpDeclare, c.prog.AddName(at.objName))
		if t.Computed {
			at.keyName = c.gensym("tgt_key")
			c.compileExpr(t.Property)
			c.emit(pos, bytecode.OpDeclare, c.prog.AddName(at.keyName))
		} else {
			at.static = t.Property.(*ast.Identifier).Name
		}
		return at
	default:
		c.fail(pos, "invalid assignment target")
		return assignTarget{}
	}
}

// get pushes the target's current value: a LOAD for an identifier, or a
// GET_PROP through the hidden object/key locals resolveTarget set up for a
// member target.
func (at assignTarget) get(c *Compiler, pos ast.Node) {
	if !at.isMember {
		c.emit(pos, bytecode.OpLoad, c.prog.AddName(at.ident))
		return
	}
	c.emit(pos, bytecode.OpLoad, c.prog.AddName(at.objName))
	at.pushKey(c, pos)
	c.emit(pos, bytecode.OpGetProp, 0)
}

// pushKey pushes the target's property key value, from the hidden local
// holding a computed key or as a fresh string constant for a static name.
func (at assignTarget) pushKey(c *Compiler, pos ast.Node) {
	if at.computed {
		c.emit(pos, bytecode.OpLoad, c.prog.AddName(at.keyName))
		return
	}
	c.emit(pos, bytecode.OpPush, c.prog.AddConstant(value.String(at.static)))
}

// set consumes the value on top of stack and stores it into the target,
// pushing the stored value back (identifiers via STORE+DUP-before-call
// convention are handled by callers; set itself always leaves one value).
func (at assignTarget) set(c *Compiler, pos ast.Node) {
	if !at.isMember {
		c.emit(pos, bytecode.OpDup, 0)
		c.emit(pos, bytecode.OpStore, c.prog.AddName(at.ident))
		return
	}
	c.emit(pos, bytecode.OpLoad, c.prog.AddName(at.objName))
	at.pushKey(c, pos)
	c.emit(pos, bytecode.OpSetProp, 0)
}

func (c *Compiler) compileAssignment(n *ast.AssignmentExpression) {
	at := c.resolveTarget(n, n.Target)
	if c.failed() {
		return
	}
	if n.Operator == "=" {
		c.compileExpr(n.Value)
		at.set(c, n)
		return
	}
	op, ok := compoundOps[n.Operator]
	if !ok {
		c.fail(n, "unsupported compound assignment operator %q", n.Operator)
		return
	}
	at.get(c, n)
	c.compileExpr(n.Value)
	c.emit(n, op, 0)
	at.set(c, n)
}

// compileUpdate lowers ++/--. Prefix: fetch, apply delta, store (set's own
// return value is the new value, exactly what a prefix update evaluates
// to). Postfix: fetch, duplicate, apply delta to the duplicate, store, pop
// the store's return, leaving the original pre-update value.
func (c *Compiler) compileUpdate(n *ast.UpdateExpression) {
	delta := value.Number(1)
	if n.Operator == "--" {
		delta = value.Number(-1)
	}
	at := c.resolveTarget(n, n.Argument)
	if c.failed() {
		return
	}
	at.get(c, n)
	if n.Prefix {
		c.emit(n, bytecode.OpPush, c.prog.AddConstant(delta))
		c.emit(n, bytecode.OpAdd, 0)
		at.set(c, n)
		return
	}
	c.emit(n, bytecode.OpDup, 0)
	c.emit(n, bytecode.OpPush, c.prog.AddConstant(delta))
	c.emit(n, bytecode.OpAdd, 0)
	at.set(c, n)
	c.emit(n, bytecode.OpPop, 0)
}

func (c *Compiler) compileConditional(n *ast.ConditionalExpression) {
	c.compileExpr(n.Test)
	jifIdx := c.emit(n, bytecode.OpJif, 0)
	c.compileExpr(n.Consequent)
	jmpIdx := c.emit(n, bytecode.OpJmp, 0)
	c.prog.PatchOperand(jifIdx, c.prog.Here())
	c.compileExpr(n.Alternate)
	c.prog.PatchOperand(jmpIdx, c.prog.Here())
}

// compileCall lowers a call expression. Arguments compile right-to-left so
// that, after the callee (and for method calls, the receiver) is pushed,
// popping arguments one at a time yields them in left-to-right order.
func (c *Compiler) compileCall(n *ast.CallExpression) {
	if member, ok := n.Callee.(*ast.MemberExpression); ok {
		for i := len(n.Arguments) - 1; i >= 0; i-- {
			c.compileExpr(n.Arguments[i])
		}
		c.compileExpr(member.Object)
		c.emit(n, bytecode.OpDup, 0)
		c.compileMemberKey(member)
		c.emit(n, bytecode.OpGetProp, 0)
		c.emit(n, bytecode.OpCallMethod, len(n.Arguments))
		return
	}
	for i := len(n.Arguments) - 1; i >= 0; i-- {
		c.compileExpr(n.Arguments[i])
	}
	c.compileExpr(n.Callee)
	c.emit(n, bytecode.OpCall, len(n.Arguments))
}
