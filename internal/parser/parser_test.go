package parser_test

import (
	"testing"

	"vellum/internal/ast"
	"vellum/internal/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse(%q): %v", src, errs)
	}
	return prog
}

func TestParseVariableDeclaration(t *testing.T) {
	prog := parse(t, `var x = 1, y = 2;`)
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("got %T, want *ast.VariableDeclaration", prog.Body[0])
	}
	if len(decl.Declarations) != 2 {
		t.Fatalf("expected 2 declarators, got %d", len(decl.Declarations))
	}
	if decl.Declarations[0].ID.Name != "x" || decl.Declarations[1].ID.Name != "y" {
		t.Fatalf("got %q, %q", decl.Declarations[0].ID.Name, decl.Declarations[1].ID.Name)
	}
	lit, ok := decl.Declarations[1].Init.(*ast.NumericLiteral)
	if !ok || lit.Value != 2 {
		t.Fatalf("got %#v, want numeric literal 2", decl.Declarations[1].Init)
	}
}

// TestASILiteNeverRequiresSemicolons exercises skipSemi: statements with and
// without trailing semicolons must parse to the same statement count, since
// this grammar never requires ASI, only tolerates its absence.
func TestASILiteNeverRequiresSemicolons(t *testing.T) {
	withSemis := parse(t, `var a = 1; var b = 2;`)
	withoutSemis := parse(t, "var a = 1\nvar b = 2")
	if len(withSemis.Body) != 2 || len(withoutSemis.Body) != 2 {
		t.Fatalf("got %d and %d statements, want 2 and 2", len(withSemis.Body), len(withoutSemis.Body))
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 must bind as 1 + (2 * 3), not (1 + 2) * 3.
	prog := parse(t, `1 + 2 * 3;`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	bin, ok := stmt.Expression.(*ast.BinaryExpression)
	if !ok || bin.Operator != "+" {
		t.Fatalf("got %#v, want top-level +", stmt.Expression)
	}
	left, ok := bin.Left.(*ast.NumericLiteral)
	if !ok || left.Value != 1 {
		t.Fatalf("left = %#v, want 1", bin.Left)
	}
	right, ok := bin.Right.(*ast.BinaryExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("right = %#v, want (2 * 3)", bin.Right)
	}
}

func TestParseLogicalBindsLooserThanEquality(t *testing.T) {
	// a == b && c == d must parse as (a == b) && (c == d).
	prog := parse(t, `a == b && c == d;`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	logical, ok := stmt.Expression.(*ast.LogicalExpression)
	if !ok || logical.Operator != "&&" {
		t.Fatalf("got %#v, want top-level &&", stmt.Expression)
	}
	if _, ok := logical.Left.(*ast.BinaryExpression); !ok {
		t.Fatalf("left = %#v, want binary ==", logical.Left)
	}
	if _, ok := logical.Right.(*ast.BinaryExpression); !ok {
		t.Fatalf("right = %#v, want binary ==", logical.Right)
	}
}

// TestParseAssignmentIsRightAssociative exercises the precAssign-1 recursion
// in parseInfix's assignment branch: a = b = 1 must parse as a = (b = 1),
// not (a = b) = 1.
func TestParseAssignmentIsRightAssociative(t *testing.T) {
	prog := parse(t, `a = b = 1;`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	outer, ok := stmt.Expression.(*ast.AssignmentExpression)
	if !ok || outer.Operator != "=" {
		t.Fatalf("got %#v, want top-level assignment", stmt.Expression)
	}
	if _, ok := outer.Target.(*ast.Identifier); !ok {
		t.Fatalf("target = %#v, want identifier a", outer.Target)
	}
	inner, ok := outer.Value.(*ast.AssignmentExpression)
	if !ok || inner.Operator != "=" {
		t.Fatalf("value = %#v, want nested assignment b = 1", outer.Value)
	}
}

func TestParseTernaryAndCompoundAssignment(t *testing.T) {
	prog := parse(t, `x = a ? b : c;`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	assign := stmt.Expression.(*ast.AssignmentExpression)
	cond, ok := assign.Value.(*ast.ConditionalExpression)
	if !ok {
		t.Fatalf("got %#v, want conditional expression", assign.Value)
	}
	if _, ok := cond.Test.(*ast.Identifier); !ok {
		t.Fatalf("test = %#v, want identifier", cond.Test)
	}

	prog = parse(t, `x += 1;`)
	stmt = prog.Body[0].(*ast.ExpressionStatement)
	assign = stmt.Expression.(*ast.AssignmentExpression)
	if assign.Operator != "+=" {
		t.Fatalf("operator = %q, want %q", assign.Operator, "+=")
	}
}

func TestParseUnaryAndUpdateExpressions(t *testing.T) {
	prog := parse(t, `!a; -b; ++c; d++;`)
	if len(prog.Body) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(prog.Body))
	}
	un := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.UnaryExpression)
	if un.Operator != "!" {
		t.Fatalf("got operator %q, want !", un.Operator)
	}
	upd := prog.Body[2].(*ast.ExpressionStatement).Expression.(*ast.UpdateExpression)
	if upd.Operator != "++" || !upd.Prefix {
		t.Fatalf("got %#v, want prefix ++", upd)
	}
	upd = prog.Body[3].(*ast.ExpressionStatement).Expression.(*ast.UpdateExpression)
	if upd.Operator != "++" || upd.Prefix {
		t.Fatalf("got %#v, want postfix ++", upd)
	}
}

func TestParseMemberCallAndIndexChain(t *testing.T) {
	// obj.items[0].name() must chain member/index/call left-to-right.
	prog := parse(t, `obj.items[0].name();`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("got %#v, want call expression", stmt.Expression)
	}
	nameProp, ok := call.Callee.(*ast.MemberExpression)
	if !ok || nameProp.Computed {
		t.Fatalf("callee = %#v, want non-computed .name member", call.Callee)
	}
	if id, ok := nameProp.Property.(*ast.Identifier); !ok || id.Name != "name" {
		t.Fatalf("property = %#v, want identifier name", nameProp.Property)
	}
	index, ok := nameProp.Object.(*ast.MemberExpression)
	if !ok || !index.Computed {
		t.Fatalf("object = %#v, want computed [0] member", nameProp.Object)
	}
	items, ok := index.Object.(*ast.MemberExpression)
	if !ok || items.Computed {
		t.Fatalf("object = %#v, want non-computed .items member", index.Object)
	}
	if id, ok := items.Object.(*ast.Identifier); !ok || id.Name != "obj" {
		t.Fatalf("root object = %#v, want identifier obj", items.Object)
	}
}

// TestParseNewWithArgumentsExtractsCallExpression exercises
// parseNewExpression's special case: `new Foo(1, 2)` parses its callee via
// parseExpression(precPostfix), which greedily consumes the parens as a
// CallExpression, so NewExpression must unwrap it rather than nesting a
// call inside a call.
func TestParseNewWithArgumentsExtractsCallExpression(t *testing.T) {
	prog := parse(t, `new Foo(1, 2);`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	newExpr, ok := stmt.Expression.(*ast.NewExpression)
	if !ok {
		t.Fatalf("got %#v, want new expression", stmt.Expression)
	}
	if id, ok := newExpr.Callee.(*ast.Identifier); !ok || id.Name != "Foo" {
		t.Fatalf("callee = %#v, want identifier Foo", newExpr.Callee)
	}
	if len(newExpr.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(newExpr.Arguments))
	}
}

// TestParseNewWithoutArgumentsHasNilArguments covers bare `new Foo` (no
// parens at all): parseExpression(precPostfix) never sees a LParen, so callee
// stays an Identifier and the fallback branch runs with a nil args slice.
func TestParseNewWithoutArgumentsHasNilArguments(t *testing.T) {
	prog := parse(t, `new Foo;`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	newExpr := stmt.Expression.(*ast.NewExpression)
	if id, ok := newExpr.Callee.(*ast.Identifier); !ok || id.Name != "Foo" {
		t.Fatalf("callee = %#v, want identifier Foo", newExpr.Callee)
	}
	if len(newExpr.Arguments) != 0 {
		t.Fatalf("expected 0 arguments, got %d", len(newExpr.Arguments))
	}
}

// TestParsePostfixUpdateInsideBinaryExpression guards the precedences table
// entry for Inc/Dec: without it, curPrecedence(Inc) falls back to
// precLowest and the infix loop never reaches parseInfix's postfix branch,
// leaving `i++` parsed as a bare identifier with `++` dangling unconsumed.
func TestParsePostfixUpdateInsideBinaryExpression(t *testing.T) {
	prog := parse(t, `total = total + i++;`)
	assign := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.AssignmentExpression)
	bin := assign.Value.(*ast.BinaryExpression)
	upd, ok := bin.Right.(*ast.UpdateExpression)
	if !ok || upd.Operator != "++" || upd.Prefix {
		t.Fatalf("right = %#v, want postfix ++ on i", bin.Right)
	}
	if id, ok := upd.Argument.(*ast.Identifier); !ok || id.Name != "i" {
		t.Fatalf("argument = %#v, want identifier i", upd.Argument)
	}
}

// TestParseNewWithMemberChainCallee exercises new against a dotted callee:
// the callee chain must be fully consumed (via precPostfix, not precCall)
// before parseNewExpression decides whether it wrapped a call.
func TestParseNewWithMemberChainCallee(t *testing.T) {
	prog := parse(t, `new pkg.Widget(1);`)
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	newExpr, ok := stmt.Expression.(*ast.NewExpression)
	if !ok {
		t.Fatalf("got %#v, want new expression", stmt.Expression)
	}
	member, ok := newExpr.Callee.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("callee = %#v, want member expression pkg.Widget", newExpr.Callee)
	}
	if id, ok := member.Property.(*ast.Identifier); !ok || id.Name != "Widget" {
		t.Fatalf("property = %#v, want identifier Widget", member.Property)
	}
	if len(newExpr.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(newExpr.Arguments))
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	prog := parse(t, `[1, 2, 3];`)
	arr := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.ArrayExpression)
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}

	prog = parse(t, `({a: 1, "b": 2, [c]: 3});`)
	obj := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.ObjectExpression)
	if len(obj.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(obj.Properties))
	}
	if id, ok := obj.Properties[0].Key.(*ast.Identifier); !ok || id.Name != "a" || obj.Properties[0].Computed {
		t.Fatalf("property 0 key = %#v", obj.Properties[0].Key)
	}
	if s, ok := obj.Properties[1].Key.(*ast.StringLiteral); !ok || s.Value != "b" {
		t.Fatalf("property 1 key = %#v", obj.Properties[1].Key)
	}
	if !obj.Properties[2].Computed {
		t.Fatal("property 2 expected Computed = true for [c]: 3")
	}
}

// TestParseTemplateLiteralQuasiPadding exercises the empty-quasi padding in
// parseTemplateLiteral: a template ending or starting with an interpolation
// still needs len(Quasis) == len(Expressions)+1, so the parser inserts an
// empty string where no StringPart token appears.
func TestParseTemplateLiteralQuasiPadding(t *testing.T) {
	prog := parse(t, "`${a}${b}`;")
	tl := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.TemplateLiteral)
	if len(tl.Expressions) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(tl.Expressions))
	}
	if len(tl.Quasis) != 3 {
		t.Fatalf("expected 3 quasis (padded), got %d: %#v", len(tl.Quasis), tl.Quasis)
	}
	for i, q := range tl.Quasis {
		if q != "" {
			t.Fatalf("quasi %d = %q, want empty", i, q)
		}
	}
}

func TestParseTemplateLiteralWithInterpolation(t *testing.T) {
	prog := parse(t, "`hello ${name}!`;")
	tl := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.TemplateLiteral)
	if len(tl.Quasis) != 2 || tl.Quasis[0] != "hello " || tl.Quasis[1] != "!" {
		t.Fatalf("got quasis %#v", tl.Quasis)
	}
	if len(tl.Expressions) != 1 {
		t.Fatalf("expected 1 expression, got %d", len(tl.Expressions))
	}
	if id, ok := tl.Expressions[0].(*ast.Identifier); !ok || id.Name != "name" {
		t.Fatalf("expression = %#v, want identifier name", tl.Expressions[0])
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	prog := parse(t, `
		if (a) { b; } else if (c) { d; } else { e; }
		while (x) { y; }
	`)
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Body))
	}
	ifStmt := prog.Body[0].(*ast.IfStatement)
	if _, ok := ifStmt.Consequent.(*ast.BlockStatement); !ok {
		t.Fatalf("consequent = %#v, want block", ifStmt.Consequent)
	}
	elseIf, ok := ifStmt.Alternate.(*ast.IfStatement)
	if !ok {
		t.Fatalf("alternate = %#v, want nested if (else-if chain)", ifStmt.Alternate)
	}
	if elseIf.Alternate == nil {
		t.Fatal("expected the trailing else block on the nested if")
	}
	if _, ok := prog.Body[1].(*ast.WhileStatement); !ok {
		t.Fatalf("got %T, want *ast.WhileStatement", prog.Body[1])
	}
}

func TestParseForClassicAndForIn(t *testing.T) {
	prog := parse(t, `for (var i = 0; i < 10; i = i + 1) { total = total + i; }`)
	forStmt := prog.Body[0].(*ast.ForStatement)
	if _, ok := forStmt.Init.(*ast.VariableDeclaration); !ok {
		t.Fatalf("init = %#v, want variable declaration", forStmt.Init)
	}
	if forStmt.Test == nil || forStmt.Update == nil {
		t.Fatal("expected both Test and Update to be set")
	}

	prog = parse(t, `for (var key in obj) { visit(key); }`)
	forIn := prog.Body[0].(*ast.ForInStatement)
	decl, ok := forIn.Left.(*ast.VariableDeclaration)
	if !ok || decl.Declarations[0].ID.Name != "key" {
		t.Fatalf("left = %#v, want var key declaration", forIn.Left)
	}
	if id, ok := forIn.Right.(*ast.Identifier); !ok || id.Name != "obj" {
		t.Fatalf("right = %#v, want identifier obj", forIn.Right)
	}
}

func TestParseFunctionDeclarationAndExpression(t *testing.T) {
	prog := parse(t, `
		function add(a, b) { return a + b; }
		var f = function(x) { return x; };
	`)
	fn := prog.Body[0].(*ast.FunctionDeclaration)
	if fn.ID.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("got name=%q params=%d", fn.ID.Name, len(fn.Params))
	}
	if len(fn.Body.Body) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(fn.Body.Body))
	}

	decl := prog.Body[1].(*ast.VariableDeclaration)
	fnExpr, ok := decl.Declarations[0].Init.(*ast.FunctionExpression)
	if !ok {
		t.Fatalf("init = %#v, want function expression", decl.Declarations[0].Init)
	}
	if fnExpr.ID != nil {
		t.Fatalf("expected anonymous function expression, got ID %q", fnExpr.ID.Name)
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := parse(t, `try { risky(); } catch (e) { handle(e); } finally { cleanup(); }`)
	tryStmt := prog.Body[0].(*ast.TryStatement)
	if tryStmt.Handler == nil || tryStmt.Handler.Param.Name != "e" {
		t.Fatalf("handler = %#v, want catch param e", tryStmt.Handler)
	}
	if tryStmt.Finalizer == nil {
		t.Fatal("expected a finally block")
	}
}

func TestParseSwitchWithDefault(t *testing.T) {
	prog := parse(t, `
		switch (x) {
		case 1: a(); break;
		case 2: b(); break;
		default: c();
		}
	`)
	sw := prog.Body[0].(*ast.SwitchStatement)
	if len(sw.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(sw.Cases))
	}
	if sw.Cases[0].Test == nil {
		t.Fatal("expected case 1 to have a Test")
	}
	if sw.Cases[2].Test != nil {
		t.Fatal("expected the default case to have a nil Test")
	}
}

func TestParseSequenceExpressionInParens(t *testing.T) {
	prog := parse(t, `(a, b, c);`)
	seq, ok := prog.Body[0].(*ast.ExpressionStatement).Expression.(*ast.SequenceExpression)
	if !ok {
		t.Fatalf("got %#v, want sequence expression", prog.Body[0])
	}
	if len(seq.Expressions) != 3 {
		t.Fatalf("expected 3 expressions, got %d", len(seq.Expressions))
	}
}

func TestParseErrorsAreRecordedNotPanicked(t *testing.T) {
	_, errs := parser.Parse(`var = ;`)
	if len(errs) == 0 {
		t.Fatal("expected parse errors for malformed declaration")
	}
}
