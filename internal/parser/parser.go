// Package parser implements a Pratt parser producing the internal/ast node
// shapes the compiler consumes. It is one possible producer of that AST
// contract — the compiler does not depend on this package's grammar or
// error-reporting choices, only on the shapes in internal/ast.
package parser

import (
	"fmt"
	"strconv"

	"vellum/internal/ast"
	"vellum/internal/lexer"
	"vellum/internal/token"
)

type precedence int

const (
	_ precedence = iota
	precLowest
	precAssign     // =, +=, ...
	precConditional // ?:
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precCall
)

var precedences = map[token.Kind]precedence{
	token.Assign:        precAssign,
	token.PlusAssign:    precAssign,
	token.MinusAssign:   precAssign,
	token.StarAssign:    precAssign,
	token.SlashAssign:   precAssign,
	token.PercentAssign: precAssign,
	token.AndAssign:     precAssign,
	token.OrAssign:      precAssign,
	token.XorAssign:     precAssign,
	token.ShlAssign:     precAssign,
	token.ShrAssign:     precAssign,
	token.UshrAssign:    precAssign,
	token.Question:      precConditional,
	token.OrOr:          precLogicalOr,
	token.AndAnd:        precLogicalAnd,
	token.Pipe:          precBitOr,
	token.Caret:         precBitXor,
	token.Amp:           precBitAnd,
	token.Eq:            precEquality,
	token.Neq:           precEquality,
	token.Lt:            precRelational,
	token.Lte:           precRelational,
	token.Gt:            precRelational,
	token.Gte:           precRelational,
	token.In:            precRelational,
	token.Shl:           precShift,
	token.Shr:           precShift,
	token.Ushr:          precShift,
	token.Plus:          precAdditive,
	token.Minus:         precAdditive,
	token.Star:          precMultiplicative,
	token.Slash:         precMultiplicative,
	token.Percent:       precMultiplicative,
	token.LParen:        precCall,
	token.Dot:           precCall,
	token.LBracket:      precCall,
	token.Inc:           precPostfix,
	token.Dec:           precPostfix,
}

var assignOps = map[token.Kind]string{
	token.Assign:        "=",
	token.PlusAssign:    "+=",
	token.MinusAssign:   "-=",
	token.StarAssign:    "*=",
	token.SlashAssign:   "/=",
	token.PercentAssign: "%=",
	token.AndAssign:     "&=",
	token.OrAssign:      "|=",
	token.XorAssign:     "^=",
	token.ShlAssign:     "<<=",
	token.ShrAssign:     ">>=",
	token.UshrAssign:    ">>>=",
}

// Parser turns a token stream into an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	errors []string
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("%s: %s", pos, fmt.Sprintf(format, args...)))
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.cur.Kind != k {
		p.errorf(p.cur.Pos, "expected %s, got %s (%q)", k, p.cur.Kind, p.cur.Lexeme)
	}
	tok := p.cur
	p.next()
	return tok
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

// skipSemi consumes an optional trailing semicolon (ASI-lite: never required).
func (p *Parser) skipSemi() {
	if p.cur.Kind == token.Semicolon {
		p.next()
	}
}

func (p *Parser) peekPrecedence() precedence {
	if pr, ok := precedences[p.peek.Kind]; ok {
		return pr
	}
	return precLowest
}

func (p *Parser) curPrecedence() precedence {
	if pr, ok := precedences[p.cur.Kind]; ok {
		return pr
	}
	return precLowest
}

// Parse parses a full program.
func Parse(source string) (*ast.Program, []string) {
	p := New(lexer.New(source))
	prog := p.ParseProgram()
	return prog, p.Errors()
}

func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{NodePos: p.cur.Pos}
	for !p.at(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Body = append(prog.Body, stmt)
		}
	}
	return prog
}

// ---- Statements ----

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Var:
		s := p.parseVariableDeclaration()
		p.skipSemi()
		return s
	case token.Function:
		return p.parseFunctionDeclaration()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Do:
		return p.parseDoWhile()
	case token.For:
		return p.parseFor()
	case token.Break:
		pos := p.cur.Pos
		p.next()
		p.skipSemi()
		return &ast.BreakStatement{NodePos: pos}
	case token.Continue:
		pos := p.cur.Pos
		p.next()
		p.skipSemi()
		return &ast.ContinueStatement{NodePos: pos}
	case token.Return:
		pos := p.cur.Pos
		p.next()
		var arg ast.Expr
		if !p.at(token.Semicolon) && !p.at(token.RBrace) && !p.at(token.EOF) {
			arg = p.parseExpression(precLowest)
		}
		p.skipSemi()
		return &ast.ReturnStatement{Argument: arg, NodePos: pos}
	case token.Throw:
		pos := p.cur.Pos
		p.next()
		arg := p.parseExpression(precLowest)
		p.skipSemi()
		return &ast.ThrowStatement{Argument: arg, NodePos: pos}
	case token.Try:
		return p.parseTry()
	case token.Switch:
		return p.parseSwitch()
	case token.Semicolon:
		p.next()
		return nil
	default:
		pos := p.cur.Pos
		expr := p.parseExpression(precLowest)
		p.skipSemi()
		return &ast.ExpressionStatement{Expression: expr, NodePos: pos}
	}
}

func (p *Parser) parseBlock() *ast.BlockStatement {
	pos := p.cur.Pos
	p.expect(token.LBrace)
	block := &ast.BlockStatement{NodePos: pos}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if s := p.parseStatement(); s != nil {
			block.Body = append(block.Body, s)
		}
	}
	p.expect(token.RBrace)
	return block
}

func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	pos := p.cur.Pos
	p.next() // consume 'var'
	decl := &ast.VariableDeclaration{Kind: ast.DeclVar, NodePos: pos}
	for {
		idTok := p.expect(token.Ident)
		d := &ast.Declarator{ID: &ast.Identifier{Name: idTok.Lexeme, NodePos: idTok.Pos}}
		if p.at(token.Assign) {
			p.next()
			d.Init = p.parseExpression(precAssign)
		}
		decl.Declarations = append(decl.Declarations, d)
		if p.at(token.Comma) {
			p.next()
			continue
		}
		break
	}
	return decl
}

func (p *Parser) parseFunctionDeclaration() *ast.FunctionDeclaration {
	pos := p.cur.Pos
	p.next() // 'function'
	nameTok := p.expect(token.Ident)
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FunctionDeclaration{
		ID:      &ast.Identifier{Name: nameTok.Lexeme, NodePos: nameTok.Pos},
		Params:  params,
		Body:    body,
		NodePos: pos,
	}
}

func (p *Parser) parseParams() []*ast.Identifier {
	p.expect(token.LParen)
	var params []*ast.Identifier
	for !p.at(token.RParen) && !p.at(token.EOF) {
		tok := p.expect(token.Ident)
		params = append(params, &ast.Identifier{Name: tok.Lexeme, NodePos: tok.Pos})
		if p.at(token.Comma) {
			p.next()
		}
	}
	p.expect(token.RParen)
	return params
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LParen)
	test := p.parseExpression(precLowest)
	p.expect(token.RParen)
	cons := p.parseStatement()
	var alt ast.Stmt
	if p.at(token.Else) {
		p.next()
		alt = p.parseStatement()
	}
	return &ast.IfStatement{Test: test, Consequent: cons, Alternate: alt, NodePos: pos}
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LParen)
	test := p.parseExpression(precLowest)
	p.expect(token.RParen)
	body := p.parseStatement()
	return &ast.WhileStatement{Test: test, Body: body, NodePos: pos}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	body := p.parseStatement()
	p.expect(token.While)
	p.expect(token.LParen)
	test := p.parseExpression(precLowest)
	p.expect(token.RParen)
	p.skipSemi()
	return &ast.DoWhileStatement{Body: body, Test: test, NodePos: pos}
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LParen)

	var initNode ast.Node
	if p.at(token.Var) {
		initNode = p.parseVariableDeclaration()
	} else if !p.at(token.Semicolon) {
		initNode = p.parseExpression(precLowest)
	}

	if p.at(token.In) {
		p.next()
		right := p.parseExpression(precLowest)
		p.expect(token.RParen)
		body := p.parseStatement()
		return &ast.ForInStatement{Left: initNode, Right: right, Body: body, NodePos: pos}
	}

	p.expect(token.Semicolon)
	var test ast.Expr
	if !p.at(token.Semicolon) {
		test = p.parseExpression(precLowest)
	}
	p.expect(token.Semicolon)
	var update ast.Expr
	if !p.at(token.RParen) {
		update = p.parseExpression(precLowest)
	}
	p.expect(token.RParen)
	body := p.parseStatement()
	return &ast.ForStatement{Init: initNode, Test: test, Update: update, Body: body, NodePos: pos}
}

func (p *Parser) parseTry() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	block := p.parseBlock()
	stmt := &ast.TryStatement{Block: block, NodePos: pos}
	if p.at(token.Catch) {
		p.next()
		clause := &ast.CatchClause{}
		if p.at(token.LParen) {
			p.next()
			tok := p.expect(token.Ident)
			clause.Param = &ast.Identifier{Name: tok.Lexeme, NodePos: tok.Pos}
			p.expect(token.RParen)
		}
		clause.Body = p.parseBlock()
		stmt.Handler = clause
	}
	if p.at(token.Finally) {
		p.next()
		stmt.Finalizer = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseSwitch() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LParen)
	disc := p.parseExpression(precLowest)
	p.expect(token.RParen)
	p.expect(token.LBrace)
	stmt := &ast.SwitchStatement{Discriminant: disc, NodePos: pos}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		c := &ast.SwitchCase{}
		if p.at(token.Case) {
			p.next()
			c.Test = p.parseExpression(precLowest)
		} else {
			p.expect(token.Default)
		}
		p.expect(token.Colon)
		for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) && !p.at(token.EOF) {
			if s := p.parseStatement(); s != nil {
				c.Consequent = append(c.Consequent, s)
			}
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	p.expect(token.RBrace)
	return stmt
}

// ---- Expressions ----

func (p *Parser) parseExpression(prec precedence) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for !p.at(token.Semicolon) && prec < p.curPrecedenceAfterAdvanceCheck() {
		left = p.parseInfix(left)
	}
	return left
}

// curPrecedenceAfterAdvanceCheck reports the precedence of the *upcoming*
// operator (p.cur is the token after `left`, since parsePrefix/parseInfix
// leave p.cur positioned on the operator to consider next).
func (p *Parser) curPrecedenceAfterAdvanceCheck() precedence {
	return p.curPrecedence()
}

func (p *Parser) parsePrefix() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Ident:
		name := p.cur.Lexeme
		p.next()
		return &ast.Identifier{Name: name, NodePos: pos}
	case token.Number:
		lit := p.cur.Lexeme
		p.next()
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf(pos, "invalid number literal %q", lit)
		}
		return &ast.NumericLiteral{Value: v, NodePos: pos}
	case token.String:
		lit := p.cur.Lexeme
		p.next()
		return &ast.StringLiteral{Value: lit, NodePos: pos}
	case token.TemplateStart:
		return p.parseTemplateLiteral()
	case token.Regex:
		lit := p.cur.Lexeme
		p.next()
		pattern, flags := splitRegexLexeme(lit)
		return &ast.RegExpLiteral{Pattern: pattern, Flags: flags, NodePos: pos}
	case token.True:
		p.next()
		return &ast.BooleanLiteral{Value: true, NodePos: pos}
	case token.False:
		p.next()
		return &ast.BooleanLiteral{Value: false, NodePos: pos}
	case token.Null:
		p.next()
		return &ast.NullLiteral{NodePos: pos}
	case token.Undefined:
		p.next()
		return &ast.UndefinedLiteral{NodePos: pos}
	case token.This:
		p.next()
		return &ast.ThisExpression{NodePos: pos}
	case token.LParen:
		p.next()
		expr := p.parseExpression(precLowest)
		if p.at(token.Comma) {
			seq := &ast.SequenceExpression{Expressions: []ast.Expr{expr}, NodePos: pos}
			for p.at(token.Comma) {
				p.next()
				seq.Expressions = append(seq.Expressions, p.parseExpression(precAssign))
			}
			expr = seq
		}
		p.expect(token.RParen)
		return expr
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	case token.Function:
		return p.parseFunctionExpression()
	case token.New:
		return p.parseNewExpression()
	case token.Bang, token.Minus, token.Plus, token.Tilde, token.Typeof:
		op := p.cur.Lexeme
		if p.cur.Kind == token.Typeof {
			op = "typeof"
		}
		p.next()
		arg := p.parseExpression(precUnary)
		return &ast.UnaryExpression{Operator: op, Argument: arg, NodePos: pos}
	case token.Inc, token.Dec:
		op := p.cur.Lexeme
		p.next()
		arg := p.parseExpression(precUnary)
		return &ast.UpdateExpression{Operator: op, Argument: arg, Prefix: true, NodePos: pos}
	default:
		p.errorf(pos, "unexpected token %s (%q) in expression", p.cur.Kind, p.cur.Lexeme)
		p.next()
		return nil
	}
}

func splitRegexLexeme(lit string) (pattern, flags string) {
	for i := len(lit) - 1; i >= 0; i-- {
		if lit[i] == '/' {
			return lit[:i], lit[i+1:]
		}
	}
	return lit, ""
}

func (p *Parser) parseTemplateLiteral() ast.Expr {
	pos := p.cur.Pos
	p.next() // consume TemplateStart
	tl := &ast.TemplateLiteral{NodePos: pos}
	for {
		switch p.cur.Kind {
		case token.StringPart:
			tl.Quasis = append(tl.Quasis, p.cur.Lexeme)
			p.next()
		case token.TemplateExprStart:
			if len(tl.Quasis) == len(tl.Expressions) {
				tl.Quasis = append(tl.Quasis, "")
			}
			p.next()
			expr := p.parseExpression(precLowest)
			tl.Expressions = append(tl.Expressions, expr)
			p.expect(token.TemplateExprEnd)
		case token.TemplateEnd:
			if len(tl.Quasis) == len(tl.Expressions) {
				tl.Quasis = append(tl.Quasis, "")
			}
			p.next()
			return tl
		default:
			p.errorf(p.cur.Pos, "unterminated template literal")
			return tl
		}
	}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	pos := p.cur.Pos
	p.expect(token.LBracket)
	arr := &ast.ArrayExpression{NodePos: pos}
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		arr.Elements = append(arr.Elements, p.parseExpression(precAssign))
		if p.at(token.Comma) {
			p.next()
		}
	}
	p.expect(token.RBracket)
	return arr
}

func (p *Parser) parseObjectLiteral() ast.Expr {
	pos := p.cur.Pos
	p.expect(token.LBrace)
	obj := &ast.ObjectExpression{NodePos: pos}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		prop := &ast.ObjectProperty{}
		if p.at(token.LBracket) {
			p.next()
			prop.Key = p.parseExpression(precLowest)
			p.expect(token.RBracket)
			prop.Computed = true
		} else if p.at(token.String) {
			prop.Key = &ast.StringLiteral{Value: p.cur.Lexeme, NodePos: p.cur.Pos}
			p.next()
		} else {
			tok := p.expect(token.Ident)
			prop.Key = &ast.Identifier{Name: tok.Lexeme, NodePos: tok.Pos}
		}
		p.expect(token.Colon)
		prop.Value = p.parseExpression(precAssign)
		obj.Properties = append(obj.Properties, prop)
		if p.at(token.Comma) {
			p.next()
		}
	}
	p.expect(token.RBrace)
	return obj
}

func (p *Parser) parseFunctionExpression() ast.Expr {
	pos := p.cur.Pos
	p.next() // 'function'
	var id *ast.Identifier
	if p.at(token.Ident) {
		id = &ast.Identifier{Name: p.cur.Lexeme, NodePos: p.cur.Pos}
		p.next()
	}
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FunctionExpression{ID: id, Params: params, Body: body, NodePos: pos}
}

func (p *Parser) parseNewExpression() ast.Expr {
	pos := p.cur.Pos
	p.next() // 'new'
	// precPostfix, not precCall: the callee chain (member access, then an
	// optional call) must still enter parseInfix when it meets a
	// precCall-level token, so the CallExpression unwrap below ever fires.
	callee := p.parseExpression(precPostfix)
	var args []ast.Expr
	if call, ok := callee.(*ast.CallExpression); ok {
		return &ast.NewExpression{Callee: call.Callee, Arguments: call.Arguments, NodePos: pos}
	}
	return &ast.NewExpression{Callee: callee, Arguments: args, NodePos: pos}
}

func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign,
		token.SlashAssign, token.PercentAssign, token.AndAssign, token.OrAssign,
		token.XorAssign, token.ShlAssign, token.ShrAssign, token.UshrAssign:
		op := assignOps[p.cur.Kind]
		p.next()
		value := p.parseExpression(precAssign - 1) // right-associative
		return &ast.AssignmentExpression{Operator: op, Target: left, Value: value, NodePos: pos}
	case token.Question:
		p.next()
		cons := p.parseExpression(precAssign)
		p.expect(token.Colon)
		alt := p.parseExpression(precAssign)
		return &ast.ConditionalExpression{Test: left, Consequent: cons, Alternate: alt, NodePos: pos}
	case token.AndAnd, token.OrOr:
		op := p.cur.Lexeme
		prec := p.curPrecedence()
		p.next()
		right := p.parseExpression(prec)
		return &ast.LogicalExpression{Operator: op, Left: left, Right: right, NodePos: pos}
	case token.LParen:
		return p.parseCall(left)
	case token.Dot:
		p.next()
		tok := p.expect(token.Ident)
		return &ast.MemberExpression{
			Object:   left,
			Property: &ast.Identifier{Name: tok.Lexeme, NodePos: tok.Pos},
			Computed: false,
			NodePos:  pos,
		}
	case token.LBracket:
		p.next()
		idx := p.parseExpression(precLowest)
		p.expect(token.RBracket)
		return &ast.MemberExpression{Object: left, Property: idx, Computed: true, NodePos: pos}
	case token.Inc, token.Dec:
		op := p.cur.Lexeme
		p.next()
		return &ast.UpdateExpression{Operator: op, Argument: left, Prefix: false, NodePos: pos}
	case token.In:
		p.next()
		right := p.parseExpression(precRelational)
		return &ast.BinaryExpression{Operator: "in", Left: left, Right: right, NodePos: pos}
	default:
		op := p.cur.Lexeme
		prec := p.curPrecedence()
		p.next()
		right := p.parseExpression(prec)
		return &ast.BinaryExpression{Operator: op, Left: left, Right: right, NodePos: pos}
	}
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	pos := p.cur.Pos
	p.expect(token.LParen)
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpression(precAssign))
		if p.at(token.Comma) {
			p.next()
		}
	}
	p.expect(token.RParen)
	return &ast.CallExpression{Callee: callee, Arguments: args, NodePos: pos}
}
