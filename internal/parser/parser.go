// Package parser builds an ast.Program from a token stream by recursive
// descent. The grammar is newline-separated statements with brace-delimited
// blocks; there is no operator precedence table, just a cascade of
// precedence levels (or > and > not > comparison > term > factor > unary).
package parser

import (
	"fmt"
	"strconv"

	"github.com/fallen-lang/fallen/internal/ast"
	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/token"
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	funcDepth  int
	blockDepth int
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t token.Type) error {
	if p.curToken.Type == token.ILLEGAL {
		return p.errorf("unexpected character %q", p.curToken.Lexeme)
	}
	if !p.curIs(t) {
		return p.errorf("expected %s, got %s", t, p.curToken.Type)
	}
	p.nextToken()
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("parse error at line %d: %s", p.curToken.Line, fmt.Sprintf(format, args...))
}

func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.nextToken()
	}
}

// Parse consumes the whole token stream and returns the program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for !p.curIs(token.EOF) {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		p.skipNewlines()
	}
	return prog, nil
}

// ParseExpression parses the input as a single expression followed by EOF.
// Used by the REPL's expression fallback; not part of the compiler contract.
func (p *Parser) ParseExpression() (ast.Expression, error) {
	p.skipNewlines()
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if !p.curIs(token.EOF) {
		return nil, p.errorf("unexpected %s after expression", p.curToken.Type)
	}
	return expr, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.FUNC:
		if p.blockDepth != 0 {
			return nil, p.errorf("func definitions are only allowed at top level")
		}
		return p.funcDef()
	case token.RETURN:
		if p.funcDepth == 0 {
			return nil, p.errorf("return used outside of a function")
		}
		return p.returnStatement()
	case token.IF:
		return p.ifStatement()
	case token.WHILE:
		return p.whileStatement()
	case token.FOR:
		return p.forStatement()
	case token.MATCH:
		return p.matchStatement()
	case token.IMPORT:
		return p.importStatement()
	case token.EXPORT:
		return p.exportStatement()
	case token.TRACE:
		return p.traceStatement()
	case token.REMOVE:
		return p.removeStatement()
	case token.STOP:
		line := p.curToken.Line
		p.nextToken()
		return &ast.Stop{Line: line}, nil
	case token.CONTINUE:
		line := p.curToken.Line
		p.nextToken()
		return &ast.Continue{Line: line}, nil
	case token.IDENT:
		return p.identStatement()
	case token.ILLEGAL:
		return nil, p.errorf("unexpected character %q", p.curToken.Lexeme)
	}
	return nil, p.errorf("unexpected %s at start of statement", p.curToken.Type)
}

// identStatement handles everything that starts with a bare name:
// typed assignment, call, index assignment, append.
func (p *Parser) identStatement() (ast.Statement, error) {
	name := p.curToken.Lexeme
	line := p.curToken.Line
	p.nextToken()

	if p.curToken.Type.IsTypeMarker() {
		tag := p.curToken.Type.TypeTag()
		p.nextToken()
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Name: name, TypeTag: tag, Value: value, Line: line}, nil
	}

	if p.curIs(token.LPAREN) {
		call, err := p.finishCall(name, line)
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Expr: call, Line: line}, nil
	}

	if p.curIs(token.LBRACKET) {
		p.nextToken()

		// name[] = expr appends
		if p.curIs(token.RBRACKET) {
			p.nextToken()
			if err := p.expect(token.ASSIGN); err != nil {
				return nil, err
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ast.Append{Name: name, Value: value, Line: line}, nil
		}

		index, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		if err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.IndexAssign{Name: name, Index: index, Value: value, Line: line}, nil
	}

	return nil, p.errorf("after %q, expected a type marker (=s/=i/=f/=b/=l/=d), '(' or '['", name)
}

func (p *Parser) returnStatement() (*ast.Return, error) {
	line := p.curToken.Line
	p.nextToken()
	if p.curIs(token.NEWLINE) || p.curIs(token.RBRACE) || p.curIs(token.EOF) {
		return &ast.Return{Line: line}, nil
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Value: value, Line: line}, nil
}

func (p *Parser) ifStatement() (*ast.If, error) {
	line := p.curToken.Line
	p.nextToken()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}

	// else may sit on the same line or the next one
	p.skipNewlines()

	stmt := &ast.If{Condition: cond, Then: then, Line: line}
	if p.curIs(token.ELSE) {
		p.nextToken()
		if p.curIs(token.IF) {
			// else-if chain: a nested If in the else branch
			nested, err := p.ifStatement()
			if err != nil {
				return nil, err
			}
			stmt.Else = nested
		} else {
			blk, err := p.block()
			if err != nil {
				return nil, err
			}
			stmt.Else = blk
		}
	}
	return stmt, nil
}

func (p *Parser) whileStatement() (*ast.While, error) {
	line := p.curToken.Line
	p.nextToken()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	stmt := &ast.While{Condition: cond, Body: body, Line: line}

	p.skipNewlines()
	if p.curIs(token.ELSE) {
		p.nextToken()
		blk, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = blk
	}
	return stmt, nil
}

func (p *Parser) forStatement() (*ast.For, error) {
	line := p.curToken.Line
	p.nextToken()
	if !p.curIs(token.IDENT) {
		return nil, p.errorf("expected loop variable after for")
	}
	varName := p.curToken.Lexeme
	p.nextToken()
	if err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iterable, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	stmt := &ast.For{Var: varName, Iterable: iterable, Body: body, Line: line}

	p.skipNewlines()
	if p.curIs(token.ELSE) {
		p.nextToken()
		blk, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = blk
	}
	return stmt, nil
}

func (p *Parser) matchStatement() (*ast.Match, error) {
	line := p.curToken.Line
	p.nextToken()
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	stmt := &ast.Match{Expr: expr, Line: line}

	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	p.skipNewlines()

	for !p.curIs(token.RBRACE) {
		if p.curIs(token.EOF) {
			return nil, p.errorf("unterminated match block")
		}
		if p.curIs(token.ELSE) {
			if stmt.Else != nil {
				return nil, p.errorf("match may have only one else block")
			}
			p.nextToken()
			blk, err := p.block()
			if err != nil {
				return nil, err
			}
			stmt.Else = blk
			p.skipNewlines()
			continue
		}

		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, ast.MatchCase{Literal: lit, Body: body})
		p.skipNewlines()
	}
	p.nextToken() // consume }
	return stmt, nil
}

func (p *Parser) importStatement() (*ast.Import, error) {
	line := p.curToken.Line
	p.nextToken()
	if !p.curIs(token.STRING) {
		return nil, p.errorf("expected a quoted path after import")
	}
	stmt := &ast.Import{Path: p.curToken.Lexeme, Line: line}
	p.nextToken()
	if p.curIs(token.AS) {
		p.nextToken()
		if !p.curIs(token.IDENT) {
			return nil, p.errorf("expected alias name after as")
		}
		stmt.Alias = p.curToken.Lexeme
		p.nextToken()
	}
	return stmt, nil
}

func (p *Parser) exportStatement() (*ast.Export, error) {
	line := p.curToken.Line
	p.nextToken()
	if !p.curIs(token.IDENT) {
		return nil, p.errorf("expected a name after export")
	}
	stmt := &ast.Export{Name: p.curToken.Lexeme, Line: line}
	p.nextToken()
	return stmt, nil
}

func (p *Parser) traceStatement() (*ast.Trace, error) {
	line := p.curToken.Line
	p.nextToken()
	if p.curIs(token.IDENT) && (p.curToken.Lexeme == "on" || p.curToken.Lexeme == "off") {
		enabled := p.curToken.Lexeme == "on"
		p.nextToken()
		return &ast.Trace{Enabled: enabled, Line: line}, nil
	}
	return nil, p.errorf("expected on or off after trace")
}

func (p *Parser) removeStatement() (*ast.Remove, error) {
	line := p.curToken.Line
	p.nextToken()
	if !p.curIs(token.IDENT) {
		return nil, p.errorf("expected a name after remove")
	}
	name := p.curToken.Lexeme
	p.nextToken()
	if err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	index, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.Remove{Name: name, Index: index, Line: line}, nil
}

func (p *Parser) block() (*ast.Block, error) {
	line := p.curToken.Line
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	p.blockDepth++
	defer func() { p.blockDepth-- }()

	blk := &ast.Block{Line: line}
	p.skipNewlines()
	for !p.curIs(token.RBRACE) {
		if p.curIs(token.EOF) {
			return nil, p.errorf("unterminated block")
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		blk.Statements = append(blk.Statements, stmt)
		p.skipNewlines()
	}
	p.nextToken() // consume }
	return blk, nil
}

func (p *Parser) funcDef() (*ast.FuncDef, error) {
	line := p.curToken.Line
	p.nextToken()
	if !p.curIs(token.IDENT) {
		return nil, p.errorf("expected function name after func")
	}
	fn := &ast.FuncDef{Name: p.curToken.Lexeme, Line: line}
	p.nextToken()

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	for !p.curIs(token.RPAREN) {
		if len(fn.Params) > 0 {
			if err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
		}
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
	}
	p.nextToken() // consume )

	if p.curToken.Type.IsTypeMarker() {
		fn.ReturnType = p.curToken.Type.TypeTag()
		p.nextToken()
	}

	p.funcDepth++
	body, err := p.block()
	p.funcDepth--
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// param parses "name =i" or "name =i : <default>".
func (p *Parser) param() (ast.Param, error) {
	if !p.curIs(token.IDENT) {
		return ast.Param{}, p.errorf("expected parameter name")
	}
	param := ast.Param{Name: p.curToken.Lexeme}
	p.nextToken()

	if !p.curToken.Type.IsTypeMarker() {
		return ast.Param{}, p.errorf("expected parameter type marker (=s/=i/=f/=b/=l/=d)")
	}
	param.TypeTag = p.curToken.Type.TypeTag()
	p.nextToken()

	if p.curIs(token.COLON) {
		p.nextToken()
		// Parsed as a full expression so the compiler can report
		// non-literal defaults itself.
		dflt, err := p.expr()
		if err != nil {
			return ast.Param{}, err
		}
		param.Default = dflt
	}
	return param, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) expr() (ast.Expression, error) {
	return p.orExpr()
}

func (p *Parser) orExpr() (ast.Expression, error) {
	node, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.OR) {
		line := p.curToken.Line
		p.nextToken()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Left: node, Op: "or", Right: right, Line: line}
	}
	return node, nil
}

func (p *Parser) andExpr() (ast.Expression, error) {
	node, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.AND) {
		line := p.curToken.Line
		p.nextToken()
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Left: node, Op: "and", Right: right, Line: line}
	}
	return node, nil
}

func (p *Parser) notExpr() (ast.Expression, error) {
	if p.curIs(token.NOT) {
		line := p.curToken.Line
		p.nextToken()
		expr, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "not", Expr: expr, Line: line}, nil
	}
	return p.comparison()
}

// comparison collects every consecutive comparison operator; two or more in
// a row form a short-circuiting chain (a < b < c).
func (p *Parser) comparison() (ast.Expression, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}

	line := p.curToken.Line
	var ops []string
	var rest []ast.Expression
	for isComparisonOp(p.curToken.Type) {
		op := p.curToken.Lexeme
		p.nextToken()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rest = append(rest, right)
	}

	switch len(ops) {
	case 0:
		return first, nil
	case 1:
		return &ast.Binary{Left: first, Op: ops[0], Right: rest[0], Line: line}, nil
	default:
		return &ast.CompareChain{First: first, Ops: ops, Rest: rest, Line: line}, nil
	}
}

func isComparisonOp(t token.Type) bool {
	switch t {
	case token.EQ, token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE:
		return true
	}
	return false
}

func (p *Parser) term() (ast.Expression, error) {
	node, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		op := p.curToken.Lexeme
		line := p.curToken.Line
		p.nextToken()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Left: node, Op: op, Right: right, Line: line}
	}
	return node, nil
}

func (p *Parser) factor() (ast.Expression, error) {
	node, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.STAR) || p.curIs(token.SLASH) {
		op := p.curToken.Lexeme
		line := p.curToken.Line
		p.nextToken()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Left: node, Op: op, Right: right, Line: line}
	}
	return node, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.curIs(token.MINUS) {
		line := p.curToken.Line
		p.nextToken()
		// Negative literals stay literals (defaults and match cases need
		// them); anything else desugars to 0 - x.
		switch p.curToken.Type {
		case token.INT, token.FLOAT:
			return p.negativeNumber(line)
		}
		expr, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Left: &ast.IntLiteral{Value: 0, Line: line}, Op: "-", Right: expr, Line: line}, nil
	}
	return p.primary()
}

func (p *Parser) negativeNumber(line int) (ast.Expression, error) {
	tok := p.curToken
	p.nextToken()
	if tok.Type == token.INT {
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Lexeme)
		}
		return &ast.IntLiteral{Value: -v, Line: line}, nil
	}
	v, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		return nil, p.errorf("invalid float literal %q", tok.Lexeme)
	}
	return &ast.FloatLiteral{Value: -v, Line: line}, nil
}

func (p *Parser) primary() (ast.Expression, error) {
	tok := p.curToken

	switch tok.Type {
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE:
		return p.literal()
	case token.IDENT:
		name := tok.Lexeme
		line := tok.Line
		p.nextToken()
		if p.curIs(token.LPAREN) {
			return p.finishCall(name, line)
		}
		if p.curIs(token.LBRACKET) {
			p.nextToken()
			key, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			return &ast.Index{Name: name, Key: key, Line: line}, nil
		}
		return &ast.Ident{Name: name, Line: line}, nil
	case token.LPAREN:
		p.nextToken()
		node, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return node, nil
	case token.LBRACKET:
		return p.listLiteral()
	case token.LBRACE:
		return p.dictLiteral()
	case token.ILLEGAL:
		return nil, p.errorf("unexpected character %q", tok.Lexeme)
	}
	return nil, p.errorf("unexpected %s in expression", tok.Type)
}

// literal parses exactly one literal token (plus a leading minus on numbers).
func (p *Parser) literal() (ast.Expression, error) {
	tok := p.curToken
	switch tok.Type {
	case token.MINUS:
		p.nextToken()
		if !p.curIs(token.INT) && !p.curIs(token.FLOAT) {
			return nil, p.errorf("expected a number after -")
		}
		return p.negativeNumber(tok.Line)
	case token.INT:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Lexeme)
		}
		return &ast.IntLiteral{Value: v, Line: tok.Line}, nil
	case token.FLOAT:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal %q", tok.Lexeme)
		}
		return &ast.FloatLiteral{Value: v, Line: tok.Line}, nil
	case token.STRING:
		p.nextToken()
		return &ast.StringLiteral{Value: tok.Lexeme, Line: tok.Line}, nil
	case token.TRUE:
		p.nextToken()
		return &ast.BoolLiteral{Value: true, Line: tok.Line}, nil
	case token.FALSE:
		p.nextToken()
		return &ast.BoolLiteral{Value: false, Line: tok.Line}, nil
	}
	return nil, p.errorf("expected a literal, got %s", tok.Type)
}

func (p *Parser) finishCall(name string, line int) (*ast.Call, error) {
	call := &ast.Call{Name: name, Line: line}
	p.nextToken() // consume (
	p.skipNewlines()

	sawNamed := false
	for !p.curIs(token.RPAREN) {
		if len(call.Args) > 0 {
			if err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
			p.skipNewlines()
		}

		var arg ast.Arg
		if p.curIs(token.IDENT) && p.peekIs(token.COLON) {
			arg.Name = p.curToken.Lexeme
			p.nextToken() // consume name
			p.nextToken() // consume :
			sawNamed = true
		} else if sawNamed {
			return nil, p.errorf("positional arguments cannot follow named arguments")
		}

		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		arg.Value = value
		call.Args = append(call.Args, arg)
		p.skipNewlines()
	}
	p.nextToken() // consume )
	return call, nil
}

func (p *Parser) listLiteral() (*ast.ListLiteral, error) {
	lit := &ast.ListLiteral{Line: p.curToken.Line}
	p.nextToken() // consume [
	p.skipNewlines()
	for !p.curIs(token.RBRACKET) {
		if len(lit.Items) > 0 {
			if err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
			p.skipNewlines()
		}
		item, err := p.expr()
		if err != nil {
			return nil, err
		}
		lit.Items = append(lit.Items, item)
		p.skipNewlines()
	}
	p.nextToken() // consume ]
	return lit, nil
}

func (p *Parser) dictLiteral() (*ast.DictLiteral, error) {
	lit := &ast.DictLiteral{Line: p.curToken.Line}
	p.nextToken() // consume {
	p.skipNewlines()
	for !p.curIs(token.RBRACE) {
		if len(lit.Pairs) > 0 {
			if err := p.expect(token.COMMA); err != nil {
				return nil, err
			}
			p.skipNewlines()
		}
		if !p.curIs(token.STRING) {
			return nil, p.errorf("dict keys must be string literals")
		}
		key := &ast.StringLiteral{Value: p.curToken.Lexeme, Line: p.curToken.Line}
		p.nextToken()
		if err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		lit.Pairs = append(lit.Pairs, ast.DictPair{Key: key, Value: value})
		p.skipNewlines()
	}
	p.nextToken() // consume }
	return lit, nil
}
