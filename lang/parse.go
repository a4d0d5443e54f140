// Package lang implements the lexer-facing entry point and recursive
// descent parser for this module's scripting language. It is a narrow
// collaborator consumed by the compiler: Parse turns source text into an
// ast.Program and nothing more.
package lang

import (
	"fmt"

	"github.com/vexra/snapjs/ast"
	"github.com/vexra/snapjs/internal/lexer"
	"github.com/vexra/snapjs/internal/token"
)

const (
	_ int = iota
	lowest
	assignPrec
	equalsPrec
	comparePrec
	sumPrec
	productPrec
	callPrec
)

var precedences = map[token.Type]int{
	token.EQ:       equalsPrec,
	token.NOT_EQ:   equalsPrec,
	token.LT:       comparePrec,
	token.LT_EQ:    comparePrec,
	token.GT:       comparePrec,
	token.GT_EQ:    comparePrec,
	token.PLUS:     sumPrec,
	token.MINUS:    sumPrec,
	token.ASTERISK: productPrec,
	token.SLASH:    productPrec,
	token.PERCENT:  productPrec,
	token.LPAREN:   callPrec,
	token.DOT:      callPrec,
}

// Parser turns a token stream into an ast.Program.
type Parser struct {
	l         *lexer.Lexer
	cur, peek token.Token
	errors    []string
}

// Parse lexes and parses source into a Program. The filename is recorded in
// each token's position; parse error messages carry only the line number.
func Parse(source, filename string) (*ast.Program, error) {
	p := &Parser{l: lexer.New(source, filename)}
	p.cur = p.l.NextToken()
	p.peek = p.l.NextToken()

	program := &ast.Program{}
	for p.cur.Type != token.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.next()
	}
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse error: %s", p.errors[0])
	}
	return program, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *Parser) expect(t token.Type) bool {
	if p.peek.Type != t {
		p.errorf("line %d: expected %s, got %s", p.peek.Position.Line, t, p.peek.Type)
		return false
	}
	p.next()
	return true
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.VAR:
		return p.parseVarStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.FUNCTION:
		return p.parseFunctionDeclaration()
	case token.CLASS:
		return p.parseClassDeclaration()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseVarStatement() ast.Statement {
	stmt := &ast.VarStatement{Token: p.cur}
	if !p.expect(token.IDENT) {
		return nil
	}
	stmt.Name = p.cur.Literal
	if !p.expect(token.ASSIGN) {
		return nil
	}
	p.next()
	stmt.Value = p.parseExpression(lowest)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.cur}
	p.next()
	if p.cur.Type != token.SEMICOLON && p.cur.Type != token.RBRACE {
		stmt.Value = p.parseExpression(lowest)
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.cur}
	p.next()
	stmt.Value = p.parseExpression(lowest)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.cur}
	stmt.Expression = p.parseExpression(lowest)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) skipSemicolon() {
	if p.peek.Type == token.SEMICOLON {
		p.next()
	}
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.cur}
	p.next() // consume '{'
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.next()
	}
	return block
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.cur}
	if !p.expect(token.LPAREN) {
		return nil
	}
	p.next()
	stmt.Init = p.parseStatement()
	p.next() // move past init's trailing ';'

	stmt.Cond = p.parseExpression(lowest)
	if !p.expect(token.SEMICOLON) {
		return nil
	}
	p.next()

	stmt.Post = p.parseExpressionStatement()
	if !p.expect(token.RPAREN) {
		return nil
	}

	if p.peek.Type == token.LBRACE {
		p.next()
		stmt.Body = p.parseBlockStatement()
	} else {
		p.next()
		single := p.parseStatement()
		stmt.Body = &ast.BlockStatement{Token: stmt.Token, Statements: []ast.Statement{single}}
	}
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.cur}
	if !p.expect(token.LBRACE) {
		return nil
	}
	stmt.TryBlock = p.parseBlockStatement()
	if !p.expect(token.CATCH) {
		return nil
	}
	if !p.expect(token.LPAREN) {
		return nil
	}
	if !p.expect(token.IDENT) {
		return nil
	}
	stmt.CatchParam = p.cur.Literal
	if !p.expect(token.RPAREN) {
		return nil
	}
	if !p.expect(token.LBRACE) {
		return nil
	}
	stmt.CatchBlock = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	stmt := &ast.FunctionDeclaration{Token: p.cur}
	if !p.expect(token.IDENT) {
		return nil
	}
	stmt.Name = p.cur.Literal
	if !p.expect(token.LPAREN) {
		return nil
	}
	stmt.Params = p.parseParamList()
	if !p.expect(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseParamList() []string {
	var params []string
	if p.peek.Type == token.RPAREN {
		p.next()
		return params
	}
	p.next()
	params = append(params, p.cur.Literal)
	for p.peek.Type == token.COMMA {
		p.next()
		p.next()
		params = append(params, p.cur.Literal)
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseClassDeclaration() ast.Statement {
	stmt := &ast.ClassDeclaration{Token: p.cur}
	if !p.expect(token.IDENT) {
		return nil
	}
	stmt.Name = p.cur.Literal
	if !p.expect(token.LBRACE) {
		return nil
	}
	p.next()
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		method := &ast.FunctionDeclaration{Token: p.cur}
		if p.cur.Type != token.IDENT {
			p.errorf("line %d: expected method name, got %s", p.cur.Position.Line, p.cur.Type)
			return nil
		}
		method.Name = p.cur.Literal
		if !p.expect(token.LPAREN) {
			return nil
		}
		method.Params = p.parseParamList()
		if !p.expect(token.LBRACE) {
			return nil
		}
		method.Body = p.parseBlockStatement()
		stmt.Methods = append(stmt.Methods, method)
		p.next()
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	left := p.parsePrefix()
	for p.peek.Type != token.SEMICOLON && precedence < precedenceOf(p.peek.Type) {
		p.next()
		left = p.parseInfix(left)
	}
	return left
}

func precedenceOf(t token.Type) int {
	if prec, ok := precedences[t]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) parsePrefix() ast.Expression {
	switch p.cur.Type {
	case token.IDENT:
		return p.parseIdentifierOrAssignOrIncrement()
	case token.INT:
		return p.parseIntLiteral()
	case token.FLOAT:
		return p.parseFloatLiteral()
	case token.STRING:
		return &ast.StringLiteral{Token: p.cur, Value: p.cur.Literal}
	case token.TRUE, token.FALSE:
		return &ast.BoolLiteral{Token: p.cur, Value: p.cur.Type == token.TRUE}
	case token.NIL:
		return &ast.NilLiteral{Token: p.cur}
	case token.LPAREN:
		p.next()
		expr := p.parseExpression(lowest)
		p.expect(token.RPAREN)
		return expr
	case token.NEW:
		return p.parseNewExpression()
	default:
		p.errorf("line %d: unexpected token %s", p.cur.Position.Line, p.cur.Type)
		return nil
	}
}

func (p *Parser) parseIdentifierOrAssignOrIncrement() ast.Expression {
	tok := p.cur
	name := p.cur.Literal
	if p.peek.Type == token.ASSIGN {
		p.next()
		p.next()
		value := p.parseExpression(lowest)
		return &ast.AssignExpression{Token: tok, Name: name, Value: value}
	}
	if p.peek.Type == token.PLUS_PLUS {
		p.next()
		return &ast.IncrementExpression{Token: tok, Name: name}
	}
	return &ast.Identifier{Token: tok, Name: name}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	var value int64
	for _, c := range p.cur.Literal {
		value = value*10 + int64(c-'0')
	}
	return &ast.IntLiteral{Token: p.cur, Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	var value float64
	var frac float64 = 1
	seenDot := false
	for _, c := range p.cur.Literal {
		if c == '.' {
			seenDot = true
			continue
		}
		d := float64(c - '0')
		if !seenDot {
			value = value*10 + d
		} else {
			frac *= 10
			value += d / frac
		}
	}
	return &ast.FloatLiteral{Token: p.cur, Value: value}
}

func (p *Parser) parseNewExpression() ast.Expression {
	tok := p.cur
	if !p.expect(token.IDENT) {
		return nil
	}
	expr := &ast.NewExpression{Token: tok, ClassName: p.cur.Literal}
	if !p.expect(token.LPAREN) {
		return nil
	}
	expr.Args = p.parseArgList()
	return expr
}

func (p *Parser) parseArgList() []ast.Expression {
	var args []ast.Expression
	if p.peek.Type == token.RPAREN {
		p.next()
		return args
	}
	p.next()
	args = append(args, p.parseExpression(lowest))
	for p.peek.Type == token.COMMA {
		p.next()
		p.next()
		args = append(args, p.parseExpression(lowest))
	}
	p.expect(token.RPAREN)
	return args
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	switch p.cur.Type {
	case token.LPAREN:
		return p.parseCallExpression(left)
	case token.DOT:
		tok := p.cur
		if !p.expect(token.IDENT) {
			return nil
		}
		return &ast.AttrExpression{Token: tok, Object: left, Name: p.cur.Literal}
	default:
		tok := p.cur
		operator := string(p.cur.Type)
		precedence := precedenceOf(p.cur.Type)
		p.next()
		right := p.parseExpression(precedence)
		return &ast.BinaryExpression{Token: tok, Left: left, Operator: operator, Right: right}
	}
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	tok := p.cur
	args := p.parseArgList()
	return &ast.CallExpression{Token: tok, Function: fn, Args: args}
}
