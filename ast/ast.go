// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the compiler.
package ast

import "github.com/vexra/snapjs/internal/token"

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Position
}

// Statement is implemented by every statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by every expression node.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every parsed source file.
type Program struct {
	Statements []Statement
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) == 0 {
		return token.Position{}
	}
	return p.Statements[0].Pos()
}

// VarStatement is `var name = value;`.
type VarStatement struct {
	Token token.Token
	Name  string
	Value Expression
}

func (s *VarStatement) statementNode()       {}
func (s *VarStatement) Pos() token.Position { return s.Token.Position }

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (s *ExpressionStatement) statementNode()       {}
func (s *ExpressionStatement) Pos() token.Position { return s.Token.Position }

// ReturnStatement is `return value;`.
type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (s *ReturnStatement) statementNode()       {}
func (s *ReturnStatement) Pos() token.Position { return s.Token.Position }

// ThrowStatement is `throw value;`.
type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (s *ThrowStatement) statementNode()       {}
func (s *ThrowStatement) Pos() token.Position { return s.Token.Position }

// BlockStatement is a brace-delimited sequence of statements.
type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (s *BlockStatement) statementNode()       {}
func (s *BlockStatement) Pos() token.Position { return s.Token.Position }

// ForStatement is a C-style for loop.
type ForStatement struct {
	Token token.Token
	Init  Statement
	Cond  Expression
	Post  Statement
	Body  *BlockStatement
}

func (s *ForStatement) statementNode()       {}
func (s *ForStatement) Pos() token.Position { return s.Token.Position }

// TryStatement is `try { ... } catch (name) { ... }`.
type TryStatement struct {
	Token      token.Token
	TryBlock   *BlockStatement
	CatchParam string
	CatchBlock *BlockStatement
}

func (s *TryStatement) statementNode()       {}
func (s *TryStatement) Pos() token.Position { return s.Token.Position }

// FunctionDeclaration is `function name(params) { body }`.
type FunctionDeclaration struct {
	Token  token.Token
	Name   string
	Params []string
	Body   *BlockStatement
}

func (s *FunctionDeclaration) statementNode()       {}
func (s *FunctionDeclaration) Pos() token.Position { return s.Token.Position }

// ClassDeclaration is `class Name { method(params) { body } ... }`.
type ClassDeclaration struct {
	Token   token.Token
	Name    string
	Methods []*FunctionDeclaration
}

func (s *ClassDeclaration) statementNode()       {}
func (s *ClassDeclaration) Pos() token.Position { return s.Token.Position }

// Identifier references a variable by name.
type Identifier struct {
	Token token.Token
	Name  string
}

func (e *Identifier) expressionNode()      {}
func (e *Identifier) Pos() token.Position { return e.Token.Position }

// IntLiteral is an integer constant.
type IntLiteral struct {
	Token token.Token
	Value int64
}

func (e *IntLiteral) expressionNode()      {}
func (e *IntLiteral) Pos() token.Position { return e.Token.Position }

// FloatLiteral is a floating-point constant.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (e *FloatLiteral) expressionNode()      {}
func (e *FloatLiteral) Pos() token.Position { return e.Token.Position }

// StringLiteral is a string constant.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (e *StringLiteral) expressionNode()      {}
func (e *StringLiteral) Pos() token.Position { return e.Token.Position }

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (e *BoolLiteral) expressionNode()      {}
func (e *BoolLiteral) Pos() token.Position { return e.Token.Position }

// NilLiteral is `nil`.
type NilLiteral struct {
	Token token.Token
}

func (e *NilLiteral) expressionNode()      {}
func (e *NilLiteral) Pos() token.Position { return e.Token.Position }

// BinaryExpression is `left op right`.
type BinaryExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (e *BinaryExpression) expressionNode()      {}
func (e *BinaryExpression) Pos() token.Position { return e.Token.Position }

// AssignExpression is `name = value`.
type AssignExpression struct {
	Token token.Token
	Name  string
	Value Expression
}

func (e *AssignExpression) expressionNode()      {}
func (e *AssignExpression) Pos() token.Position { return e.Token.Position }

// IncrementExpression is `name++`.
type IncrementExpression struct {
	Token token.Token
	Name  string
}

func (e *IncrementExpression) expressionNode()      {}
func (e *IncrementExpression) Pos() token.Position { return e.Token.Position }

// CallExpression is `function(args...)`.
type CallExpression struct {
	Token    token.Token
	Function Expression
	Args     []Expression
}

func (e *CallExpression) expressionNode()      {}
func (e *CallExpression) Pos() token.Position { return e.Token.Position }

// AttrExpression is `object.name`.
type AttrExpression struct {
	Token  token.Token
	Object Expression
	Name   string
}

func (e *AttrExpression) expressionNode()      {}
func (e *AttrExpression) Pos() token.Position { return e.Token.Position }

// NewExpression is `new ClassName(args...)`.
type NewExpression struct {
	Token     token.Token
	ClassName string
	Args      []Expression
}

func (e *NewExpression) expressionNode()      {}
func (e *NewExpression) Pos() token.Position { return e.Token.Position }
