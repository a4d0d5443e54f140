// Package compiler turns an ast.Program into a *bytecode.Code tree.
//
// Compilation is two-pass, mirroring the donor compiler's own strategy:
// pass one walks the top-level statements and reserves a global slot for
// every var/function/class declaration so later statements (and the
// declarations themselves, for recursive functions) can reference a name
// before its defining statement has been compiled; pass two emits the
// actual instructions.
package compiler

import (
	"fmt"

	"github.com/vexra/snapjs/ast"
	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/internal/token"
	"github.com/vexra/snapjs/op"
)

// Config carries compile-time settings, including the names of globals
// supplied by the host environment (e.g. "print") rather than defined by
// the script itself.
type Config struct {
	Filename    string
	Source      string
	GlobalNames []string
}

// Compiler holds the state threaded through compilation of one program.
type Compiler struct {
	filename    string
	source      string
	globalNames []string
	globalIndex map[string]int
	envKeys     []string
}

// Compile compiles a parsed program into the root code block.
func Compile(program *ast.Program, cfg *Config) (*bytecode.Code, error) {
	c := &Compiler{
		filename:    cfg.Filename,
		source:      cfg.Source,
		globalIndex: make(map[string]int),
	}
	for _, name := range cfg.GlobalNames {
		c.declareGlobal(name)
		c.envKeys = append(c.envKeys, name)
	}
	return c.compileProgram(program)
}

func (c *Compiler) declareGlobal(name string) int {
	if idx, ok := c.globalIndex[name]; ok {
		return idx
	}
	idx := len(c.globalNames)
	c.globalNames = append(c.globalNames, name)
	c.globalIndex[name] = idx
	return idx
}

// scope tracks local variable slots for one function body. The root
// program has no scope (isRoot == true): its "var" declarations become
// globals instead.
type scope struct {
	isRoot     bool
	locals     map[string]int
	localNames []string
}

func newFunctionScope() *scope {
	return &scope{locals: make(map[string]int)}
}

func (s *scope) declareLocal(name string) int {
	if idx, ok := s.locals[name]; ok {
		return idx
	}
	idx := len(s.localNames)
	s.locals[name] = idx
	s.localNames = append(s.localNames, name)
	return idx
}

// builder accumulates the instructions and tables for one code block as it
// is compiled.
type builder struct {
	name         string
	isNamed      bool
	instructions []op.Code
	constants    []any
	locations    []bytecode.SourceLocation
	children     []*bytecode.Code
	handlers     []bytecode.ExceptionHandler
	maxCallArgs  int
}

func newBuilder(name string, isNamed bool) *builder {
	return &builder{name: name, isNamed: isNamed}
}

func (b *builder) addConstant(v any) int {
	b.constants = append(b.constants, v)
	return len(b.constants) - 1
}

func (b *builder) emit(pos token.Position, code op.Code, operands ...int) int {
	ip := len(b.instructions)
	loc := bytecode.SourceLocation{Line: pos.Line, Column: pos.Column}
	b.instructions = append(b.instructions, code)
	b.locations = append(b.locations, loc)
	for _, operand := range operands {
		b.instructions = append(b.instructions, op.Code(operand))
		b.locations = append(b.locations, loc)
	}
	return ip
}

// patchForwardJump sets the operand of the jump instruction at ip so that it
// lands on the next instruction to be emitted.
func (b *builder) patchForwardJump(ip int) {
	target := len(b.instructions)
	offset := target - (ip + 2)
	b.instructions[ip+1] = op.Code(offset)
}

// emitBackwardJump emits a JumpBackward from the current position to target.
func (b *builder) emitBackwardJump(pos token.Position, target int) {
	ip := len(b.instructions) + 2
	b.emit(pos, op.JumpBackward, ip-target)
}

func (b *builder) trackCallArgs(n int) {
	if n > b.maxCallArgs {
		b.maxCallArgs = n
	}
}

func (c *Compiler) compileProgram(program *ast.Program) (*bytecode.Code, error) {
	c.collectTopLevelDeclarations(program.Statements)

	root := newBuilder("", false)
	rootScope := &scope{isRoot: true}

	for _, stmt := range program.Statements {
		if err := c.compileStatement(root, rootScope, stmt); err != nil {
			return nil, err
		}
	}
	root.emit(token.Position{}, op.Halt)

	return bytecode.NewCode(bytecode.CodeParams{
		ID:                "root",
		Children:          root.children,
		Instructions:      root.instructions,
		Constants:         root.constants,
		Source:            c.source,
		Filename:          c.filename,
		Locations:         root.locations,
		MaxCallArgs:       root.maxCallArgs,
		GlobalNames:       c.globalNames,
		GlobalCount:       len(c.globalNames),
		EnvKeys:           c.envKeys,
		ExceptionHandlers: root.handlers,
	}), nil
}

func (c *Compiler) collectTopLevelDeclarations(stmts []ast.Statement) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarStatement:
			c.declareGlobal(s.Name)
		case *ast.FunctionDeclaration:
			c.declareGlobal(s.Name)
		case *ast.ClassDeclaration:
			c.declareGlobal(s.Name)
		}
	}
}

func (c *Compiler) compileStatement(b *builder, sc *scope, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.VarStatement:
		if err := c.compileExpression(b, sc, s.Value); err != nil {
			return err
		}
		c.emitStore(b, sc, s.Token.Position, s.Name, true)
		return nil

	case *ast.ExpressionStatement:
		if err := c.compileExpression(b, sc, s.Expression); err != nil {
			return err
		}
		b.emit(s.Token.Position, op.PopTop)
		return nil

	case *ast.ReturnStatement:
		if s.Value != nil {
			if err := c.compileExpression(b, sc, s.Value); err != nil {
				return err
			}
		} else {
			b.emit(s.Token.Position, op.Nil)
		}
		b.emit(s.Token.Position, op.ReturnValue)
		return nil

	case *ast.ThrowStatement:
		if err := c.compileExpression(b, sc, s.Value); err != nil {
			return err
		}
		b.emit(s.Token.Position, op.Throw)
		return nil

	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			if err := c.compileStatement(b, sc, inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.ForStatement:
		return c.compileFor(b, sc, s)

	case *ast.TryStatement:
		return c.compileTry(b, sc, s)

	case *ast.FunctionDeclaration:
		return c.compileFunctionDeclaration(b, s)

	case *ast.ClassDeclaration:
		return c.compileClassDeclaration(b, s)

	default:
		return fmt.Errorf("compiler: unsupported statement %T", stmt)
	}
}

// emitStore compiles a store of the top-of-stack value into name, declaring
// it first (as a global at root scope, as a local otherwise) if declareIfNew.
func (c *Compiler) emitStore(b *builder, sc *scope, pos token.Position, name string, declareIfNew bool) {
	if sc.isRoot {
		idx, ok := c.globalIndex[name]
		if !ok && declareIfNew {
			idx = c.declareGlobal(name)
		}
		b.emit(pos, op.StoreGlobal, idx)
		return
	}
	idx, ok := sc.locals[name]
	if !ok && declareIfNew {
		idx = sc.declareLocal(name)
	}
	b.emit(pos, op.StoreFast, idx)
}

func (c *Compiler) emitLoad(b *builder, sc *scope, pos token.Position, name string) error {
	if !sc.isRoot {
		if idx, ok := sc.locals[name]; ok {
			b.emit(pos, op.LoadFast, idx)
			return nil
		}
	}
	if idx, ok := c.globalIndex[name]; ok {
		b.emit(pos, op.LoadGlobal, idx)
		return nil
	}
	return fmt.Errorf("compiler: undefined name %q at %d:%d", name, pos.Line, pos.Column)
}

func (c *Compiler) compileExpression(b *builder, sc *scope, expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		b.emit(e.Token.Position, op.LoadConst, b.addConstant(e.Value))
		return nil

	case *ast.FloatLiteral:
		b.emit(e.Token.Position, op.LoadConst, b.addConstant(e.Value))
		return nil

	case *ast.StringLiteral:
		b.emit(e.Token.Position, op.LoadConst, b.addConstant(e.Value))
		return nil

	case *ast.BoolLiteral:
		if e.Value {
			b.emit(e.Token.Position, op.True)
		} else {
			b.emit(e.Token.Position, op.False)
		}
		return nil

	case *ast.NilLiteral:
		b.emit(e.Token.Position, op.Nil)
		return nil

	case *ast.Identifier:
		return c.emitLoad(b, sc, e.Token.Position, e.Name)

	case *ast.BinaryExpression:
		return c.compileBinaryExpression(b, sc, e)

	case *ast.AssignExpression:
		if err := c.compileExpression(b, sc, e.Value); err != nil {
			return err
		}
		b.emit(e.Token.Position, op.Copy, 1)
		c.emitStore(b, sc, e.Token.Position, e.Name, false)
		return nil

	case *ast.IncrementExpression:
		if err := c.emitLoad(b, sc, e.Token.Position, e.Name); err != nil {
			return err
		}
		b.emit(e.Token.Position, op.LoadConst, b.addConstant(int64(1)))
		b.emit(e.Token.Position, op.BinaryOp, int(op.Add))
		b.emit(e.Token.Position, op.Copy, 1)
		c.emitStore(b, sc, e.Token.Position, e.Name, false)
		return nil

	case *ast.CallExpression:
		if err := c.compileExpression(b, sc, e.Function); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.compileExpression(b, sc, arg); err != nil {
				return err
			}
		}
		b.trackCallArgs(len(e.Args))
		b.emit(e.Token.Position, op.Call, len(e.Args))
		return nil

	case *ast.AttrExpression:
		if err := c.compileExpression(b, sc, e.Object); err != nil {
			return err
		}
		b.emit(e.Token.Position, op.LoadConst, b.addConstant(e.Name))
		b.emit(e.Token.Position, op.BinarySubscr)
		return nil

	case *ast.NewExpression:
		if err := c.emitLoad(b, sc, e.Token.Position, e.ClassName); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.compileExpression(b, sc, arg); err != nil {
				return err
			}
		}
		b.trackCallArgs(len(e.Args))
		b.emit(e.Token.Position, op.Call, len(e.Args))
		return nil

	default:
		return fmt.Errorf("compiler: unsupported expression %T", expr)
	}
}

func (c *Compiler) compileBinaryExpression(b *builder, sc *scope, e *ast.BinaryExpression) error {
	if err := c.compileExpression(b, sc, e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(b, sc, e.Right); err != nil {
		return err
	}
	switch e.Operator {
	case "+":
		b.emit(e.Token.Position, op.BinaryOp, int(op.Add))
	case "-":
		b.emit(e.Token.Position, op.BinaryOp, int(op.Subtract))
	case "*":
		b.emit(e.Token.Position, op.BinaryOp, int(op.Multiply))
	case "/":
		b.emit(e.Token.Position, op.BinaryOp, int(op.Divide))
	case "%":
		b.emit(e.Token.Position, op.BinaryOp, int(op.Modulo))
	case "<":
		b.emit(e.Token.Position, op.CompareOp, int(op.LessThan))
	case "<=":
		b.emit(e.Token.Position, op.CompareOp, int(op.LessThanOrEqual))
	case ">":
		b.emit(e.Token.Position, op.CompareOp, int(op.GreaterThan))
	case ">=":
		b.emit(e.Token.Position, op.CompareOp, int(op.GreaterThanOrEqual))
	case "==":
		b.emit(e.Token.Position, op.CompareOp, int(op.Equal))
	case "!=":
		b.emit(e.Token.Position, op.CompareOp, int(op.NotEqual))
	default:
		return fmt.Errorf("compiler: unsupported operator %q", e.Operator)
	}
	return nil
}

func (c *Compiler) compileFor(b *builder, sc *scope, s *ast.ForStatement) error {
	if err := c.compileStatement(b, sc, s.Init); err != nil {
		return err
	}
	condIP := len(b.instructions)
	if err := c.compileExpression(b, sc, s.Cond); err != nil {
		return err
	}
	exitJump := b.emit(s.Token.Position, op.PopJumpForwardIfFalse, 0)

	if err := c.compileStatement(b, sc, s.Body); err != nil {
		return err
	}
	if err := c.compileStatement(b, sc, s.Post); err != nil {
		return err
	}
	b.emitBackwardJump(s.Token.Position, condIP)
	b.patchForwardJump(exitJump)
	return nil
}

func (c *Compiler) compileTry(b *builder, sc *scope, s *ast.TryStatement) error {
	tryStart := len(b.instructions)
	if err := c.compileStatement(b, sc, s.TryBlock); err != nil {
		return err
	}
	tryEnd := len(b.instructions)
	skipCatch := b.emit(s.Token.Position, op.JumpForward, 0)

	catchStart := len(b.instructions)
	catchVarIdx := -1
	if !sc.isRoot {
		catchVarIdx = sc.declareLocal(s.CatchParam)
	}
	c.emitStore(b, sc, s.Token.Position, s.CatchParam, true)
	if err := c.compileStatement(b, sc, s.CatchBlock); err != nil {
		return err
	}
	b.patchForwardJump(skipCatch)

	b.handlers = append(b.handlers, bytecode.ExceptionHandler{
		TryStart:    tryStart,
		TryEnd:      tryEnd,
		CatchStart:  catchStart,
		CatchVarIdx: catchVarIdx,
	})
	return nil
}

func (c *Compiler) compileFunctionDeclaration(b *builder, s *ast.FunctionDeclaration) error {
	fnCode, err := c.compileFunctionBody(s.Name, s.Params, s.Body)
	if err != nil {
		return err
	}
	b.children = append(b.children, fnCode)
	fn := bytecode.NewFunction(bytecode.FunctionParams{
		ID:         s.Name,
		Name:       s.Name,
		Parameters: s.Params,
		Code:       fnCode,
	})
	idx := b.addConstant(fn)
	b.emit(s.Token.Position, op.LoadConst, idx)
	c.emitStore(b, &scope{isRoot: true}, s.Token.Position, s.Name, false)
	return nil
}

func (c *Compiler) compileFunctionBody(name string, params []string, body *ast.BlockStatement) (*bytecode.Code, error) {
	fb := newBuilder(name, name != "")
	fsc := newFunctionScope()
	for _, p := range params {
		fsc.declareLocal(p)
	}
	for _, stmt := range body.Statements {
		if err := c.compileStatement(fb, fsc, stmt); err != nil {
			return nil, err
		}
	}
	fb.emit(token.Position{}, op.Nil)
	fb.emit(token.Position{}, op.ReturnValue)

	return bytecode.NewCode(bytecode.CodeParams{
		ID:                name,
		Name:              name,
		IsNamed:           name != "",
		Children:          fb.children,
		Instructions:      fb.instructions,
		Constants:         fb.constants,
		Filename:          c.filename,
		Locations:         fb.locations,
		MaxCallArgs:       fb.maxCallArgs,
		LocalCount:        len(fsc.localNames),
		LocalNames:        fsc.localNames,
		ExceptionHandlers: fb.handlers,
	}), nil
}

func (c *Compiler) compileClassDeclaration(b *builder, s *ast.ClassDeclaration) error {
	ctor := newBuilder(s.Name, true)
	ctor.emit(s.Token.Position, op.BuildMap, 0)
	for _, method := range s.Methods {
		methodCode, err := c.compileFunctionBody(method.Name, method.Params, method.Body)
		if err != nil {
			return err
		}
		ctor.children = append(ctor.children, methodCode)
		methodFn := bytecode.NewFunction(bytecode.FunctionParams{
			ID:         s.Name + "." + method.Name,
			Name:       method.Name,
			Parameters: method.Params,
			Code:       methodCode,
		})
		ctor.emit(method.Token.Position, op.LoadConst, ctor.addConstant(method.Name))
		ctor.emit(method.Token.Position, op.LoadConst, ctor.addConstant(methodFn))
		ctor.emit(method.Token.Position, op.MapSet)
	}
	ctor.emit(s.Token.Position, op.ReturnValue)

	ctorCode := bytecode.NewCode(bytecode.CodeParams{
		ID:           s.Name,
		Name:         s.Name,
		IsNamed:      true,
		Children:     ctor.children,
		Instructions: ctor.instructions,
		Constants:    ctor.constants,
		Filename:     c.filename,
		Locations:    ctor.locations,
		MaxCallArgs:  ctor.maxCallArgs,
	})

	b.children = append(b.children, ctorCode)
	ctorFn := bytecode.NewFunction(bytecode.FunctionParams{
		ID:   s.Name,
		Name: s.Name,
		Code: ctorCode,
	})
	idx := b.addConstant(ctorFn)
	b.emit(s.Token.Position, op.LoadConst, idx)
	c.emitStore(b, &scope{isRoot: true}, s.Token.Position, s.Name, false)
	return nil
}
