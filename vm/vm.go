// Package vm executes a compiled code tree. It is the second narrow
// collaborator (alongside compiler) that the snapshot codec hands control
// to once a *bytecode.Code has been produced or restored.
package vm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/object"
	"github.com/vexra/snapjs/op"
)

// thrownError carries a `throw`n value up the Go call stack until a
// handler claims it or it escapes as an uncaught runtime error.
type thrownError struct {
	Value object.Value
}

func (t *thrownError) Error() string {
	return "uncaught exception: " + t.Value.Inspect()
}

// frame is one activation record: an instruction pointer, a local variable
// slice, and an operand stack.
type frame struct {
	code   *bytecode.Code
	ip     int
	locals []object.Value
	stack  []object.Value
}

func newFrame(code *bytecode.Code) *frame {
	return &frame{code: code, locals: make([]object.Value, code.LocalCount())}
}

func (f *frame) push(v object.Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() object.Value {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

// peek returns the value n slots from the top; peek(1) is the top itself.
func (f *frame) peek(n int) object.Value {
	return f.stack[len(f.stack)-n]
}

// VM executes one code tree against a fixed set of global slots.
type VM struct {
	root    *bytecode.Code
	globals []object.Value
}

// New builds a VM for root, seeding its global slots from env for every
// name root.EnvKeys() lists. Returns an error if env is missing a required
// key.
func New(root *bytecode.Code, env map[string]object.Value) (*VM, error) {
	globals := make([]object.Value, root.GlobalCount())
	for i := range globals {
		globals[i] = object.NilValue
	}
	names := root.GlobalNames()
	nameIndex := make(map[string]int, len(names))
	for i, n := range names {
		nameIndex[n] = i
	}
	for _, key := range root.EnvKeys() {
		idx, ok := nameIndex[key]
		if !ok {
			continue
		}
		val, ok := env[key]
		if !ok {
			return nil, fmt.Errorf("vm: environment missing required value %q", key)
		}
		globals[idx] = val
	}
	return &VM{root: root, globals: globals}, nil
}

// Run executes the already-compiled root to completion, returning its final
// value.
func Run(ctx context.Context, root *bytecode.Code, env map[string]object.Value) (object.Value, error) {
	vm, err := New(root, env)
	if err != nil {
		return nil, err
	}
	return vm.runFrame(ctx, newFrame(root))
}

// PrintBuiltin returns the "print" global the compiler and VM both expect
// to find in the host environment.
func PrintBuiltin(w io.Writer) *object.Builtin {
	return &object.Builtin{
		Name: "print",
		Fn: func(args []object.Value) (object.Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.Inspect()
			}
			fmt.Fprintln(w, strings.Join(parts, " "))
			return object.NilValue, nil
		},
	}
}

func findHandler(code *bytecode.Code, ip int) (bytecode.ExceptionHandler, bool) {
	for i := 0; i < code.ExceptionHandlerCount(); i++ {
		h := code.ExceptionHandlerAt(i)
		if ip >= h.TryStart && ip < h.TryEnd {
			return h, true
		}
	}
	return bytecode.ExceptionHandler{}, false
}

func constantToValue(c any) object.Value {
	switch v := c.(type) {
	case nil:
		return object.NilValue
	case bool:
		return object.Bool(v)
	case int64:
		return object.Int(v)
	case float64:
		return object.Float(v)
	case string:
		return object.String(v)
	case *bytecode.Function:
		return &object.Function{Def: v}
	default:
		return object.NilValue
	}
}

func (vm *VM) call(ctx context.Context, fn object.Value, args []object.Value) (object.Value, error) {
	switch f := fn.(type) {
	case *object.Function:
		def := f.Def
		callee := newFrame(def.Code())
		for i := 0; i < def.ParameterCount(); i++ {
			switch {
			case i < len(args):
				callee.locals[i] = args[i]
			case i < def.DefaultCount() && def.Default(i) != nil:
				callee.locals[i] = constantToValue(def.Default(i))
			default:
				callee.locals[i] = object.NilValue
			}
		}
		return vm.runFrame(ctx, callee)
	case *object.Builtin:
		return f.Fn(args)
	default:
		return nil, fmt.Errorf("vm: value of type %s is not callable", fn.Type())
	}
}

// runFrame executes one frame to completion (a Halt or ReturnValue), or
// until an unhandled throw or Go-level error escapes it.
func (vm *VM) runFrame(ctx context.Context, f *frame) (object.Value, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.ip >= f.code.InstructionCount() {
			return object.NilValue, nil
		}

		opcode := f.code.InstructionAt(f.ip)
		info := op.GetInfo(opcode)
		startIP := f.ip
		operands := make([]int, info.OperandCount)
		for i := 0; i < info.OperandCount; i++ {
			operands[i] = int(f.code.InstructionAt(f.ip + 1 + i))
		}
		next := f.ip + 1 + info.OperandCount

		switch opcode {
		case op.Nop:
			f.ip = next

		case op.Halt:
			return object.NilValue, nil

		case op.LoadConst:
			f.push(constantToValue(f.code.ConstantAt(operands[0])))
			f.ip = next

		case op.Nil:
			f.push(object.NilValue)
			f.ip = next

		case op.True:
			f.push(object.Bool(true))
			f.ip = next

		case op.False:
			f.push(object.Bool(false))
			f.ip = next

		case op.PopTop:
			f.pop()
			f.ip = next

		case op.Copy:
			f.push(f.peek(operands[0]))
			f.ip = next

		case op.LoadFast:
			f.push(f.locals[operands[0]])
			f.ip = next

		case op.StoreFast:
			f.locals[operands[0]] = f.pop()
			f.ip = next

		case op.LoadGlobal:
			f.push(vm.globals[operands[0]])
			f.ip = next

		case op.StoreGlobal:
			vm.globals[operands[0]] = f.pop()
			f.ip = next

		case op.BinaryOp:
			right := f.pop()
			left := f.pop()
			result, err := evalBinaryOp(op.BinaryOpType(operands[0]), left, right)
			if err != nil {
				return nil, err
			}
			f.push(result)
			f.ip = next

		case op.CompareOp:
			right := f.pop()
			left := f.pop()
			result, err := evalCompareOp(op.CompareOpType(operands[0]), left, right)
			if err != nil {
				return nil, err
			}
			f.push(result)
			f.ip = next

		case op.BuildMap:
			f.push(object.NewMap())
			f.ip = next

		case op.MapSet:
			value := f.pop()
			key := f.pop()
			m, ok := f.peek(1).(*object.Map)
			if !ok {
				return nil, fmt.Errorf("vm: MAP_SET target is not a map")
			}
			keyStr, ok := key.(object.String)
			if !ok {
				return nil, fmt.Errorf("vm: map key must be a string")
			}
			m.Set(string(keyStr), value)
			f.ip = next

		case op.BinarySubscr:
			key := f.pop()
			target := f.pop()
			m, ok := target.(*object.Map)
			if !ok {
				return nil, fmt.Errorf("vm: cannot index into value of type %s", target.Type())
			}
			keyStr, ok := key.(object.String)
			if !ok {
				return nil, fmt.Errorf("vm: index key must be a string")
			}
			val, found := m.Get(string(keyStr))
			if !found {
				val = object.NilValue
			}
			f.push(val)
			f.ip = next

		case op.Call:
			argc := operands[0]
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			fnVal := f.pop()
			result, err := vm.call(ctx, fnVal, args)
			if err != nil {
				if te, ok := err.(*thrownError); ok {
					if h, found := findHandler(f.code, startIP); found {
						f.push(te.Value)
						f.ip = h.CatchStart
						continue
					}
				}
				return nil, err
			}
			f.push(result)
			f.ip = next

		case op.ReturnValue:
			return f.pop(), nil

		case op.Throw:
			val := f.pop()
			if h, found := findHandler(f.code, startIP); found {
				f.push(val)
				f.ip = h.CatchStart
				continue
			}
			return nil, &thrownError{Value: val}

		case op.JumpForward:
			f.ip = next + operands[0]

		case op.JumpBackward:
			f.ip = next - operands[0]

		case op.PopJumpForwardIfFalse:
			cond := f.pop()
			if !object.Truthy(cond) {
				f.ip = next + operands[0]
			} else {
				f.ip = next
			}

		case op.PopJumpForwardIfTrue:
			cond := f.pop()
			if object.Truthy(cond) {
				f.ip = next + operands[0]
			} else {
				f.ip = next
			}

		default:
			return nil, fmt.Errorf("vm: unsupported opcode %s", info.Name)
		}
	}
}

func toFloat(v object.Value) (float64, bool) {
	switch val := v.(type) {
	case object.Int:
		return float64(val), true
	case object.Float:
		return float64(val), true
	default:
		return 0, false
	}
}

func isInt(v object.Value) bool {
	_, ok := v.(object.Int)
	return ok
}

func evalBinaryOp(t op.BinaryOpType, left, right object.Value) (object.Value, error) {
	if t == op.Add {
		if ls, ok := left.(object.String); ok {
			rs, ok := right.(object.String)
			if !ok {
				return nil, fmt.Errorf("vm: cannot add %s to string", right.Type())
			}
			return object.String(string(ls) + string(rs)), nil
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("vm: unsupported operand types for %s: %s, %s", t, left.Type(), right.Type())
	}
	bothInt := isInt(left) && isInt(right)
	var result float64
	switch t {
	case op.Add:
		result = lf + rf
	case op.Subtract:
		result = lf - rf
	case op.Multiply:
		result = lf * rf
	case op.Divide:
		if rf == 0 {
			return nil, fmt.Errorf("vm: division by zero")
		}
		if bothInt {
			return object.Int(int64(lf) / int64(rf)), nil
		}
		result = lf / rf
	case op.Modulo:
		if rf == 0 {
			return nil, fmt.Errorf("vm: division by zero")
		}
		if bothInt {
			return object.Int(int64(lf) % int64(rf)), nil
		}
		li, ri := int64(lf), int64(rf)
		return object.Float(float64(li % ri)), nil
	default:
		return nil, fmt.Errorf("vm: unsupported binary operator %s", t)
	}
	if bothInt {
		return object.Int(int64(result)), nil
	}
	return object.Float(result), nil
}

func valuesEqual(a, b object.Value) bool {
	switch av := a.(type) {
	case object.Int, object.Float:
		af, _ := toFloat(a)
		bf, ok := toFloat(b)
		return ok && af == bf
	case object.String:
		bv, ok := b.(object.String)
		return ok && av == bv
	case object.Bool:
		bv, ok := b.(object.Bool)
		return ok && av == bv
	case object.Nil:
		_, ok := b.(object.Nil)
		return ok
	default:
		return false
	}
}

func evalCompareOp(t op.CompareOpType, left, right object.Value) (object.Value, error) {
	if t == op.Equal {
		return object.Bool(valuesEqual(left, right)), nil
	}
	if t == op.NotEqual {
		return object.Bool(!valuesEqual(left, right)), nil
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("vm: unsupported operand types for %s: %s, %s", t, left.Type(), right.Type())
	}
	switch t {
	case op.LessThan:
		return object.Bool(lf < rf), nil
	case op.LessThanOrEqual:
		return object.Bool(lf <= rf), nil
	case op.GreaterThan:
		return object.Bool(lf > rf), nil
	case op.GreaterThanOrEqual:
		return object.Bool(lf >= rf), nil
	default:
		return nil, fmt.Errorf("vm: unsupported comparison operator %s", t)
	}
}
