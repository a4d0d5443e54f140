// Package op defines opcodes used by the compiler and virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop         Code = 1
	Halt        Code = 2
	Call        Code = 3
	ReturnValue Code = 4
	// Defer (removed)     Code = 5
	// Go (removed)        Code = 6
	// CallSpread (removed) Code = 7

	// Jump
	JumpBackward          Code = 10
	JumpForward           Code = 11
	PopJumpForwardIfFalse Code = 12
	PopJumpForwardIfTrue  Code = 13
	// PopJumpForwardIfNotNil (removed) Code = 14
	// PopJumpForwardIfNil (removed)    Code = 15

	// Load
	// LoadAttr (removed)      Code = 20
	LoadFast Code = 21
	// LoadFree (removed)      Code = 22
	LoadGlobal Code = 23
	LoadConst  Code = 24
	// LoadAttrOrNil (removed) Code = 25

	// Store
	// StoreAttr (removed) Code = 30
	StoreFast Code = 31
	// StoreFree (removed) Code = 32
	StoreGlobal Code = 33

	// Operations
	BinaryOp  Code = 40
	CompareOp Code = 41
	// UnaryNegative (removed) Code = 42
	// UnaryNot (removed)      Code = 43

	// Build
	// BuildList (removed)   Code = 50
	BuildMap Code = 51
	// BuildSet (removed)    Code = 52
	// BuildString (removed) Code = 53
	// ListAppend (removed)  Code = 54
	// ListExtend (removed)  Code = 55
	// MapMerge (removed)    Code = 56
	MapSet Code = 57

	// Containers
	BinarySubscr Code = 60
	// StoreSubscr (removed) Code = 61
	// ContainsOp (removed)  Code = 62
	// Length (removed)      Code = 63
	// Slice (removed)       Code = 64
	// Unpack (removed)      Code = 65

	// Stack
	// Swap (removed) Code = 70
	Copy   Code = 71
	PopTop Code = 72

	// Push constants
	Nil   Code = 80
	False Code = 81
	True  Code = 82

	// Iteration (removed: this language's only loop form is `for`, compiled
	// straight to a conditional jump, not an iterator protocol)
	// ForIter Code = 90
	// GetIter Code = 91
	// Range   Code = 92

	// Closures (removed: functions here close over nothing but their own
	// parameters and locals, so there is no free-variable cell to load)
	// LoadClosure Code = 120
	// MakeCell    Code = 121

	// Partials (removed: no partial application in this language)
	// Partial Code = 130

	// Exception handling: Throw is still an opcode (the VM unwinds through
	// Go error returns and a static per-block handler table instead, see
	// bytecode.ExceptionHandler, so there is no PushExcept/PopExcept/
	// EndFinally pair to push and pop at runtime).
	Throw Code = 142
)

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, subtraction, multiplication, etc.
type BinaryOpType uint16

const (
	Add      BinaryOpType = 1
	Subtract BinaryOpType = 2
	Multiply BinaryOpType = 3
	Divide   BinaryOpType = 4
	Modulo   BinaryOpType = 5
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulo:
		return "%"
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation. For example, less
// than, greater than, equal, etc.
type CompareOpType uint16

const (
	LessThan           CompareOpType = 1
	LessThanOrEqual    CompareOpType = 2
	Equal              CompareOpType = 3
	NotEqual           CompareOpType = 4
	GreaterThan        CompareOpType = 5
	GreaterThanOrEqual CompareOpType = 6
)

// String returns a string representation of the comparison operation.
// For example "<" for less than.
func (cop CompareOpType) String() string {
	switch cop {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{BinaryOp, "BINARY_OP", 1},
		{BinarySubscr, "BINARY_SUBSCR", 0},
		{BuildMap, "BUILD_MAP", 1},
		{Call, "CALL", 1},
		{CompareOp, "COMPARE_OP", 1},
		{Copy, "COPY", 1},
		{False, "FALSE", 0},
		{Halt, "HALT", 0},
		{JumpBackward, "JUMP_BACKWARD", 1},
		{JumpForward, "JUMP_FORWARD", 1},
		{MapSet, "MAP_SET", 0},
		{LoadConst, "LOAD_CONST", 1},
		{LoadFast, "LOAD_FAST", 1},
		{LoadGlobal, "LOAD_GLOBAL", 1},
		{Nil, "NIL", 0},
		{Nop, "NOP", 0},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", 1},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", 1},
		{PopTop, "POP_TOP", 0},
		{ReturnValue, "RETURN_VALUE", 0},
		{StoreFast, "STORE_FAST", 1},
		{StoreGlobal, "STORE_GLOBAL", 1},
		{True, "TRUE", 0},
		{Throw, "THROW", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode. An unknown opcode
// yields the zero Info (empty Name, no operands).
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}
