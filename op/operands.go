package op

// OperandKind classifies what an opcode's operand addresses. The saver and
// loader both consult this table (via bytecode.WalkOperands) instead of
// maintaining their own switch statements over opcodes, so the two
// directions can never drift out of sync with each other.
type OperandKind int

const (
	// OperandNone means the opcode has no operand that references another
	// table (locals, constants, or a jump target).
	OperandNone OperandKind = iota

	// OperandConstIndex means the operand is an index into the owning
	// Code's constant pool. The constant itself, not the operand, is what
	// may carry a rewritable reference (a nested function, a string
	// destined for the literal table).
	OperandConstIndex

	// OperandGlobalIndex means the operand is an index into the shared
	// global-variable-name table carried by the root Code.
	OperandGlobalIndex

	// OperandLocalIndex means the operand is an index into the owning
	// Code's local variable slots.
	OperandLocalIndex

	// OperandJumpOffset means the operand is an unsigned instruction-index
	// distance counted from the instruction that follows this one;
	// JumpBackward subtracts it and every other jump adds it.
	OperandJumpOffset

	// OperandLiteral means the operand is an immediate value with no
	// external table to reference (e.g. BinaryOp's operator selector, or
	// Call's argument count).
	OperandLiteral
)

// operandSpec describes the rewrite kind of each operand position for one
// opcode. None of this module's opcodes carry more than one operand.
type operandSpec struct {
	kinds [1]OperandKind
}

var operandTable = make(map[Code]operandSpec)

func setOperands(code Code, kinds ...OperandKind) {
	var spec operandSpec
	copy(spec.kinds[:], kinds)
	operandTable[code] = spec
}

func init() {
	// Execution
	setOperands(Call, OperandLiteral)
	setOperands(ReturnValue, OperandNone)
	setOperands(Halt, OperandNone)
	setOperands(Nop, OperandNone)

	// Jumps
	setOperands(JumpBackward, OperandJumpOffset)
	setOperands(JumpForward, OperandJumpOffset)
	setOperands(PopJumpForwardIfFalse, OperandJumpOffset)
	setOperands(PopJumpForwardIfTrue, OperandJumpOffset)

	// Load
	setOperands(LoadFast, OperandLocalIndex)
	setOperands(LoadGlobal, OperandGlobalIndex)
	setOperands(LoadConst, OperandConstIndex)

	// Store
	setOperands(StoreFast, OperandLocalIndex)
	setOperands(StoreGlobal, OperandGlobalIndex)

	// Operations
	setOperands(BinaryOp, OperandLiteral)
	setOperands(CompareOp, OperandLiteral)

	// Build
	setOperands(BuildMap, OperandLiteral)
	setOperands(MapSet, OperandNone)

	// Containers
	setOperands(BinarySubscr, OperandNone)

	// Stack
	setOperands(Copy, OperandLiteral)
	setOperands(PopTop, OperandNone)

	// Push constants
	setOperands(Nil, OperandNone)
	setOperands(False, OperandNone)
	setOperands(True, OperandNone)

	// Exception handling
	setOperands(Throw, OperandNone)
}

// Operands returns the rewrite-kind classification for each of an opcode's
// operand positions, truncated to GetInfo(code).OperandCount entries.
func Operands(code Code) []OperandKind {
	spec, ok := operandTable[code]
	count := GetInfo(code).OperandCount
	if !ok || count == 0 {
		return nil
	}
	if count > len(spec.kinds) {
		count = len(spec.kinds)
	}
	out := make([]OperandKind, count)
	copy(out, spec.kinds[:count])
	return out
}

// IsJump returns true if the opcode is a member of the jump family, i.e.
// carries at least one OperandJumpOffset operand.
func IsJump(code Code) bool {
	for _, k := range Operands(code) {
		if k == OperandJumpOffset {
			return true
		}
	}
	return false
}

// ReferencesConstant returns true if the opcode addresses the constant pool
// (the only place, in this instruction encoding, where a raw pointer to
// another Code block or to literal string data can hide).
func ReferencesConstant(code Code) bool {
	for _, k := range Operands(code) {
		if k == OperandConstIndex {
			return true
		}
	}
	return false
}
