package bytecode

import (
	"fmt"

	"github.com/vexra/snapjs/op"
)

// WalkOperands drives one generic pass over c's instruction stream,
// classifying every operand through the op.Operands table — the same table
// Marshal consults before writing a block and Unmarshal consults after
// building one, so the two directions can never silently disagree about
// what an operand means. visit is called once per operand; ip is the index
// of the opcode that owns it. An opcode op.GetInfo does not know ends the
// walk with an error.
func WalkOperands(c *Code, visit func(ip int, opcode op.Code, kind op.OperandKind, operand int) error) error {
	n := c.InstructionCount()
	for ip := 0; ip < n; {
		opcode := c.InstructionAt(ip)
		info := op.GetInfo(opcode)
		if info.Name == "" {
			return fmt.Errorf("bytecode: code %q: unknown opcode %d at instruction %d", c.ID(), opcode, ip)
		}
		kinds := op.Operands(opcode)
		for i := 0; i < info.OperandCount; i++ {
			var kind op.OperandKind
			if i < len(kinds) {
				kind = kinds[i]
			}
			operand := int(c.InstructionAt(ip + 1 + i))
			if err := visit(ip, opcode, kind, operand); err != nil {
				return err
			}
		}
		ip += 1 + info.OperandCount
	}
	return nil
}

// JumpTarget computes the instruction index a jump operand resolves to.
// JumpBackward counts down from next; every other jump family member
// counts up, matching the compiler's patchForwardJump/emitBackwardJump
// encoding.
func JumpTarget(opcode op.Code, next, operand int) int {
	if opcode == op.JumpBackward {
		return next - operand
	}
	return next + operand
}

// IsInstructionBoundary reports whether target is either the end of c's
// instruction stream or the start of a real instruction, by re-walking
// from the top. Code blocks in this module are short enough that a linear
// re-walk per jump is not a concern.
func IsInstructionBoundary(c *Code, target int) bool {
	n := c.InstructionCount()
	if target == n {
		return true
	}
	for ip := 0; ip < n; {
		if ip == target {
			return true
		}
		ip += 1 + op.GetInfo(c.InstructionAt(ip)).OperandCount
	}
	return false
}

// ValidateOperandBounds walks c's instructions through WalkOperands and
// checks every operand the table classifies as an index against the table
// it indexes into: the constant pool, the local slots, the shared global
// slots (sized by globalCount — only the root block carries GlobalNames/
// GlobalCount, but every block's LoadGlobal/StoreGlobal indexes that same
// table), and jump targets against the instruction stream itself. Marshal
// calls this before writing a block; Unmarshal calls it on each block as
// soon as that block is built, so a builder bug and a hand-edited snapshot
// are rejected by the same logic instead of two.
func ValidateOperandBounds(c *Code, globalCount int) error {
	n := c.InstructionCount()
	return WalkOperands(c, func(ip int, opcode op.Code, kind op.OperandKind, operand int) error {
		switch kind {
		case op.OperandConstIndex:
			if operand < 0 || operand >= c.ConstantCount() {
				return fmt.Errorf("bytecode: code %q: instruction %d references out-of-range constant %d", c.ID(), ip, operand)
			}
		case op.OperandLocalIndex:
			if operand < 0 || operand >= c.LocalCount() {
				return fmt.Errorf("bytecode: code %q: instruction %d references out-of-range local %d", c.ID(), ip, operand)
			}
		case op.OperandGlobalIndex:
			if operand < 0 || operand >= globalCount {
				return fmt.Errorf("bytecode: code %q: instruction %d references out-of-range global %d", c.ID(), ip, operand)
			}
		case op.OperandJumpOffset:
			info := op.GetInfo(opcode)
			next := ip + 1 + info.OperandCount
			target := JumpTarget(opcode, next, operand)
			if target < 0 || target > n {
				return fmt.Errorf("bytecode: code %q: jump at instruction %d targets out-of-range index %d (len %d)", c.ID(), ip, target, n)
			}
			if !IsInstructionBoundary(c, target) {
				return fmt.Errorf("bytecode: code %q: jump at instruction %d targets %d, not an instruction boundary", c.ID(), ip, target)
			}
		}
		return nil
	})
}
