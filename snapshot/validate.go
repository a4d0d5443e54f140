package snapshot

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/op"
)

// Validate walks every code block reachable from root and accumulates every
// integrity violation it finds into one combined error, instead of failing
// at the first one. Execute runs it on every load, after bytecode.Unmarshal
// (which itself fails fast per block) and before handing the tree to the
// VM; bytecode.Marshal does not call it.
func Validate(root *bytecode.Code) error {
	var result *multierror.Error
	for _, code := range root.Flatten() {
		if err := validateJumps(code); err != nil {
			result = multierror.Append(result, err)
		}
		if err := validateConstants(code); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// validateJumps is the loader's relocation-equivalent pass described in
// SPEC_FULL.md §4.6: since jump operands are instruction-index deltas, not
// raw memory offsets, there is no base address to add back in. What
// survives from the original relocation step is bounds checking: every
// computed jump target must land inside the instruction stream, on an
// instruction boundary rather than mid-operand. It walks the same
// op.Operands classification bytecode.ValidateOperandBounds uses on the hot
// save/load path, through bytecode.WalkOperands, but accumulates every
// violation instead of stopping at the first.
func validateJumps(code *bytecode.Code) error {
	var result *multierror.Error
	n := code.InstructionCount()
	_ = bytecode.WalkOperands(code, func(ip int, opcode op.Code, kind op.OperandKind, operand int) error {
		if kind != op.OperandJumpOffset {
			return nil
		}
		info := op.GetInfo(opcode)
		next := ip + 1 + info.OperandCount
		target := bytecode.JumpTarget(opcode, next, operand)
		if target < 0 || target > n {
			result = multierror.Append(result, fmt.Errorf(
				"code %q: jump at instruction %d targets out-of-range index %d (len %d)",
				code.ID(), ip, target, n))
		} else if !bytecode.IsInstructionBoundary(code, target) {
			result = multierror.Append(result, fmt.Errorf(
				"code %q: jump at instruction %d targets %d, not an instruction boundary",
				code.ID(), ip, target))
		}
		return nil
	})
	return result.ErrorOrNil()
}

func validateConstants(code *bytecode.Code) error {
	var result *multierror.Error
	for i := 0; i < code.ConstantCount(); i++ {
		fn, ok := code.ConstantAt(i).(*bytecode.Function)
		if !ok {
			continue
		}
		if fn.Code() == nil {
			result = multierror.Append(result, fmt.Errorf(
				"code %q: function constant %d (%s) has no code block", code.ID(), i, fn.Name()))
		}
	}
	return result.ErrorOrNil()
}
