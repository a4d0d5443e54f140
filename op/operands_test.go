package op

import "testing"

func TestOperandsMatchesOperandCount(t *testing.T) {
	all := []Code{
		Nop, Halt, Call, ReturnValue,
		JumpBackward, JumpForward, PopJumpForwardIfFalse, PopJumpForwardIfTrue,
		LoadFast, LoadGlobal, LoadConst,
		StoreFast, StoreGlobal,
		BinaryOp, CompareOp,
		BuildMap, MapSet,
		BinarySubscr,
		Copy, PopTop, Nil, False, True,
		Throw,
	}
	for _, code := range all {
		info := GetInfo(code)
		kinds := Operands(code)
		if len(kinds) != info.OperandCount {
			t.Errorf("%s: GetInfo reports %d operands but Operands() returned %d", info.Name, info.OperandCount, len(kinds))
		}
	}
}

func TestIsJump(t *testing.T) {
	jumpOps := []Code{JumpBackward, JumpForward, PopJumpForwardIfFalse, PopJumpForwardIfTrue}
	for _, code := range jumpOps {
		if !IsJump(code) {
			t.Errorf("%s: expected IsJump to be true", GetInfo(code).Name)
		}
	}
	nonJumpOps := []Code{Nop, Call, LoadConst, BinaryOp, Throw}
	for _, code := range nonJumpOps {
		if IsJump(code) {
			t.Errorf("%s: expected IsJump to be false", GetInfo(code).Name)
		}
	}
}

func TestReferencesConstant(t *testing.T) {
	if !ReferencesConstant(LoadConst) {
		t.Error("expected LoadConst to reference the constant pool")
	}
	if ReferencesConstant(LoadGlobal) {
		t.Error("expected LoadGlobal not to reference the constant pool")
	}
	if ReferencesConstant(Nop) {
		t.Error("expected Nop not to reference the constant pool")
	}
}

func TestOperandsUnknownOpcode(t *testing.T) {
	if kinds := Operands(Code(255)); kinds != nil {
		t.Errorf("expected nil operand kinds for an unregistered opcode, got %v", kinds)
	}
}
