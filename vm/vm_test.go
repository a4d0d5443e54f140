package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/object"
	"github.com/vexra/snapjs/op"
)

func TestRunArithmeticAndGlobals(t *testing.T) {
	// var x = 1 + 2; return x;
	code := bytecode.NewCode(bytecode.CodeParams{
		ID: "root",
		Instructions: []op.Code{
			op.LoadConst, 0,
			op.LoadConst, 1,
			op.BinaryOp, op.Code(op.Add),
			op.StoreGlobal, 0,
			op.LoadGlobal, 0,
			op.ReturnValue,
		},
		Constants:   []any{int64(1), int64(2)},
		GlobalNames: []string{"x"},
		GlobalCount: 1,
	})

	result, err := Run(context.Background(), code, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != object.Int(3) {
		t.Errorf("expected 3, got %v", result)
	}
}

func TestRunCallsHostBuiltin(t *testing.T) {
	// print("hi");
	code := bytecode.NewCode(bytecode.CodeParams{
		ID: "root",
		Instructions: []op.Code{
			op.LoadGlobal, 0,
			op.LoadConst, 0,
			op.Call, 1,
			op.PopTop,
			op.Halt,
		},
		Constants:   []any{"hi"},
		GlobalNames: []string{"print"},
		GlobalCount: 1,
		EnvKeys:     []string{"print"},
	})

	var out bytes.Buffer
	env := map[string]object.Value{"print": PrintBuiltin(&out)}
	_, err := Run(context.Background(), code, env)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("expected \"hi\\n\", got %q", out.String())
	}
}

func TestRunMissingEnvValueIsAnError(t *testing.T) {
	code := bytecode.NewCode(bytecode.CodeParams{
		ID:          "root",
		Instructions: []op.Code{op.Halt},
		GlobalNames: []string{"print"},
		GlobalCount: 1,
		EnvKeys:     []string{"print"},
	})
	_, err := Run(context.Background(), code, map[string]object.Value{})
	if err == nil {
		t.Fatal("expected an error when a required env value is missing")
	}
}

func TestRunUncaughtThrowIsAnError(t *testing.T) {
	code := bytecode.NewCode(bytecode.CodeParams{
		ID: "root",
		Instructions: []op.Code{
			op.LoadConst, 0,
			op.Throw,
		},
		Constants: []any{"boom"},
	})
	_, err := Run(context.Background(), code, nil)
	if err == nil {
		t.Fatal("expected an uncaught throw to surface as an error")
	}
}

func TestRunTryCatchHandlesThrow(t *testing.T) {
	// try { throw "e"; } catch (x) { return x; }
	code := bytecode.NewCode(bytecode.CodeParams{
		ID: "root",
		Instructions: []op.Code{
			/*0*/ op.LoadConst, 0, // "e"
			/*2*/ op.Throw,
			/*3*/ op.JumpForward, 5, // skip-catch -> 10 (end), unreachable here
			/*5*/ op.StoreGlobal, 0, // catch: x = <thrown value>
			/*7*/ op.LoadGlobal, 0,
			/*9*/ op.ReturnValue,
		},
		Constants:   []any{"e"},
		GlobalNames: []string{"x"},
		GlobalCount: 1,
		ExceptionHandlers: []bytecode.ExceptionHandler{
			{TryStart: 0, TryEnd: 3, CatchStart: 5, CatchVarIdx: -1},
		},
	})

	result, err := Run(context.Background(), code, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != object.String("e") {
		t.Errorf("expected \"e\", got %v", result)
	}
}

func TestRunForLoopPrintsEachIteration(t *testing.T) {
	// for (var i = 0; i < 3; i++) print(i);
	code := bytecode.NewCode(bytecode.CodeParams{
		ID: "root",
		Instructions: []op.Code{
			/*0*/ op.LoadConst, 0, // 0
			/*2*/ op.StoreGlobal, 0, // i = 0
			/*4*/ op.LoadGlobal, 0, // cond: i < 3
			/*6*/ op.LoadConst, 1, // 3
			/*8*/ op.CompareOp, op.Code(op.LessThan),
			/*10*/ op.PopJumpForwardIfFalse, 17, // -> 29 (exit)
			/*12*/ op.LoadGlobal, 1, // print(i)
			/*14*/ op.LoadGlobal, 0,
			/*16*/ op.Call, 1,
			/*18*/ op.PopTop,
			/*19*/ op.LoadGlobal, 0, // i++
			/*21*/ op.LoadConst, 2, // 1
			/*23*/ op.BinaryOp, op.Code(op.Add),
			/*25*/ op.StoreGlobal, 0,
			/*27*/ op.JumpBackward, 25, // -> 4
			/*29*/ op.Halt,
		},
		Constants:   []any{int64(0), int64(3), int64(1)},
		GlobalNames: []string{"i", "print"},
		GlobalCount: 2,
		EnvKeys:     []string{"print"},
	})

	var out bytes.Buffer
	env := map[string]object.Value{"print": PrintBuiltin(&out)}
	_, err := Run(context.Background(), code, env)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "0\n1\n2\n" {
		t.Errorf("expected \"0\\n1\\n2\\n\", got %q", out.String())
	}
}
