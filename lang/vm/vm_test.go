package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/lang/ast"
	"github.com/lemonscript/lemon/lang/emitter"
	"github.com/lemonscript/lemon/lang/optimizer"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
	"github.com/lemonscript/lemon/lang/vm"
)

func TestReturnsConstant(t *testing.T) {
	fn := &program.ScriptFunction{
		Name:       "answer",
		ReturnType: types.INT_32,
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 42},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: vm.NewSimpleModule(types.UINT_32)}
	result, err := th.Run(context.Background(), fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), result)
}

func TestJumpConditionalBranchesOnFalse(t *testing.T) {
	// if (0) return 1; else return 2;
	fn := &program.ScriptFunction{
		Name:       "branch",
		ReturnType: types.INT_32,
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 0},
			{Kind: program.JUMP_CONDITIONAL, Parameter: 4},
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 1},
			{Kind: program.RETURN},
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 2},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: vm.NewSimpleModule(types.UINT_32)}
	result, err := th.Run(context.Background(), fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), result)
}

func TestLocalParameterRoundTrip(t *testing.T) {
	paramID := program.MakeVariableID(program.LOCAL, 0)
	fn := &program.ScriptFunction{
		Name:                     "identity",
		ReturnType:               types.INT_32,
		Parameters:               []program.Parameter{{Name: "x", DataType: types.INT_32}},
		Locals:                   []program.Variable{{ID: paramID, DataType: types.INT_32, LocalMemoryOffset: 0, LocalMemorySize: 8}},
		LocalVariablesMemorySize: 8,
		Opcodes: []program.Opcode{
			{Kind: program.GET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(paramID)},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: vm.NewSimpleModule(types.UINT_32)}
	result, err := th.Run(context.Background(), fn, []int64{17})
	require.NoError(t, err)
	require.Equal(t, int64(17), result)
}

func TestCallNativeFunction(t *testing.T) {
	mod := vm.NewSimpleModule(types.UINT_32)
	double := &vm.NativeFunc{
		FnName: "double",
		Params: []program.Parameter{{Name: "n", DataType: types.INT_32}},
		Ret:    types.INT_32,
		Fn:     func(args []int64) int64 { return args[0] * 2 },
	}
	mod.AddFunction(double)

	fn := &program.ScriptFunction{
		Name:       "caller",
		ReturnType: types.INT_32,
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 21},
			{Kind: program.CALL, DataType: 1, Parameter: int64(double.SignatureHash())},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: mod}
	result, err := th.Run(context.Background(), fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), result)
}

func TestCallScriptFunction(t *testing.T) {
	mod := vm.NewSimpleModule(types.UINT_32)
	callee := &program.ScriptFunction{
		Name:       "inc",
		ReturnType: types.INT_32,
		Parameters: []program.Parameter{{Name: "n", DataType: types.INT_32}},
		Locals: []program.Variable{
			{ID: program.MakeVariableID(program.LOCAL, 0), DataType: types.INT_32, LocalMemoryOffset: 0, LocalMemorySize: 8},
		},
		LocalVariablesMemorySize: 8,
		Opcodes: []program.Opcode{
			{Kind: program.GET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(program.MakeVariableID(program.LOCAL, 0))},
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 1},
			{Kind: program.ARITHM_ADD, DataType: types.INT_32},
			{Kind: program.RETURN},
		},
	}
	calleeFn := vm.NewScriptFunction(callee)
	mod.AddFunction(calleeFn)

	caller := &program.ScriptFunction{
		Name:       "caller",
		ReturnType: types.INT_32,
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 9},
			{Kind: program.CALL, DataType: 1, Parameter: int64(calleeFn.SignatureHash())},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: mod}
	result, err := th.Run(context.Background(), caller, nil)
	require.NoError(t, err)
	require.Equal(t, int64(10), result)
}

// TestEmitterCompiledFunctionExecutes drives the full pipeline: syntax
// tree through the emitter (parameter prologue included), the optimizer,
// the dispatcher, and finally this package's interpreter loop.
func TestEmitterCompiledFunctionExecutes(t *testing.T) {
	fn := &program.ScriptFunction{
		Name:       "addmul",
		ReturnType: types.INT_32,
		Parameters: []program.Parameter{
			{Name: "a", DataType: types.INT_32},
			{Name: "b", DataType: types.INT_32},
		},
		Locals: []program.Variable{
			{ID: program.MakeVariableID(program.LOCAL, 0), Name: "a", DataType: types.INT_32, LocalMemoryOffset: 0, LocalMemorySize: 8},
			{ID: program.MakeVariableID(program.LOCAL, 1), Name: "b", DataType: types.INT_32, LocalMemoryOffset: 8, LocalMemorySize: 8},
			{ID: program.MakeVariableID(program.LOCAL, 2), Name: "sum", DataType: types.INT_32, LocalMemoryOffset: 16, LocalMemorySize: 8},
		},
		LocalVariablesMemorySize: 24,
	}

	ref := func(i int) *ast.VarRef {
		r := &ast.VarRef{Var: &fn.Locals[i]}
		r.T = types.INT_32
		return r
	}
	sum := &ast.Binary{Op: types.BINARY_PLUS, X: ref(0), Y: ref(1)}
	sum.T = types.INT_32
	two := &ast.Constant{Val: 2}
	two.T = types.INT_32
	doubled := &ast.Binary{Op: types.BINARY_MULTIPLY, X: ref(2), Y: two}
	doubled.T = types.INT_32
	body := &ast.Block{Stmts: []ast.Stmt{
		// sum = a + b; return sum * 2;
		&ast.ExprStmt{X: &ast.Binary{Op: types.ASSIGN, X: ref(2), Y: sum}},
		&ast.ReturnStmt{Value: doubled},
	}}

	mod := vm.NewSimpleModule(types.UINT_32)
	cerr := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: mod})
	require.Nil(t, cerr)
	optimizer.Optimize(fn)

	th := &vm.Thread{Module: mod}
	result, err := th.Run(context.Background(), fn, []int64{3, 4})
	require.NoError(t, err)
	require.Equal(t, int64(14), result)
}

func TestStepLimitExceeded(t *testing.T) {
	// An infinite loop: JUMP back to itself.
	fn := &program.ScriptFunction{
		Name: "spin",
		Opcodes: []program.Opcode{
			{Kind: program.JUMP, Parameter: 0},
		},
	}
	th := &vm.Thread{Module: vm.NewSimpleModule(types.UINT_32), MaxSteps: 1000}
	_, err := th.Run(context.Background(), fn, nil)
	require.ErrorIs(t, err, vm.ErrStepLimitExceeded)
}

func TestCallStackOverflow(t *testing.T) {
	mod := vm.NewSimpleModule(types.UINT_32)
	var recurse *program.ScriptFunction
	recurse = &program.ScriptFunction{
		Name:       "recurse",
		ReturnType: types.INT_32,
	}
	recurseCallable := vm.NewScriptFunction(recurse)
	mod.AddFunction(recurseCallable)
	recurse.Opcodes = []program.Opcode{
		{Kind: program.CALL, DataType: 1, Parameter: int64(recurseCallable.SignatureHash())},
		{Kind: program.RETURN},
	}

	th := &vm.Thread{Module: mod, MaxCallStackDepth: 8}
	_, err := th.Run(context.Background(), recurse, nil)
	require.ErrorIs(t, err, vm.ErrStackOverflow)
}

func TestReadMemoryClampsOutOfRange(t *testing.T) {
	fn := &program.ScriptFunction{
		Name:       "peek",
		ReturnType: types.INT_32,
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 9999},
			{Kind: program.READ_MEMORY, DataType: types.UINT_32},
			{Kind: program.RETURN},
		},
	}
	th := &vm.Thread{Module: vm.NewSimpleModule(types.UINT_32), Memory: make([]byte, 16)}
	result, err := th.Run(context.Background(), fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), result)
}
