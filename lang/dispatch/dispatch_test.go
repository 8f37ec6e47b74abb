package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/lang/dispatch"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

type stubModule struct {
	vars  map[program.VariableID]any
	fns   map[uint64]program.Function
	addrT types.BaseType
}

func (m stubModule) VariableByID(id program.VariableID) (any, bool) {
	v, ok := m.vars[id]
	return v, ok
}
func (m stubModule) FunctionByHash(hash uint64) (program.Function, bool) {
	fn, ok := m.fns[hash]
	return fn, ok
}
func (m stubModule) ExternalAddressType() types.BaseType { return m.addrT }

type stubGlobal struct {
	dt   types.BaseType
	addr int64
}

func (g *stubGlobal) DataType() types.BaseType { return g.dt }
func (g *stubGlobal) Address() *int64          { return &g.addr }

func newCtx() *dispatch.Context {
	return &dispatch.Context{
		Stack:  make([]int64, 64),
		Locals: make([]int64, 8),
		Memory: make([]byte, 64),
	}
}

func buildOne(t *testing.T, op program.Opcode, mod program.Module, fn *program.ScriptFunction) *dispatch.RuntimeOpcode {
	t.Helper()
	rt := &dispatch.RuntimeOpcode{}
	consumed := dispatch.BuildRuntimeOpcode(rt, []program.Opcode{op}, 0, mod, fn)
	require.Equal(t, 1, consumed)
	return rt
}

func TestArithmeticAdd(t *testing.T) {
	op := program.Opcode{Kind: program.ARITHM_ADD, DataType: types.INT_32}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(3)
	ctx.Push(4)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(7), ctx.Top())
}

func TestArithmeticDivByZeroIsSafe(t *testing.T) {
	op := program.Opcode{Kind: program.ARITHM_DIV, DataType: types.INT_32}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(9)
	ctx.Push(0)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(0), ctx.Top())
}

func TestCompareUnsignedWraparound(t *testing.T) {
	op := program.Opcode{Kind: program.COMPARE_LT, DataType: types.UINT_8}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(-1) // 0xff as u8
	ctx.Push(1)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(0), ctx.Top(), "0xff is not less than 1 unsigned")
}

func TestCastNarrowSignExtends(t *testing.T) {
	op := program.Opcode{Kind: program.CAST_VALUE, Parameter: int64(types.INT_32_TO_8)}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(0xff) // low byte 0xff, should sign-extend to -1 as s8
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(-1), ctx.Top())
}

func TestMoveStackFastPop(t *testing.T) {
	op := program.Opcode{Kind: program.MOVE_STACK, Parameter: -1}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(1)
	ctx.Push(2)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, 1, ctx.SP)
}

func TestLocalVariableGetSet(t *testing.T) {
	id := program.MakeVariableID(program.LOCAL, 0)
	fn := &program.ScriptFunction{
		Locals: []program.Variable{{ID: id, DataType: types.INT_32, LocalMemoryOffset: 0, LocalMemorySize: 8}},
	}

	setOp := program.Opcode{Kind: program.SET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(id)}
	setRt := buildOne(t, setOp, stubModule{}, fn)
	ctx := newCtx()
	ctx.Push(42)
	setRt.ExecFunc(ctx, setRt)
	require.Equal(t, int64(42), ctx.Locals[0])

	getOp := program.Opcode{Kind: program.GET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(id)}
	getRt := buildOne(t, getOp, stubModule{}, fn)
	getRt.ExecFunc(ctx, getRt)
	require.Equal(t, int64(42), ctx.Top())
}

func TestGlobalVariableRoundTrip(t *testing.T) {
	id := program.MakeVariableID(program.GLOBAL, 0)
	g := &stubGlobal{dt: types.INT_32}
	mod := stubModule{vars: map[program.VariableID]any{id: g}}

	setOp := program.Opcode{Kind: program.SET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(id)}
	setRt := buildOne(t, setOp, mod, &program.ScriptFunction{})
	ctx := newCtx()
	ctx.Push(99)
	setRt.ExecFunc(ctx, setRt)
	require.Equal(t, int64(99), g.addr)

	getOp := program.Opcode{Kind: program.GET_VARIABLE_VALUE, DataType: types.INT_32, Parameter: int64(id)}
	getRt := buildOne(t, getOp, mod, &program.ScriptFunction{})
	getRt.ExecFunc(ctx, getRt)
	require.Equal(t, int64(99), ctx.Top())
}

func TestReadMemoryOutOfRangeClampsToZero(t *testing.T) {
	op := program.Opcode{Kind: program.READ_MEMORY, DataType: types.UINT_32}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(1000)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(0), ctx.Top())
}

func TestWriteThenReadMemoryRoundTrip(t *testing.T) {
	writeOp := program.Opcode{Kind: program.WRITE_MEMORY, DataType: types.UINT_16}
	writeRt := buildOne(t, writeOp, stubModule{}, &program.ScriptFunction{})
	readOp := program.Opcode{Kind: program.READ_MEMORY, DataType: types.UINT_16}
	readRt := buildOne(t, readOp, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(4)     // addr
	ctx.Push(0xbeef) // value
	writeRt.ExecFunc(ctx, writeRt)
	require.Equal(t, 1, ctx.SP, "the stored value stays on top")
	require.Equal(t, int64(0xbeef), ctx.Top())

	ctx.Push(4)
	readRt.ExecFunc(ctx, readRt)
	require.Equal(t, int64(0xbeef), ctx.Top())
}

func TestReadMemoryNonConsumingKeepsAddress(t *testing.T) {
	op := program.Opcode{Kind: program.READ_MEMORY, DataType: types.UINT_8, Parameter: 1}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(10)
	rt.ExecFunc(ctx, rt)
	require.Equal(t, 2, ctx.SP)
	require.Equal(t, int64(10), ctx.Stack[0])
}

func TestJumpSwitchDecrementsUntilMatch(t *testing.T) {
	op := program.Opcode{Kind: program.JUMP_SWITCH, Parameter: 7}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})

	ctx := newCtx()
	ctx.Push(2)
	ctx.JumpTo = -1
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(1), ctx.Top())
	require.Equal(t, -1, ctx.JumpTo)

	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(0), ctx.Top())
	require.Equal(t, -1, ctx.JumpTo)

	rt.ExecFunc(ctx, rt)
	require.Equal(t, 0, ctx.SP)
	require.Equal(t, 7, ctx.JumpTo)
}

func TestParameterSizeSelection(t *testing.T) {
	cases := []struct {
		op   program.Opcode
		want int
	}{
		{program.Opcode{Kind: program.ARITHM_ADD, DataType: types.INT_32}, 0},
		{program.Opcode{Kind: program.COMPARE_LT, DataType: types.UINT_8}, 0},
		{program.Opcode{Kind: program.RETURN}, 0},
		{program.Opcode{Kind: program.MOVE_STACK, Parameter: -1}, 0},
		{program.Opcode{Kind: program.MOVE_STACK, Parameter: 2}, 8},
		{program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 7}, 8},
		{program.Opcode{Kind: program.JUMP, Parameter: 0}, 8},
	}
	for _, tc := range cases {
		rt := buildOne(t, tc.op, stubModule{}, &program.ScriptFunction{})
		require.Equal(t, tc.want, rt.ParamLen(), tc.op.String())
	}
}

func TestNonHandledKindsLeaveNoExecFunc(t *testing.T) {
	for _, kind := range []program.OpcodeKind{program.JUMP, program.JUMP_CONDITIONAL, program.RETURN, program.EXTERNAL_CALL, program.EXTERNAL_JUMP} {
		rt := buildOne(t, program.Opcode{Kind: kind}, stubModule{}, &program.ScriptFunction{})
		require.False(t, rt.IsHandled(), kind.String())
		require.Nil(t, rt.ExecFunc, kind.String())
	}
}

func TestCallToUnresolvedHashIsNonHandled(t *testing.T) {
	op := program.Opcode{Kind: program.CALL, DataType: 0, Parameter: 12345}
	rt := buildOne(t, op, stubModule{}, &program.ScriptFunction{})
	require.False(t, rt.IsHandled())
}

// stubNative implements dispatch.NativeFunction: a host builtin the
// dispatcher may rewrite a CALL into, depending on its flags.
type stubNative struct {
	name  string
	flags program.FunctionFlag
}

func (f *stubNative) Name() string                    { return f.name }
func (f *stubNative) Parameters() []program.Parameter { return nil }
func (f *stubNative) ReturnType() types.BaseType      { return types.INT_32 }
func (f *stubNative) Flags() program.FunctionFlag     { return f.flags }
func (f *stubNative) SignatureHash() uint64 {
	return program.SignatureHash(f.name, types.INT_32, nil)
}
func (f *stubNative) Invoke(args []int64) int64 { return 42 }

// TestCallInlineRewriteRequiresFlag covers both sides of the inline CALL
// path: a DataType=0 call to a callee carrying AllowInlineExecution is
// rewritten into a handled inline invocation, while the same call shape
// against a callee whose Flags() no longer allow inlining stays
// non-handled even though the callee still implements NativeFunction —
// runtime opcodes are rebuilt per module load, so the flag is checked at
// dispatch-build time, not trusted from the emitter.
func TestCallInlineRewriteRequiresFlag(t *testing.T) {
	flagged := &stubNative{name: "inlineable", flags: program.AllowInlineExecution}
	unflagged := &stubNative{name: "plain"}
	mod := stubModule{fns: map[uint64]program.Function{
		flagged.SignatureHash():   flagged,
		unflagged.SignatureHash(): unflagged,
	}}

	op := program.Opcode{Kind: program.CALL, DataType: 0, Parameter: int64(flagged.SignatureHash())}
	rt := buildOne(t, op, mod, &program.ScriptFunction{})
	require.True(t, rt.IsHandled())
	require.NotNil(t, rt.NativeCall())

	ctx := newCtx()
	rt.ExecFunc(ctx, rt)
	require.Equal(t, int64(42), ctx.Top())

	op = program.Opcode{Kind: program.CALL, DataType: 0, Parameter: int64(unflagged.SignatureHash())}
	rt = buildOne(t, op, mod, &program.ScriptFunction{})
	require.False(t, rt.IsHandled())
	require.Nil(t, rt.NativeCall())
}
