package dispatch

import "github.com/lemonscript/lemon/lang/program"

// NativeFunction is the optional capability a program.Function can carry
// alongside program.AllowInlineExecution: a host function the dispatcher
// can invoke directly, bypassing lang/vm's call-frame push entirely. A
// Function that allows inline execution but does not implement this
// interface is simply never inlined — buildCall falls back to the ordinary
// non-handled path for it.
type NativeFunction interface {
	program.Function
	// Invoke runs the native function against argument values already
	// popped off the operand stack, in declaration order, and returns its
	// single result (ignored by callers when ReturnType is VOID).
	Invoke(args []int64) int64
}

// buildCall resolves a CALL opcode's signature hash against mod, per
// spec.md §4.3's "dataType doubles as a flag" note (Open Question #6 in
// DESIGN.md): dataType 1 marks an ordinary script call, always left
// non-handled for lang/vm's frame machinery; dataType 0 marks a callee the
// emitter saw carrying AllowInlineExecution, which the dispatcher may
// rewrite into a direct native invocation if the resolved Function also
// implements NativeFunction.
func buildCall(buf *RuntimeOpcode, op program.Opcode, mod program.Module) {
	hash := uint64(op.Parameter)
	buf.setParameter(op.Parameter)

	if op.DataType != 0 {
		buf.SuccessiveHandledOpcodes = 0
		return
	}

	fn, ok := mod.FunctionByHash(hash)
	if !ok {
		buf.SuccessiveHandledOpcodes = 0
		return
	}
	native, ok := fn.(NativeFunction)
	if !ok {
		buf.SuccessiveHandledOpcodes = 0
		return
	}
	// The flag is re-checked against the resolved callee, not just the
	// emitter-baked DataType bit: RuntimeOpcode buffers are rebuilt on
	// every module load, and the function registered under this hash may
	// no longer allow inlining even though the opcode stream predates it.
	if native.Flags()&program.AllowInlineExecution == 0 {
		buf.SuccessiveHandledOpcodes = 0
		return
	}

	nargs := len(fn.Parameters())
	retVoid := fn.ReturnType() == 0 // types.VOID
	buf.nativeCall = fn
	buf.ExecFunc = func(ctx *Context, rt *RuntimeOpcode) {
		args := make([]int64, nargs)
		for i := nargs - 1; i >= 0; i-- {
			args[i] = ctx.Pop()
		}
		result := native.Invoke(args)
		if !retVoid {
			ctx.Push(result)
		}
	}
	buf.SuccessiveHandledOpcodes = 1
}
