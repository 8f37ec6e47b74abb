package dispatch

import (
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

func init() {
	register(program.NOP, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {}
	})

	// MOVE_STACK: three variants per spec.md §4.3 — n > 0 zero-fills n
	// slots, n == -1 is the fast single-pop path, n < 0 otherwise bulk
	// decrements.
	register(program.MOVE_STACK, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		n := int(op.Parameter)
		return func(ctx *Context, rt *RuntimeOpcode) {
			for i := 0; i < n; i++ {
				ctx.Stack[ctx.SP+i] = 0
			}
			ctx.SP += n
		}
	})
	register(program.MOVE_STACK, types.VOID, 1, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) { ctx.SP-- }
	})
	register(program.MOVE_STACK, types.VOID, 2, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		n := int(op.Parameter)
		return func(ctx *Context, rt *RuntimeOpcode) { ctx.SP += n }
	})

	// MOVE_VAR_STACK: grows or shrinks the local-variable frame region.
	// The positive variant zero-fills; per spec.md §4.4 a recursion/frame
	// limit is enforced by lang/vm at call time, not here (this handler
	// never sees the call-stack depth).
	register(program.MOVE_VAR_STACK, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		n := int(op.Parameter)
		return func(ctx *Context, rt *RuntimeOpcode) {
			for i := 0; i < n; i++ {
				ctx.Locals[len(ctx.Locals)-n+i] = 0
			}
		}
	})
	register(program.MOVE_VAR_STACK, types.VOID, 1, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {}
	})

	register(program.PUSH_CONSTANT, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		v := op.Parameter
		return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(v) }
	})
	// PUSH_CONSTANT is registered generically (dataType VOID placeholder)
	// below for every normalized type, since the constant's own DataType
	// never participates in dispatch — the value is already the right bit
	// pattern by the time it reaches here.
	for _, dt := range []types.BaseType{
		types.BOOL, types.INT_CONST, types.UINT_8, types.UINT_16, types.UINT_32, types.UINT_64,
		types.INT_8, types.INT_16, types.INT_32, types.INT_64, types.FLOAT, types.DOUBLE,
	} {
		register(program.PUSH_CONSTANT, dt, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
			v := op.Parameter
			return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(v) }
		})
	}

	register(program.DUPLICATE, types.VOID, 1, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {
			ctx.Stack[ctx.SP] = ctx.Stack[ctx.SP-1]
			ctx.SP++
		}
	})
	register(program.DUPLICATE, types.VOID, 2, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {
			ctx.Stack[ctx.SP] = ctx.Stack[ctx.SP-2]
			ctx.Stack[ctx.SP+1] = ctx.Stack[ctx.SP-1]
			ctx.SP += 2
		}
	})

	register(program.MAKE_BOOL, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {
			ctx.Push(boolInt(ctx.Pop() != 0))
		}
	})

	// JUMP_SWITCH is the one control-flow opcode the dispatcher handles
	// directly, per spec.md §8's dispatcher-property exception list (it
	// is conspicuously absent from the non-handled set, unlike its sibling
	// JUMP_CONDITIONAL). Each JUMP_SWITCH in a GOTO_INDIRECT's emitted
	// sequence represents the next case ordinal implicitly: it peeks the
	// index left on the stack by the index expression, and if it is zero,
	// consumes it and signals the main loop to branch to this opcode's
	// label; otherwise it decrements the index in place and falls through
	// to the next JUMP_SWITCH, which checks the next case. If no case
	// matches by the time the sequence ends, the emitter's trailing
	// MOVE_STACK -1 drops whatever the index decremented to.
	register(program.JUMP_SWITCH, types.VOID, 0, func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		target := int(op.Parameter)
		return func(ctx *Context, rt *RuntimeOpcode) {
			if ctx.Top() == 0 {
				ctx.Pop()
				ctx.JumpTo = target
				return
			}
			ctx.Stack[ctx.SP-1]--
		}
	})
}
