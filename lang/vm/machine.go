package vm

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/dispatch"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// loop is the StackVM main loop spec.md §4.4 describes: dispatch
// runtimeOps[pc].ExecFunc(ctx); if the opcode set ctx.JumpTo, branch there;
// otherwise advance to pc+1. Non-handled opcodes (JUMP, JUMP_CONDITIONAL,
// RETURN, CALL to a script function or unresolved callee, EXTERNAL_*) are
// recognized by Kind and have their control flow performed here directly,
// the same split the teacher's run loop draws between opcodes with a
// pure-value handler and opcodes ending the function or jumping.
func (th *Thread) loop(fn *program.ScriptFunction, runtimeOps []dispatch.RuntimeOpcode, ctx *dispatch.Context) (int64, error) {
	pc := 0
	for {
		th.steps++
		if th.MaxSteps > 0 && int64(th.steps) > th.MaxSteps {
			return 0, ErrStepLimitExceeded
		}
		if th.cancelled.Load() {
			return 0, ErrCancelled
		}
		if pc < 0 || pc >= len(runtimeOps) {
			return 0, fmt.Errorf("vm: program counter %d out of range (function %q has %d opcodes)", pc, fn.Name, len(runtimeOps))
		}

		rt := &runtimeOps[pc]
		if !rt.IsHandled() {
			next, result, done, err := th.stepNonHandled(fn, rt, pc, ctx)
			if err != nil {
				return 0, err
			}
			if done {
				return result, nil
			}
			pc = next
			continue
		}

		rt.ExecFunc(ctx, rt)
		if ctx.JumpTo >= 0 {
			pc = ctx.JumpTo
			ctx.JumpTo = -1
			continue
		}
		pc++
	}
}

// stepNonHandled performs the control-flow opcodes lang/dispatch leaves
// unimplemented. Returns done=true with the function's result once RETURN
// (or a tail EXTERNAL_JUMP) has executed.
func (th *Thread) stepNonHandled(fn *program.ScriptFunction, rt *dispatch.RuntimeOpcode, pc int, ctx *dispatch.Context) (next int, result int64, done bool, err error) {
	switch rt.Kind {
	case program.JUMP:
		return int(rt.Parameter()), 0, false, nil

	case program.JUMP_CONDITIONAL:
		cond := ctx.Pop()
		if cond == 0 {
			return int(rt.Parameter()), 0, false, nil
		}
		return pc + 1, 0, false, nil

	case program.RETURN:
		if fn.ReturnType == types.VOID {
			return 0, 0, true, nil
		}
		return 0, ctx.Pop(), true, nil

	case program.EXTERNAL_CALL:
		addr := ctx.Pop()
		if th.ExternalCall == nil {
			return 0, 0, false, ErrNoExternalHandler
		}
		v, err := th.ExternalCall(addr)
		if err != nil {
			return 0, 0, false, err
		}
		ctx.Push(v)
		return pc + 1, 0, false, nil

	case program.EXTERNAL_JUMP:
		addr := ctx.Pop()
		if th.ExternalJump == nil {
			return 0, 0, false, ErrNoExternalHandler
		}
		v, err := th.ExternalJump(addr)
		if err != nil {
			return 0, 0, false, err
		}
		return 0, v, true, nil

	case program.CALL:
		return th.stepCall(rt, pc, ctx)

	default:
		return 0, 0, false, fmt.Errorf("vm: opcode %s marked non-handled but has no control-flow implementation", rt.Kind)
	}
}

func (th *Thread) stepCall(rt *dispatch.RuntimeOpcode, pc int, ctx *dispatch.Context) (next int, result int64, done bool, err error) {
	hash := uint64(rt.Parameter())
	callee, ok := th.Module.FunctionByHash(hash)
	if !ok {
		return 0, 0, false, ErrUnknownFunction
	}

	nargs := len(callee.Parameters())
	args := make([]int64, nargs)
	for i := nargs - 1; i >= 0; i-- {
		args[i] = ctx.Pop()
	}

	var retVal int64
	switch c := callee.(type) {
	case dispatch.NativeFunction:
		retVal = c.Invoke(args)
	case ScriptCallable:
		retVal, err = th.callScript(c.Body(), args)
		if err != nil {
			return 0, 0, false, err
		}
	default:
		return 0, 0, false, ErrNotCallable
	}

	if callee.ReturnType() != types.VOID {
		ctx.Push(retVal)
	}
	return pc + 1, 0, false, nil
}
