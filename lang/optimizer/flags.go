package optimizer

import "github.com/lemonscript/lemon/lang/program"

// AssignFlags computes the final, post-optimization flag set of every
// opcode: control-flow and jump markers by kind, a new-line marker at the
// start of each source-line run, label/jump-target markers from the
// resolved label table and jump parameters, and finally a sequence-break
// marker on every control-flow opcode and on every opcode whose successor
// starts a new basic block. Must run last — every earlier pass is free to
// leave flags stale or zero.
func AssignFlags(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	n := len(ops)
	if n == 0 {
		return
	}

	lastLine := ^uint32(0)
	for i := range ops {
		op := &ops[i]
		switch op.Kind {
		case program.JUMP, program.JUMP_CONDITIONAL, program.JUMP_SWITCH:
			op.Flags = op.Flags.Set(program.OpFlagCtrlFlow).Set(program.OpFlagJump)
		case program.CALL, program.RETURN, program.EXTERNAL_CALL, program.EXTERNAL_JUMP:
			op.Flags = op.Flags.Set(program.OpFlagCtrlFlow)
		}
		if op.LineNumber != lastLine {
			op.Flags = op.Flags.Set(program.OpFlagNewLine)
			lastLine = op.LineNumber
		}
	}

	for _, l := range fn.Labels {
		if l.OpcodeOffset >= 0 && l.OpcodeOffset < n {
			ops[l.OpcodeOffset].Flags = ops[l.OpcodeOffset].Flags.Set(program.OpFlagLabel)
		}
	}

	for i := range ops {
		if !ops[i].Flags.Has(program.OpFlagJump) {
			continue
		}
		target := int(ops[i].Parameter)
		if target < 0 {
			target = 0
		} else if target >= n {
			target = n - 1
		}
		ops[target].Flags = ops[target].Flags.Set(program.OpFlagJumpTarget)
	}

	for i := range ops {
		if ops[i].Flags.Has(program.OpFlagCtrlFlow) {
			ops[i].Flags = ops[i].Flags.Set(program.OpFlagSeqBreak)
			continue
		}
		if i+1 >= n {
			continue
		}
		next := ops[i+1].Flags
		if next.Has(program.OpFlagLabel) || next.Has(program.OpFlagJumpTarget) ||
			next.Has(program.OpFlagNewLine) || next.Has(program.OpFlagCtrlFlow) {
			ops[i].Flags = ops[i].Flags.Set(program.OpFlagSeqBreak)
		}
	}
}
