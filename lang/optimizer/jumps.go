package optimizer

import (
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// CollapseJumpChains retargets every JUMP/JUMP_CONDITIONAL whose target is
// itself an unconditional JUMP to point directly at the chain's final
// non-jump opcode, rewriting every link on the way so later passes never
// have to re-walk the chain.
func CollapseJumpChains(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	for i := range ops {
		if ops[i].Kind != program.JUMP && ops[i].Kind != program.JUMP_CONDITIONAL {
			continue
		}
		next := int(ops[i].Parameter)
		if next < 0 || next >= len(ops) || ops[next].Kind != program.JUMP {
			continue
		}
		for ops[next].Kind == program.JUMP {
			next = int(ops[next].Parameter)
		}
		target := next

		cur := i
		for {
			step := int(ops[cur].Parameter)
			ops[cur].Parameter = int64(target)
			if step == target {
				break
			}
			cur = step
		}
	}
}

// ResolveConstantConditions replaces a PUSH_CONSTANT whose successor is a
// JUMP_CONDITIONAL (directly, or transitively through one unconditional
// JUMP) with a plain JUMP to whichever side of the branch the constant's
// truth value selects, then applies one further jump-chain shortcut.
func ResolveConstantConditions(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	for i := 0; i < len(ops)-1; i++ {
		first := &ops[i]
		if first.Kind != program.PUSH_CONSTANT {
			continue
		}

		replace := false
		condJumpPos := 0
		second := ops[i+1]
		switch {
		case second.Kind == program.JUMP_CONDITIONAL:
			replace = true
			condJumpPos = i + 1
		case second.Kind == program.JUMP:
			target := int(second.Parameter)
			if target >= 0 && target < len(ops) && ops[target].Kind == program.JUMP_CONDITIONAL {
				replace = true
				condJumpPos = target
			}
		}
		if !replace {
			continue
		}

		conditionMet := first.Parameter != 0
		condJump := ops[condJumpPos]
		var jumpTarget int
		if conditionMet {
			jumpTarget = condJumpPos + 1
		} else {
			jumpTarget = int(condJump.Parameter)
		}
		if jumpTarget >= 0 && jumpTarget < len(ops) && ops[jumpTarget].Kind == program.JUMP {
			jumpTarget = int(ops[jumpTarget].Parameter)
		}

		first.Kind = program.JUMP
		first.DataType = types.UINT_32
		first.Flags = program.OpFlagSet(0).Set(program.OpFlagCtrlFlow).Set(program.OpFlagJump).Set(program.OpFlagSeqBreak)
		first.Parameter = int64(jumpTarget)
		first.LineNumber = condJump.LineNumber
	}
}

// PropagateTerminators turns any JUMP whose target is a RETURN or
// EXTERNAL_JUMP into a direct copy of that terminator, removing trivial
// trampolines through a function's epilogue.
func PropagateTerminators(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	for i := range ops {
		if ops[i].Kind != program.JUMP {
			continue
		}
		target := int(ops[i].Parameter)
		if target < 0 || target >= len(ops) {
			continue
		}
		if k := ops[target].Kind; k == program.RETURN || k == program.EXTERNAL_JUMP {
			ops[i] = ops[target]
		}
	}
}
