// Package optimizer rewrites a lang/program.ScriptFunction's raw opcode
// vector in place, the second of the core's three subsystems. It never
// touches the syntax tree and never allocates a new function — every pass
// mutates fn.Opcodes (and occasionally fn.Labels) directly, the way the
// original compiler's FunctionCompiler::optimizeOpcodes family does.
package optimizer

import "github.com/lemonscript/lemon/lang/program"

// Optimize runs all seven passes over fn in the fixed order the original
// engine does: peephole folding to a fixpoint, then jump-chain collapse,
// constant-condition resolution, terminator propagation, dead-code
// elimination, NOP compaction, and finally flag assignment. Each pass
// assumes fn.Opcodes has already been produced by lang/emitter and ends
// with a RETURN (or EXTERNAL_JUMP).
func Optimize(fn *program.ScriptFunction) {
	if len(fn.Opcodes) == 0 {
		return
	}
	PeepholeFold(fn)
	CollapseJumpChains(fn)
	ResolveConstantConditions(fn)
	PropagateTerminators(fn)
	EliminateDeadCode(fn)
	CompactNops(fn)
	AssignFlags(fn)
}

// isJumpTarget builds the bitmap pass 1 needs to avoid folding across a
// basic-block boundary: every opcode index named by a JUMP/JUMP_CONDITIONAL
// parameter or a label offset is a target.
func isJumpTarget(fn *program.ScriptFunction) []bool {
	marks := make([]bool, len(fn.Opcodes))
	for _, op := range fn.Opcodes {
		if op.Kind == program.JUMP || op.Kind == program.JUMP_CONDITIONAL {
			if p := int(op.Parameter); p >= 0 && p < len(marks) {
				marks[p] = true
			}
		}
	}
	for _, l := range fn.Labels {
		if l.OpcodeOffset >= 0 && l.OpcodeOffset < len(marks) {
			marks[l.OpcodeOffset] = true
		}
	}
	return marks
}
