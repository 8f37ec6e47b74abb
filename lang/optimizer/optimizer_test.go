package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/lang/optimizer"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// TestVoidFunctionWithEarlyReturnCollapses is spec.md §8 scenario 1:
// "if (true) return; return;" — the constant-condition pass turns the
// conditional into an unconditional jump and the dead branch is NOP'd
// away. The pass 5 rule that never strips the function's final opcode
// (it must always survive as a safety net) means the surviving vector can
// be a redundant-but-harmless run of RETURNs rather than exactly one, so
// this asserts the provable invariant: nothing but RETURN remains.
func TestVoidFunctionWithEarlyReturnCollapses(t *testing.T) {
	fn := &program.ScriptFunction{
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 1, LineNumber: 2},
			{Kind: program.JUMP_CONDITIONAL, LineNumber: 2, Parameter: 3},
			{Kind: program.RETURN, LineNumber: 2},
			{Kind: program.RETURN, LineNumber: 3},
		},
	}
	optimizer.Optimize(fn)
	require.NotEmpty(t, fn.Opcodes)
	for _, op := range fn.Opcodes {
		require.Equal(t, program.RETURN, op.Kind)
	}
}

// TestConstantConditionFold is spec.md §8 scenario 2: "if (0) a = 1; else
// a = 2;" — only the else path survives, and no JUMP_CONDITIONAL remains.
func TestConstantConditionFold(t *testing.T) {
	fn := &program.ScriptFunction{
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 0, LineNumber: 1}, // 0: cond
			{Kind: program.JUMP_CONDITIONAL, LineNumber: 1, Parameter: 4},                     // 1: -> else at 4
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 1, LineNumber: 1}, // 2: then: a = 1
			{Kind: program.JUMP, LineNumber: 1, Parameter: 6},                                  // 3: then -> end
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 2, LineNumber: 1}, // 4: else: a = 2
			{Kind: program.SET_VARIABLE_VALUE, LineNumber: 1},                                 // 5
			{Kind: program.RETURN, LineNumber: 2},                                              // 6
		},
	}
	optimizer.Optimize(fn)

	var sawOne, sawTwo bool
	for _, op := range fn.Opcodes {
		require.NotEqual(t, program.JUMP_CONDITIONAL, op.Kind)
		if op.Kind == program.PUSH_CONSTANT {
			switch op.Parameter {
			case 1:
				sawOne = true
			case 2:
				sawTwo = true
			}
		}
	}
	require.False(t, sawOne, "the a = 1 branch must be eliminated")
	require.True(t, sawTwo, "the a = 2 branch must survive")
}

// TestJumpChainCollapse is spec.md §8 scenario 5: "goto L1; L1: goto L2;
// L2: goto L3; L3: return;" — the first goto ends up retargeted directly
// at the final return (pass 4 then turns the now-direct jump itself into
// a copy of that RETURN). Every label still names a live opcode, so
// reachability keeps all four slots — the collapse shows up in every
// opcode becoming RETURN, not in the vector shrinking.
func TestJumpChainCollapse(t *testing.T) {
	fn := &program.ScriptFunction{
		Labels: []program.Label{
			{Name: "L1", OpcodeOffset: 1},
			{Name: "L2", OpcodeOffset: 2},
			{Name: "L3", OpcodeOffset: 3},
		},
		Opcodes: []program.Opcode{
			{Kind: program.JUMP, Parameter: 1, LineNumber: 1}, // goto L1
			{Kind: program.JUMP, Parameter: 2, LineNumber: 2}, // L1: goto L2
			{Kind: program.JUMP, Parameter: 3, LineNumber: 3}, // L2: goto L3
			{Kind: program.RETURN, LineNumber: 4},             // L3: return
		},
	}
	optimizer.Optimize(fn)
	require.NotEmpty(t, fn.Opcodes)
	for _, op := range fn.Opcodes {
		require.Equal(t, program.RETURN, op.Kind)
	}
}

// TestPeepholeCastFold covers the PUSH_CONSTANT;CAST_VALUE fold directly:
// narrowing INT_32 -> INT_8 must sign-truncate the constant in place and
// drop the CAST_VALUE opcode, without touching the constant's DataType.
func TestPeepholeCastFold(t *testing.T) {
	fn := &program.ScriptFunction{
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.INT_32, Parameter: 0x1FF, LineNumber: 1},
			{Kind: program.CAST_VALUE, Parameter: int64(types.INT_32_TO_8), LineNumber: 1},
			{Kind: program.RETURN, LineNumber: 1},
		},
	}
	optimizer.PeepholeFold(fn)

	require.Len(t, fn.Opcodes, 2)
	require.Equal(t, program.PUSH_CONSTANT, fn.Opcodes[0].Kind)
	require.Equal(t, int64(-1), fn.Opcodes[0].Parameter) // 0x1FF truncated to int8 == -1
	require.Equal(t, types.INT_32, fn.Opcodes[0].DataType)
}

// TestEliminateDeadCodeKeepsOnlyReachable exercises pass 5 directly: an
// opcode after an unconditional jump, with no label pointing at it, must
// be NOP'd and then compacted away.
func TestEliminateDeadCodeKeepsOnlyReachable(t *testing.T) {
	fn := &program.ScriptFunction{
		Opcodes: []program.Opcode{
			{Kind: program.JUMP, Parameter: 2, LineNumber: 1},
			{Kind: program.PUSH_CONSTANT, Parameter: 99, LineNumber: 1}, // unreachable
			{Kind: program.RETURN, LineNumber: 2},
		},
	}
	optimizer.Optimize(fn)
	for _, op := range fn.Opcodes {
		require.NotEqual(t, int64(99), op.Parameter)
	}
	require.Equal(t, program.RETURN, fn.Opcodes[len(fn.Opcodes)-1].Kind)
}

// TestAssignFlagsMarksSeqBreak checks pass 7's basic-block boundary rule:
// a control-flow opcode always gets SEQ_BREAK, and so does the opcode
// right before a label.
func TestAssignFlagsMarksSeqBreak(t *testing.T) {
	fn := &program.ScriptFunction{
		Labels: []program.Label{{Name: "L", OpcodeOffset: 2}},
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, Parameter: 1, LineNumber: 1},
			{Kind: program.MOVE_STACK, Parameter: -1, LineNumber: 1},
			{Kind: program.RETURN, LineNumber: 2},
		},
	}
	optimizer.AssignFlags(fn)
	require.True(t, fn.Opcodes[1].Flags.Has(program.OpFlagSeqBreak), "opcode before label must break")
	require.True(t, fn.Opcodes[2].Flags.Has(program.OpFlagCtrlFlow))
	require.True(t, fn.Opcodes[2].Flags.Has(program.OpFlagLabel))
}

// TestOptimizeIsIdempotent is spec.md §8's round-trip law: running the
// optimizer again on its own output must not change it.
func TestOptimizeIsIdempotent(t *testing.T) {
	fn := &program.ScriptFunction{
		Opcodes: []program.Opcode{
			{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 1, LineNumber: 1},
			{Kind: program.JUMP_CONDITIONAL, LineNumber: 1, Parameter: 3},
			{Kind: program.RETURN, LineNumber: 1},
			{Kind: program.RETURN, LineNumber: 2},
		},
	}
	optimizer.Optimize(fn)
	first := append([]program.Opcode(nil), fn.Opcodes...)
	optimizer.Optimize(fn)
	require.Equal(t, first, fn.Opcodes)
}
