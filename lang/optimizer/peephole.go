package optimizer

import (
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// PeepholeFold scans consecutive opcode pairs within the same source line,
// skipping any pair whose second opcode is a jump target, and iterates to a
// fixpoint: COMPARE_* immediately followed by MAKE_BOOL drops the MAKE_BOOL
// (a comparison result is already boolean; the emitter no longer produces
// this shape but the rule survives as it did in the original optimizer),
// and PUSH_CONSTANT immediately followed by a narrowing CAST_VALUE folds
// the cast into the constant and drops the CAST_VALUE.
func PeepholeFold(fn *program.ScriptFunction) {
	if len(fn.Opcodes) == 0 {
		return
	}
	for {
		marks := isJumpTarget(fn)
		changed := false
		ops := fn.Opcodes
		for i := 0; i < len(ops)-1; i++ {
			op1 := &ops[i]
			op2 := &ops[i+1]
			if op1.LineNumber != op2.LineNumber || marks[i+1] {
				continue
			}

			if isCompareKind(op1.Kind) && op2.Kind == program.MAKE_BOOL {
				op2.Kind = program.NOP
				changed = true
				continue
			}

			if op1.Kind == program.PUSH_CONSTANT && op2.Kind == program.CAST_VALUE {
				if width, ok := castDownWidth(types.BaseCastType(op2.Parameter)); ok {
					// Only the stack slot's bit pattern is updated here, never
					// op1.DataType — the original folding pass left the
					// constant's declared type alone too, an aliasing quirk
					// preserved for CompiledHash parity (see DESIGN.md).
					op1.Parameter = truncateSignExtend(op1.Parameter, width)
					op2.Kind = program.NOP
					changed = true
				}
			}
		}
		compactNops(fn)
		if !changed {
			return
		}
	}
}

func isCompareKind(k program.OpcodeKind) bool {
	return k >= program.COMPARE_EQ && k <= program.COMPARE_GE
}

// castDownWidth reports the target bit width of one of the six narrowing
// BaseCastType entries the peephole fold applies to (the legacy optimizer's
// cast-fold only ever handled these six "cast down" cases — every widening
// or float conversion is left to CAST_VALUE at runtime).
func castDownWidth(c types.BaseCastType) (width int, ok bool) {
	switch c {
	case types.INT_16_TO_8, types.INT_32_TO_8, types.INT_64_TO_8:
		return 8, true
	case types.INT_32_TO_16, types.INT_64_TO_16:
		return 16, true
	case types.INT_64_TO_32:
		return 32, true
	default:
		return 0, false
	}
}

// truncateSignExtend keeps the low width bits of v and sign-extends them
// back to 64 bits, matching a C (intN)v cast — every narrowing BaseCastType
// in the table targets a signed BaseType, so this is the one rule that
// covers all six.
func truncateSignExtend(v int64, width int) int64 {
	mask := uint64(1)<<uint(width) - 1
	trunc := uint64(v) & mask
	signBit := uint64(1) << uint(width-1)
	if trunc&signBit != 0 {
		trunc |= ^mask
	}
	return int64(trunc)
}
