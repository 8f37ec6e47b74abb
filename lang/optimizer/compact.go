package optimizer

import "github.com/lemonscript/lemon/lang/program"

// CompactNops removes every NOP from fn.Opcodes, remapping jump parameters
// and label offsets to match.
func CompactNops(fn *program.ScriptFunction) {
	compactNops(fn)
}

// compactNops is the shared remap-and-shrink routine: PeepholeFold calls it
// once per fixpoint iteration the same way the original optimizer's
// cleanupNOPs did, and CompactNops (pass 6) calls it once at the end of the
// pipeline.
func compactNops(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	n := len(ops)
	if n == 0 {
		return
	}

	remap := make([]int, n)
	newSize := 0
	for i := 0; i < n; i++ {
		remap[i] = newSize
		if ops[i].Kind != program.NOP {
			newSize++
		}
	}
	if newSize == n {
		return
	}
	lastOpcode := newSize - 1

	for i := 0; i < n; i++ {
		if ops[i].Kind != program.NOP && i != remap[i] {
			ops[remap[i]] = ops[i]
		}
	}

	for i := 0; i < newSize; i++ {
		op := &ops[i]
		if op.Kind == program.JUMP || op.Kind == program.JUMP_CONDITIONAL || op.Kind == program.JUMP_SWITCH {
			target := int(op.Parameter)
			if target >= 0 && target < len(remap) {
				op.Parameter = int64(remap[target])
			} else {
				op.Parameter = int64(lastOpcode)
			}
		}
	}

	for i := range fn.Labels {
		off := fn.Labels[i].OpcodeOffset
		if off >= 0 && off < len(remap) {
			fn.Labels[i].OpcodeOffset = remap[off]
		} else {
			fn.Labels[i].OpcodeOffset = lastOpcode
		}
	}

	fn.Opcodes = ops[:newSize]
}
