package optimizer

import "github.com/lemonscript/lemon/lang/program"

// EliminateDeadCode marks every opcode unreachable from {0} ∪ every label
// offset as NOP, then folds away jumps that have become no-ops themselves —
// either because they only skip over the NOP run they just created, or
// because they jump straight to the next opcode. A conditional jump in that
// position still has to drop its condition off the value stack, so it
// becomes MOVE_STACK -1 instead of NOP.
func EliminateDeadCode(fn *program.ScriptFunction) {
	ops := fn.Opcodes
	n := len(ops)
	if n == 0 {
		return
	}

	// Every opcode starts "unvisited" except the very last, which must
	// survive even if unreachable — it is the function's final RETURN.
	unvisited := make([]bool, n)
	for i := 0; i < n-1; i++ {
		unvisited[i] = true
	}

	seeds := []int{0}
	for _, l := range fn.Labels {
		seeds = append(seeds, l.OpcodeOffset)
	}

	for len(seeds) > 0 {
		pos := seeds[len(seeds)-1]
		seeds = seeds[:len(seeds)-1]
		for pos >= 0 && pos < n && unvisited[pos] {
			unvisited[pos] = false
			switch ops[pos].Kind {
			case program.JUMP:
				pos = int(ops[pos].Parameter)
			case program.JUMP_CONDITIONAL:
				seeds = append(seeds, int(ops[pos].Parameter))
				pos++
			case program.RETURN, program.EXTERNAL_JUMP:
				pos = -1
			default:
				pos++
			}
		}
	}

	for i := 0; i < n; i++ {
		if unvisited[i] {
			ops[i].Kind = program.NOP
		}
	}

	if n < 3 {
		return
	}
	for i := 0; i < n-1; i++ {
		if ops[i].Kind != program.JUMP && ops[i].Kind != program.JUMP_CONDITIONAL {
			continue
		}
		target := int(ops[i].Parameter)
		pos := i + 1
		if target < pos {
			continue
		}
		for pos < n && ops[pos].Kind == program.NOP {
			pos++
		}
		if target > pos {
			continue
		}
		if ops[i].Kind == program.JUMP_CONDITIONAL {
			ops[i].Kind = program.MOVE_STACK
			ops[i].Parameter = -1
			ops[i].Flags = ops[i].Flags & program.OpFlagSet(program.OpFlagNewLine)
		} else {
			ops[i].Kind = program.NOP
		}
		i = pos - 1
	}
}
