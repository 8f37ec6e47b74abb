package emitter

import (
	"github.com/lemonscript/lemon/lang/ast"
	"github.com/lemonscript/lemon/lang/program"
)

// ifBuilder collects the pending unconditional "end" jumps of an if/else-if
// chain so they can all be patched to the same final address once the last
// branch is emitted, rather than nesting a patch inside every recursive
// call — a direct, renamed port of the original compiler's OpcodeBuilder
// beginIf/beginElse/endIf helper, which exists for the same reason: an
// else-if chain must not cost the compiler quadratic work to close.
type ifBuilder struct {
	pendingEnds []int
}

func newIfBuilder() *ifBuilder {
	return &ifBuilder{}
}

func (b *ifBuilder) addEnd(opcodeIndex int) {
	b.pendingEnds = append(b.pendingEnds, opcodeIndex)
}

func (b *ifBuilder) closeAll(e *femit) {
	end := e.here()
	for _, idx := range b.pendingEnds {
		e.patchJump(idx, end)
	}
}

// ifStmt compiles an if/else-if/else chain. root.Else, when non-nil, is
// either another *ast.IfStmt (an else-if link) or an *ast.Block (the
// final else) — the chain is flattened first so closing every branch's
// trailing jump stays linear in the chain's length.
func (e *femit) ifStmt(root *ast.IfStmt) *program.CompileError {
	var branches []*ast.IfStmt
	cur := root
	for {
		branches = append(branches, cur)
		next, ok := cur.Else.(*ast.IfStmt)
		if !ok {
			break
		}
		cur = next
	}

	var elseBlock *ast.Block
	if b, ok := cur.Else.(*ast.Block); ok {
		elseBlock = b
	}

	b := newIfBuilder()
	for _, branch := range branches {
		if err := e.expr(branch.Cond); err != nil {
			return err
		}
		condJump := e.emit(program.Opcode{Kind: program.JUMP_CONDITIONAL, LineNumber: uint32(branch.Line())})
		if err := e.block(branch.Then); err != nil {
			return err
		}
		endJump := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: uint32(branch.Line())})
		b.addEnd(endJump)
		e.patchJump(condJump, e.here())
	}
	if elseBlock != nil {
		if err := e.block(elseBlock); err != nil {
			return err
		}
	}
	b.closeAll(e)
	return nil
}
