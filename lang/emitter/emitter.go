// Package emitter compiles a syntax tree (lang/ast) into the opcode vector
// of a lang/program.ScriptFunction. It is the first of the core's three
// subsystems: the frontend (tokenizer, parser, preprocessor, type-checker)
// that produces the tree this package consumes is explicitly out of scope —
// CompileFunctionBody never re-type-checks, it trusts every node's
// precomputed Type().
package emitter

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/ast"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// EmitConfig carries the collaborators CompileFunctionBody needs beyond the
// function and tree themselves.
type EmitConfig struct {
	// Module resolves the external-address type used to cast EXTERNAL_CALL
	// and EXTERNAL_JUMP expressions.
	Module program.Module
}

// CompileFunctionBody is the single public entry point of this package: it
// compiles body into fn.Opcodes/fn.Labels, operating on fn's already
// declared Parameters and Locals. A non-nil *program.CompileError means
// fn.Opcodes may hold partial output that must never be executed.
func CompileFunctionBody(fn *program.ScriptFunction, body *ast.Block, cfg EmitConfig) *program.CompileError {
	e := &femit{fn: fn, cfg: cfg}
	e.prologue()
	if err := e.block(body); err != nil {
		return err
	}
	if err := e.resolveGotos(); err != nil {
		return err
	}
	e.ensureTrailingReturn()
	return nil
}

// ensureTrailingReturn appends a RETURN when the body's last statement
// does not already guarantee one, the way the original compiler always
// closes a function body with a return opcode regardless of how the
// source's control flow falls through. The RETURN is appended to a
// non-void function's fall-through as well: returnStmt's
// NonVoidFunctionMissingReturn check only rejects a return without a
// value, and no error is raised for a body that ends without a return.
func (e *femit) ensureTrailingReturn() {
	if n := len(e.fn.Opcodes); n > 0 && e.fn.Opcodes[n-1].Kind.IsTerminator() {
		return
	}
	e.emit(program.Opcode{Kind: program.RETURN})
}

type loopCtx struct {
	startOffset     int
	breakPending    []int
	continuePending []int
}

type pendingGoto struct {
	opcodeIndex int
	label       string
}

// femit holds the in-progress state for one function's compilation, the
// way the teacher's fcomp holds per-function compiler state.
type femit struct {
	fn  *program.ScriptFunction
	cfg EmitConfig

	loops        []*loopCtx
	pendingGotos []pendingGoto
}

func (e *femit) here() int { return len(e.fn.Opcodes) }

func (e *femit) emit(op program.Opcode) int {
	e.fn.Opcodes = append(e.fn.Opcodes, op)
	return len(e.fn.Opcodes) - 1
}

func (e *femit) patchJump(opcodeIndex, target int) {
	e.fn.Opcodes[opcodeIndex].Parameter = int64(target)
}

// addMoveStack merges a stack-depth delta into a trailing MOVE_STACK
// opcode, dropping it entirely if the merge nets to zero. Ported from the
// original emitter's addMoveStackOpcode.
func (e *femit) addMoveStack(n int64, line uint32) {
	if n == 0 {
		return
	}
	if len(e.fn.Opcodes) > 0 {
		last := &e.fn.Opcodes[len(e.fn.Opcodes)-1]
		if last.Kind == program.MOVE_STACK {
			last.Parameter += n
			if last.Parameter == 0 {
				e.fn.Opcodes = e.fn.Opcodes[:len(e.fn.Opcodes)-1]
			}
			return
		}
	}
	e.emit(program.Opcode{Kind: program.MOVE_STACK, Parameter: n, LineNumber: line})
}

// prologue emits the frame setup: MOVE_VAR_STACK to reserve local memory,
// then assigns parameters in reverse order since the caller pushed
// arguments left to right.
func (e *femit) prologue() {
	if e.fn.LocalVariablesMemorySize > 0 {
		e.emit(program.Opcode{
			Kind:      program.MOVE_VAR_STACK,
			Parameter: int64(e.fn.LocalVariablesMemorySize / 8),
		})
	}
	for i := len(e.fn.Parameters) - 1; i >= 0; i-- {
		p := e.fn.Parameters[i]
		local := e.fn.Locals[i]
		e.emit(program.Opcode{
			Kind:      program.SET_VARIABLE_VALUE,
			DataType:  p.DataType,
			Parameter: int64(local.ID),
		})
		e.addMoveStack(-1, 0)
	}
}

// resolveGotos backpatches every pending named-label jump recorded during
// block emission, once the whole body (and therefore the full label table)
// has been produced.
func (e *femit) resolveGotos() *program.CompileError {
	for _, g := range e.pendingGotos {
		off, ok := e.fn.LabelOffset(g.label)
		if !ok {
			return program.NewCompileError(program.UnknownLabel, e.fn.Opcodes[g.opcodeIndex].LineNumber, g.label)
		}
		e.patchJump(g.opcodeIndex, off)
	}
	return nil
}

func (e *femit) block(b *ast.Block) *program.CompileError {
	for _, s := range b.Stmts {
		if err := e.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *femit) stmt(s ast.Stmt) *program.CompileError {
	line := uint32(s.Line())
	switch s := s.(type) {
	case *ast.Block:
		return e.block(s)
	case *ast.ExprStmt:
		if err := e.expr(s.X); err != nil {
			return err
		}
		e.addMoveStack(-1, line)
		return nil
	case *ast.LabelStmt:
		if _, ok := e.fn.LabelOffset(s.Name); ok {
			return program.NewCompileError(program.DuplicateLabel, line, s.Name)
		}
		e.fn.Labels = append(e.fn.Labels, program.Label{Name: s.Name, OpcodeOffset: e.here()})
		return nil
	case *ast.GotoStmt:
		idx := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: line})
		e.pendingGotos = append(e.pendingGotos, pendingGoto{opcodeIndex: idx, label: s.Label})
		return nil
	case *ast.GotoIndirectStmt:
		return e.gotoIndirect(s)
	case *ast.BreakStmt:
		return e.breakStmt(line)
	case *ast.ContinueStmt:
		return e.continueStmt(line)
	case *ast.ReturnStmt:
		return e.returnStmt(s)
	case *ast.ExternalStmt:
		return e.externalStmt(s)
	case *ast.IfStmt:
		return e.ifStmt(s)
	case *ast.WhileStmt:
		return e.whileStmt(s)
	case *ast.ForStmt:
		return e.forStmt(s)
	default:
		return program.NewCompileError(program.BadReadOnlyWrite, line, fmt.Sprintf("unsupported statement node %T", s))
	}
}

func (e *femit) gotoIndirect(s *ast.GotoIndirectStmt) *program.CompileError {
	line := uint32(s.Line())
	if err := e.expr(s.Index); err != nil {
		return err
	}
	for _, label := range s.Labels {
		idx := e.emit(program.Opcode{Kind: program.JUMP_SWITCH, LineNumber: line})
		e.pendingGotos = append(e.pendingGotos, pendingGoto{opcodeIndex: idx, label: label})
	}
	// No case matched: drop the index value still sitting on the stack.
	e.addMoveStack(-1, line)
	return nil
}

func (e *femit) breakStmt(line uint32) *program.CompileError {
	if len(e.loops) == 0 {
		return program.NewCompileError(program.BreakOutsideLoop, line, "")
	}
	idx := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: line})
	lc := e.loops[len(e.loops)-1]
	lc.breakPending = append(lc.breakPending, idx)
	return nil
}

func (e *femit) continueStmt(line uint32) *program.CompileError {
	if len(e.loops) == 0 {
		return program.NewCompileError(program.ContinueOutsideLoop, line, "")
	}
	idx := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: line})
	lc := e.loops[len(e.loops)-1]
	lc.continuePending = append(lc.continuePending, idx)
	return nil
}

func (e *femit) returnStmt(s *ast.ReturnStmt) *program.CompileError {
	line := uint32(s.Line())
	if e.fn.ReturnType == types.VOID {
		if s.Value != nil {
			return program.NewCompileError(program.VoidFunctionReturnsValue, line, "")
		}
		e.emit(program.Opcode{Kind: program.RETURN, LineNumber: line})
		return nil
	}
	if s.Value == nil {
		return program.NewCompileError(program.NonVoidFunctionMissingReturn, line, "")
	}
	if err := e.expr(s.Value); err != nil {
		return err
	}
	if err := e.castTo(s.Value.Type(), e.fn.ReturnType, line); err != nil {
		return err
	}
	e.emit(program.Opcode{Kind: program.RETURN, LineNumber: line})
	return nil
}

func (e *femit) externalStmt(s *ast.ExternalStmt) *program.CompileError {
	line := uint32(s.Line())
	if s.Addr == nil {
		return program.NewCompileError(program.MissingIndex, line, "")
	}
	if err := e.expr(s.Addr); err != nil {
		return err
	}
	if err := e.castTo(s.Addr.Type(), e.cfg.Module.ExternalAddressType(), line); err != nil {
		return err
	}
	kind := program.EXTERNAL_CALL
	if s.Kind == ast.ExternalJump {
		kind = program.EXTERNAL_JUMP
	}
	e.emit(program.Opcode{Kind: kind, LineNumber: line})
	return nil
}

func (e *femit) whileStmt(s *ast.WhileStmt) *program.CompileError {
	start := e.here()
	if err := e.expr(s.Cond); err != nil {
		return err
	}
	condJump := e.emit(program.Opcode{Kind: program.JUMP_CONDITIONAL, LineNumber: uint32(s.Line())})

	lc := &loopCtx{startOffset: start}
	e.loops = append(e.loops, lc)
	err := e.block(s.Body)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}

	e.emit(program.Opcode{Kind: program.JUMP, Parameter: int64(start), LineNumber: uint32(s.Line())})
	end := e.here()
	e.patchJump(condJump, end)
	for _, b := range lc.breakPending {
		e.patchJump(b, end)
	}
	for _, c := range lc.continuePending {
		e.patchJump(c, start)
	}
	return nil
}

func (e *femit) forStmt(s *ast.ForStmt) *program.CompileError {
	line := uint32(s.Line())
	if s.Init != nil {
		if err := e.stmt(s.Init); err != nil {
			return err
		}
	}
	start := e.here()
	condJump := -1
	if s.Cond != nil {
		if err := e.expr(s.Cond); err != nil {
			return err
		}
		condJump = e.emit(program.Opcode{Kind: program.JUMP_CONDITIONAL, LineNumber: line})
	}

	lc := &loopCtx{startOffset: start}
	e.loops = append(e.loops, lc)
	bodyErr := e.block(s.Body)
	e.loops = e.loops[:len(e.loops)-1]
	if bodyErr != nil {
		return bodyErr
	}

	continuePos := e.here()
	if s.Iter != nil {
		if err := e.stmt(s.Iter); err != nil {
			return err
		}
	}
	e.emit(program.Opcode{Kind: program.JUMP, Parameter: int64(start), LineNumber: line})
	end := e.here()
	if condJump >= 0 {
		e.patchJump(condJump, end)
	}
	for _, b := range lc.breakPending {
		e.patchJump(b, end)
	}
	for _, c := range lc.continuePending {
		e.patchJump(c, continuePos)
	}
	return nil
}
