package emitter

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/ast"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// expr compiles x for its value, leaving exactly one slot on the value
// stack. Assignment targets are never reached through this path: Binary
// nodes carrying ASSIGN or a compound-assignment operator are routed to
// compileAssign, which knows how to address each lvalue shape.
func (e *femit) expr(x ast.Expr) *program.CompileError {
	line := uint32(x.Line())
	switch n := x.(type) {
	case *ast.Constant:
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: n.T, Parameter: n.Val, LineNumber: line})
		return nil

	case *ast.VarRef:
		e.emit(program.Opcode{Kind: program.GET_VARIABLE_VALUE, DataType: n.T, Parameter: int64(n.Var.ID), LineNumber: line})
		return nil

	case *ast.MemoryAccess:
		if err := e.expr(n.Addr); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: program.READ_MEMORY, DataType: n.T, LineNumber: line})
		return nil

	case *ast.BracketAccess:
		return e.bracketRead(n)

	case *ast.Cast:
		if err := e.expr(n.X); err != nil {
			return err
		}
		return e.castTo(n.X.Type(), n.T, line)

	case *ast.Call:
		return e.call(n)

	case *ast.Unary:
		return e.unary(n)

	case *ast.Binary:
		return e.binary(n)

	case *ast.Ternary:
		return e.ternary(n)

	case *ast.Paren:
		return e.expr(n.X)

	default:
		return program.NewCompileError(program.BadReadOnlyWrite, line, fmt.Sprintf("unsupported expression node %T", x))
	}
}

// castTo emits whatever opcode(s) are needed to convert a value already on
// the stack from source to target, per the NoCast/BaseCast/AnyCast
// resolution in types.LookupCast.
func (e *femit) castTo(source, target types.BaseType, line uint32) *program.CompileError {
	kind, cast, ok := types.LookupCast(source, target)
	if !ok {
		return &program.CompileError{
			Kind:       program.InvalidCast,
			LineNumber: line,
			Detail:     fmt.Sprintf("%s -> %s", source, target),
		}
	}
	switch kind {
	case types.NoCast:
		// identity, nothing to emit
	case types.BaseCast:
		e.emit(program.Opcode{Kind: program.CAST_VALUE, DataType: target, Parameter: int64(cast), LineNumber: line})
	case types.AnyCast:
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_CONST, Parameter: int64(source), LineNumber: line})
	}
	return nil
}

// exprCast compiles x and casts its result to target.
func (e *femit) exprCast(x ast.Expr, target types.BaseType) *program.CompileError {
	if err := e.expr(x); err != nil {
		return err
	}
	return e.castTo(x.Type(), target, uint32(x.Line()))
}

func (e *femit) call(c *ast.Call) *program.CompileError {
	params := c.Func.Parameters()
	for i, arg := range c.Args {
		target := arg.Type()
		if i < len(params) {
			target = params[i].DataType
		}
		if err := e.exprCast(arg, target); err != nil {
			return err
		}
	}
	e.emitCallOpcode(c.Func, uint32(c.Line()))
	return nil
}

// emitCallOpcode emits the CALL for fn. The DataType slot doubles as a
// flag here, not a real type: 1 marks an ordinary script-function call the
// dispatcher leaves non-handled; 0 marks a call the dispatcher may still
// rewrite into an inline native call if the callee allows it.
func (e *femit) emitCallOpcode(fn program.Function, line uint32) {
	dataType := types.BaseType(0)
	if fn.Flags()&program.AllowInlineExecution == 0 {
		dataType = types.BaseType(1)
	}
	e.emit(program.Opcode{Kind: program.CALL, DataType: dataType, Parameter: int64(fn.SignatureHash()), LineNumber: line})
}

// bracketRead compiles `base[index]` as an r-value: the variable's id is
// pushed as an INT_CONST argument, the index is cast to the bracket
// operator's declared index parameter type, and the getter is called.
func (e *femit) bracketRead(b *ast.BracketAccess) *program.CompileError {
	line := uint32(b.Line())
	if b.Getter == nil {
		return program.NewCompileError(program.BracketOperatorUnsupported, line, "no getter declared")
	}
	e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_CONST, Parameter: int64(b.Base.Var.ID), LineNumber: line})
	if err := e.bracketIndex(b); err != nil {
		return err
	}
	e.emitCallOpcode(b.Getter, line)
	return nil
}

// bracketIndex compiles b's index expression and casts it to the bracket
// operator's index parameter type: the getter's last declared parameter,
// or for a setter-only operator, the setter's second-to-last (its last is
// the stored value).
func (e *femit) bracketIndex(b *ast.BracketAccess) *program.CompileError {
	target := b.Index.Type()
	if b.Getter != nil {
		if ps := b.Getter.Parameters(); len(ps) > 0 {
			target = ps[len(ps)-1].DataType
		}
	} else if b.Setter != nil {
		if ps := b.Setter.Parameters(); len(ps) >= 2 {
			target = ps[len(ps)-2].DataType
		}
	}
	return e.exprCast(b.Index, target)
}

// bracketVoidPad keeps the stack balance predictable after a setter call:
// a void setter pushes nothing, so a dummy slot stands in for the
// assignment expression's value.
func (e *femit) bracketVoidPad(setter program.Function, line uint32) {
	if setter.ReturnType() == types.VOID {
		e.addMoveStack(1, line)
	}
}

func (e *femit) unary(u *ast.Unary) *program.CompileError {
	if u.Op == types.INCREMENT || u.Op == types.DECREMENT {
		return e.incdec(u)
	}
	if err := e.expr(u.X); err != nil {
		return err
	}
	kind, ok := unaryOpcodeKind(u.Op)
	if !ok {
		return program.NewCompileError(program.BadReadOnlyWrite, uint32(u.Line()), fmt.Sprintf("unsupported unary operator %s", u.Op))
	}
	e.emit(program.Opcode{Kind: kind, DataType: u.T, LineNumber: uint32(u.Line())})
	return nil
}

// incdec compiles ++/-- uniformly for pre- and post-fix — per DESIGN.md's
// Open Question decision, both emit the same opcodes and both leave the
// updated value on the stack for a caller consuming the result.
func (e *femit) incdec(u *ast.Unary) *program.CompileError {
	line := uint32(u.Line())
	arithm := program.ARITHM_ADD
	if u.Op == types.DECREMENT {
		arithm = program.ARITHM_SUB
	}
	switch x := u.X.(type) {
	case *ast.VarRef:
		e.emit(program.Opcode{Kind: program.GET_VARIABLE_VALUE, DataType: x.T, Parameter: int64(x.Var.ID), LineNumber: line})
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: x.T, Parameter: 1, LineNumber: line})
		e.emit(program.Opcode{Kind: arithm, DataType: x.T, LineNumber: line})
		e.emit(program.Opcode{Kind: program.SET_VARIABLE_VALUE, DataType: x.T, Parameter: int64(x.Var.ID), LineNumber: line})
		return nil
	case *ast.MemoryAccess:
		if err := e.expr(x.Addr); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: program.READ_MEMORY, DataType: x.T, Parameter: 1, LineNumber: line})
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: x.T, Parameter: 1, LineNumber: line})
		e.emit(program.Opcode{Kind: arithm, DataType: x.T, LineNumber: line})
		e.emit(program.Opcode{Kind: program.WRITE_MEMORY, DataType: x.T, LineNumber: line})
		return nil
	case *ast.BracketAccess:
		if x.Getter == nil || x.Setter == nil {
			return program.NewCompileError(program.BracketOperatorUnsupported, line, "")
		}
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_CONST, Parameter: int64(x.Base.Var.ID), LineNumber: line})
		if err := e.bracketIndex(x); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: program.DUPLICATE, Parameter: 2, LineNumber: line})
		e.emitCallOpcode(x.Getter, line)
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: x.T, Parameter: 1, LineNumber: line})
		e.emit(program.Opcode{Kind: arithm, DataType: x.T, LineNumber: line})
		e.emitCallOpcode(x.Setter, line)
		e.bracketVoidPad(x.Setter, line)
		return nil
	default:
		return program.NewCompileError(program.BadReadOnlyWrite, line, "")
	}
}

func (e *femit) binary(b *ast.Binary) *program.CompileError {
	if b.Op == types.ASSIGN || b.Op.IsCompoundAssign() {
		return e.compileAssign(b)
	}
	if b.Op == types.LOGICAL_AND {
		return e.shortCircuit(b, true)
	}
	if b.Op == types.LOGICAL_OR {
		return e.shortCircuit(b, false)
	}
	if b.Op == types.COLON {
		// A well-formed ternary arrives as an ast.Ternary node; a raw COLON
		// operator means the frontend saw a ':' with no enclosing '?'.
		return program.NewCompileError(program.UseOfColonOutsideTernary, uint32(b.Line()), "")
	}

	line := uint32(b.Line())
	x, y := b.X, b.Y
	if b.Op.IsCommutative() {
		if _, xConst := x.(*ast.Constant); xConst {
			if _, yConst := y.(*ast.Constant); !yConst {
				x, y = y, x
			}
		}
	}
	if err := e.expr(x); err != nil {
		return err
	}
	if err := e.expr(y); err != nil {
		return err
	}
	kind, ok := binaryOpcodeKind(b.Op)
	if !ok {
		return program.NewCompileError(program.BadReadOnlyWrite, line, fmt.Sprintf("unsupported operator %s", b.Op))
	}
	e.emit(program.Opcode{Kind: kind, DataType: b.T, LineNumber: line})
	return nil
}

// shortCircuit lowers && / || to the conditional-jump form described in
// spec.md: `A && B` is `if A then B else false`, `A || B` is
// `if A then true else B`. Expanding rather than emitting a dedicated
// opcode lets the optimizer's constant-condition pass fold these when one
// side is constant.
func (e *femit) shortCircuit(b *ast.Binary, isAnd bool) *program.CompileError {
	line := uint32(b.Line())
	if err := e.expr(b.X); err != nil {
		return err
	}
	condJump := e.emit(program.Opcode{Kind: program.JUMP_CONDITIONAL, LineNumber: line})
	if isAnd {
		if err := e.expr(b.Y); err != nil {
			return err
		}
	} else {
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 1, LineNumber: line})
	}
	endJump := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: line})
	e.patchJump(condJump, e.here())
	if isAnd {
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.BOOL, Parameter: 0, LineNumber: line})
	} else {
		if err := e.expr(b.Y); err != nil {
			return err
		}
	}
	e.patchJump(endJump, e.here())
	return nil
}

func (e *femit) ternary(t *ast.Ternary) *program.CompileError {
	line := uint32(t.Line())
	if err := e.expr(t.Cond); err != nil {
		return err
	}
	condJump := e.emit(program.Opcode{Kind: program.JUMP_CONDITIONAL, LineNumber: line})
	if err := e.expr(t.Then); err != nil {
		return err
	}
	endJump := e.emit(program.Opcode{Kind: program.JUMP, LineNumber: line})
	e.patchJump(condJump, e.here())
	if err := e.expr(t.Else); err != nil {
		return err
	}
	e.patchJump(endJump, e.here())
	return nil
}

// compileAssign handles `=` and every compound-assignment operator,
// dispatching on the concrete shape of the lvalue.
func (e *femit) compileAssign(b *ast.Binary) *program.CompileError {
	switch lhs := b.X.(type) {
	case *ast.VarRef:
		return e.assignVar(lhs, b)
	case *ast.MemoryAccess:
		return e.assignMemory(lhs, b)
	case *ast.BracketAccess:
		return e.assignBracket(lhs, b)
	default:
		return program.NewCompileError(program.BadReadOnlyWrite, uint32(b.Line()), fmt.Sprintf("%T is not assignable", b.X))
	}
}

func (e *femit) assignVar(v *ast.VarRef, b *ast.Binary) *program.CompileError {
	line := uint32(b.Line())
	if b.Op == types.ASSIGN {
		if err := e.exprCast(b.Y, v.T); err != nil {
			return err
		}
	} else {
		e.emit(program.Opcode{Kind: program.GET_VARIABLE_VALUE, DataType: v.T, Parameter: int64(v.Var.ID), LineNumber: line})
		if err := e.exprCast(b.Y, v.T); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: arithmKindFor(types.BinaryOperatorFor(b.Op)), DataType: v.T, LineNumber: line})
	}
	e.emit(program.Opcode{Kind: program.SET_VARIABLE_VALUE, DataType: v.T, Parameter: int64(v.Var.ID), LineNumber: line})
	return nil
}

// assignMemory handles `mem[addr] = ...` and `mem[addr] op= ...`. The
// address is compiled exactly once — READ_MEMORY's parameter=1 variant
// leaves it on the stack for the trailing WRITE_MEMORY — so an address
// expression with side effects (`u8[A0++] += 8`) is only evaluated once.
func (e *femit) assignMemory(m *ast.MemoryAccess, b *ast.Binary) *program.CompileError {
	line := uint32(b.Line())
	if err := e.expr(m.Addr); err != nil {
		return err
	}
	if b.Op == types.ASSIGN {
		if err := e.exprCast(b.Y, m.T); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: program.WRITE_MEMORY, DataType: m.T, LineNumber: line})
		return nil
	}
	e.emit(program.Opcode{Kind: program.READ_MEMORY, DataType: m.T, Parameter: 1, LineNumber: line})
	if err := e.exprCast(b.Y, m.T); err != nil {
		return err
	}
	e.emit(program.Opcode{Kind: arithmKindFor(types.BinaryOperatorFor(b.Op)), DataType: m.T, LineNumber: line})
	e.emit(program.Opcode{Kind: program.WRITE_MEMORY, DataType: m.T, LineNumber: line})
	return nil
}

// assignBracket handles `base[index] = ...` and `base[index] op= ...`. For
// the compound form, DUPLICATE 2 copies the (id, index) argument pair so it
// survives the getter call and feeds the setter afterwards — the index
// expression is evaluated exactly once either way.
func (e *femit) assignBracket(a *ast.BracketAccess, b *ast.Binary) *program.CompileError {
	line := uint32(b.Line())
	if a.Setter == nil {
		return program.NewCompileError(program.BracketOperatorUnsupported, line, "no setter declared")
	}

	if b.Op == types.ASSIGN {
		if err := e.exprCast(b.Y, a.T); err != nil {
			return err
		}
		e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_CONST, Parameter: int64(a.Base.Var.ID), LineNumber: line})
		if err := e.bracketIndex(a); err != nil {
			return err
		}
		e.emitCallOpcode(a.Setter, line)
		e.bracketVoidPad(a.Setter, line)
		return nil
	}

	if a.Getter == nil {
		return program.NewCompileError(program.BracketOperatorUnsupported, line, "no getter declared")
	}
	e.emit(program.Opcode{Kind: program.PUSH_CONSTANT, DataType: types.INT_CONST, Parameter: int64(a.Base.Var.ID), LineNumber: line})
	if err := e.bracketIndex(a); err != nil {
		return err
	}
	e.emit(program.Opcode{Kind: program.DUPLICATE, Parameter: 2, LineNumber: line})
	e.emitCallOpcode(a.Getter, line)
	if err := e.exprCast(b.Y, a.T); err != nil {
		return err
	}
	e.emit(program.Opcode{Kind: arithmKindFor(types.BinaryOperatorFor(b.Op)), DataType: a.T, LineNumber: line})
	e.emitCallOpcode(a.Setter, line)
	e.bracketVoidPad(a.Setter, line)
	return nil
}

func binaryOpcodeKind(op types.Operator) (program.OpcodeKind, bool) {
	switch op {
	case types.BINARY_PLUS:
		return program.ARITHM_ADD, true
	case types.BINARY_MINUS:
		return program.ARITHM_SUB, true
	case types.BINARY_MULTIPLY:
		return program.ARITHM_MUL, true
	case types.BINARY_DIVIDE:
		return program.ARITHM_DIV, true
	case types.BINARY_MODULO:
		return program.ARITHM_MOD, true
	case types.BINARY_AND:
		return program.ARITHM_AND, true
	case types.BINARY_OR:
		return program.ARITHM_OR, true
	case types.BINARY_XOR:
		return program.ARITHM_XOR, true
	case types.BINARY_SHIFT_LEFT:
		return program.ARITHM_SHL, true
	case types.BINARY_SHIFT_RIGHT:
		return program.ARITHM_SHR, true
	case types.COMPARE_EQUAL:
		return program.COMPARE_EQ, true
	case types.COMPARE_NOT_EQUAL:
		return program.COMPARE_NEQ, true
	case types.COMPARE_LESS:
		return program.COMPARE_LT, true
	case types.COMPARE_LESS_OR_EQUAL:
		return program.COMPARE_LE, true
	case types.COMPARE_GREATER:
		return program.COMPARE_GT, true
	case types.COMPARE_GREATER_OR_EQUAL:
		return program.COMPARE_GE, true
	}
	return 0, false
}

// arithmKindFor is binaryOpcodeKind without the ok result, for call sites
// that already know op is a plain binary operator (e.g. the result of
// types.BinaryOperatorFor on a compound-assignment operator).
func arithmKindFor(op types.Operator) program.OpcodeKind {
	kind, _ := binaryOpcodeKind(op)
	return kind
}

func unaryOpcodeKind(op types.Operator) (program.OpcodeKind, bool) {
	switch op {
	case types.UNARY_MINUS:
		return program.ARITHM_NEG, true
	case types.UNARY_NOT:
		return program.ARITHM_NOT, true
	case types.UNARY_BITNOT:
		return program.ARITHM_BITNOT, true
	}
	return 0, false
}
