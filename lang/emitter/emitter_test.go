package emitter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/lang/ast"
	"github.com/lemonscript/lemon/lang/emitter"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

type stubModule struct{ addrType types.BaseType }

func (m stubModule) VariableByID(program.VariableID) (any, bool)        { return nil, false }
func (m stubModule) FunctionByHash(uint64) (program.Function, bool)     { return nil, false }
func (m stubModule) ExternalAddressType() types.BaseType                { return m.addrType }

func newFn(ret types.BaseType) *program.ScriptFunction {
	return &program.ScriptFunction{Name: "f", ReturnType: ret}
}

func TestReturnVoidWithValueFails(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ReturnStmt{Value: &ast.Constant{Val: 1}},
	}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.VoidFunctionReturnsValue, err.Kind)
}

func TestReturnNonVoidMissingValueFails(t *testing.T) {
	fn := newFn(types.INT_32)
	body := &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{}}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.NonVoidFunctionMissingReturn, err.Kind)
}

func TestIfElseEmitsPatchedJumps(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.IfStmt{
			Cond: &ast.Constant{Val: 1},
			Then: &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{}}},
			Else: &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{}}},
		},
	}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	var jumpConds, jumps, returns int
	for _, op := range fn.Opcodes {
		switch op.Kind {
		case program.JUMP_CONDITIONAL:
			jumpConds++
		case program.JUMP:
			jumps++
		case program.RETURN:
			returns++
		}
	}
	require.Equal(t, 1, jumpConds)
	require.Equal(t, 1, jumps)
	require.Equal(t, 2, returns)

	// No jump targets past the end of the opcode vector.
	for _, op := range fn.Opcodes {
		if op.Kind == program.JUMP || op.Kind == program.JUMP_CONDITIONAL {
			require.LessOrEqual(t, int(op.Parameter), len(fn.Opcodes))
		}
	}
}

func TestCompoundAssignToMemoryReadsAddressOnce(t *testing.T) {
	fn := newFn(types.VOID)
	addr := &ast.VarRef{Var: &program.Variable{ID: program.MakeVariableID(program.LOCAL, 0), Name: "A0", DataType: types.UINT_32}}
	addr.T = types.UINT_32
	mem := &ast.MemoryAccess{Addr: addr}
	mem.T = types.UINT_8
	eight := &ast.Constant{Val: 8}
	eight.T = types.UINT_8
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Binary{Op: types.ASSIGN_PLUS, X: mem, Y: eight}},
	}}

	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	var reads, writes int
	for _, op := range fn.Opcodes {
		switch op.Kind {
		case program.READ_MEMORY:
			reads++
			require.EqualValues(t, 1, op.Parameter, "READ_MEMORY must not consume the address")
		case program.WRITE_MEMORY:
			writes++
		}
	}
	require.Equal(t, 1, reads)
	require.Equal(t, 1, writes)
}

func TestBreakOutsideLoopFails(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{&ast.BreakStmt{}}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.BreakOutsideLoop, err.Kind)
}

func TestWhileBreakPatchesToLoopEnd(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.WhileStmt{
			Cond: &ast.Constant{Val: 1},
			Body: &ast.Block{Stmts: []ast.Stmt{&ast.BreakStmt{}}},
		},
	}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	// The break's JUMP (inside the loop body) must target at or after the
	// loop's own trailing backward JUMP, i.e. past the loop entirely.
	var backwardJumpIdx, breakJumpIdx = -1, -1
	for i, op := range fn.Opcodes {
		if op.Kind == program.JUMP && int(op.Parameter) < i {
			backwardJumpIdx = i
		}
	}
	for i, op := range fn.Opcodes {
		if op.Kind == program.JUMP && i != backwardJumpIdx {
			breakJumpIdx = i
		}
	}
	require.GreaterOrEqual(t, breakJumpIdx, 0)
	require.Greater(t, fn.Opcodes[breakJumpIdx].Parameter, int64(backwardJumpIdx))
}

type stubFunc struct {
	name   string
	params []program.Parameter
	ret    types.BaseType
	flags  program.FunctionFlag
}

func (f stubFunc) Name() string                    { return f.name }
func (f stubFunc) Parameters() []program.Parameter { return f.params }
func (f stubFunc) ReturnType() types.BaseType      { return f.ret }
func (f stubFunc) Flags() program.FunctionFlag     { return f.flags }
func (f stubFunc) SignatureHash() uint64 {
	return program.SignatureHash(f.name, f.ret, f.params)
}

func boolCompare(v *program.Variable) *ast.Binary {
	ref := &ast.VarRef{Var: v}
	ref.T = v.DataType
	zero := &ast.Constant{}
	zero.T = v.DataType
	cmp := &ast.Binary{Op: types.COMPARE_GREATER, X: ref, Y: zero}
	cmp.T = types.BOOL
	return cmp
}

// TestShortCircuitAndLowersToConditionalJump is spec.md §8 scenario 3:
// "b = (x > 0) && (y > 0)" compiles to a conditional jump after the first
// comparison, with a PUSH_CONSTANT BOOL 0 on the false branch and the
// right-hand comparison only on the fallthrough path.
func TestShortCircuitAndLowersToConditionalJump(t *testing.T) {
	fn := newFn(types.VOID)
	x := &program.Variable{ID: program.MakeVariableID(program.LOCAL, 0), Name: "x", DataType: types.INT_32}
	y := &program.Variable{ID: program.MakeVariableID(program.LOCAL, 1), Name: "y", DataType: types.INT_32}
	b := &program.Variable{ID: program.MakeVariableID(program.LOCAL, 2), Name: "b", DataType: types.BOOL}

	and := &ast.Binary{Op: types.LOGICAL_AND, X: boolCompare(x), Y: boolCompare(y)}
	and.T = types.BOOL
	bRef := &ast.VarRef{Var: b}
	bRef.T = types.BOOL
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Binary{Op: types.ASSIGN, X: bRef, Y: and}},
	}}

	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	var condJumps, compares, falseConsts int
	condIdx := -1
	for i, op := range fn.Opcodes {
		switch op.Kind {
		case program.JUMP_CONDITIONAL:
			condJumps++
			condIdx = i
		case program.COMPARE_GT:
			compares++
		case program.PUSH_CONSTANT:
			if op.DataType == types.BOOL && op.Parameter == 0 {
				falseConsts++
			}
		}
	}
	require.Equal(t, 1, condJumps)
	require.Equal(t, 2, compares)
	require.Equal(t, 1, falseConsts, "the false branch pushes BOOL 0 exactly once")
	// The conditional's target (the false branch) lies past the right-hand
	// comparison, so y > 0 never evaluates when x > 0 is false.
	var lastCompare int
	for i, op := range fn.Opcodes {
		if op.Kind == program.COMPARE_GT {
			lastCompare = i
		}
	}
	require.Greater(t, fn.Opcodes[condIdx].Parameter, int64(lastCompare))
}

func bracketVar() *ast.VarRef {
	v := &program.Variable{ID: program.MakeVariableID(program.GLOBAL, 3), Name: "sprite", DataType: types.UINT_8}
	ref := &ast.VarRef{Var: v}
	ref.T = types.UINT_8
	return ref
}

func bracketGetter() stubFunc {
	return stubFunc{
		name: "sprite.get",
		params: []program.Parameter{
			{Name: "id", DataType: types.INT_CONST},
			{Name: "index", DataType: types.UINT_32},
		},
		ret: types.UINT_8,
	}
}

func bracketSetter(ret types.BaseType) stubFunc {
	return stubFunc{
		name: "sprite.set",
		params: []program.Parameter{
			{Name: "id", DataType: types.INT_CONST},
			{Name: "index", DataType: types.UINT_32},
			{Name: "value", DataType: types.UINT_8},
		},
		ret: ret,
	}
}

func TestBracketReadEmitsGetterCall(t *testing.T) {
	fn := newFn(types.UINT_8)
	base := bracketVar()
	idx := &ast.Constant{Val: 2}
	idx.T = types.UINT_32
	acc := &ast.BracketAccess{Base: base, Index: idx, Getter: bracketGetter()}
	acc.T = types.UINT_8
	body := &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: acc}}}

	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	require.Equal(t, program.PUSH_CONSTANT, fn.Opcodes[0].Kind)
	require.Equal(t, types.INT_CONST, fn.Opcodes[0].DataType)
	require.Equal(t, int64(base.Var.ID), fn.Opcodes[0].Parameter)
	require.Equal(t, program.PUSH_CONSTANT, fn.Opcodes[1].Kind, "index")
	require.Equal(t, program.CALL, fn.Opcodes[2].Kind)
	require.Equal(t, int64(bracketGetter().SignatureHash()), fn.Opcodes[2].Parameter)
}

func TestBracketCompoundAssignDuplicatesArgs(t *testing.T) {
	fn := newFn(types.VOID)
	base := bracketVar()
	idx := &ast.Constant{Val: 2}
	idx.T = types.UINT_32
	acc := &ast.BracketAccess{Base: base, Index: idx, Getter: bracketGetter(), Setter: bracketSetter(types.VOID)}
	acc.T = types.UINT_8
	eight := &ast.Constant{Val: 8}
	eight.T = types.UINT_8
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Binary{Op: types.ASSIGN_PLUS, X: acc, Y: eight}},
	}}

	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.Nil(t, err)

	var dups, calls, pads int
	for _, op := range fn.Opcodes {
		switch op.Kind {
		case program.DUPLICATE:
			dups++
			require.EqualValues(t, 2, op.Parameter, "the (id, index) pair is duplicated")
		case program.CALL:
			calls++
		case program.MOVE_STACK:
			if op.Parameter == 1 {
				pads++
			}
		}
	}
	require.Equal(t, 1, dups)
	require.Equal(t, 2, calls, "one getter call, one setter call")
	require.Equal(t, 0, pads, "the void setter's MOVE_STACK +1 pad coalesces with the statement's MOVE_STACK -1")
}

func TestBracketWriteWithoutSetterFails(t *testing.T) {
	fn := newFn(types.VOID)
	base := bracketVar()
	idx := &ast.Constant{Val: 0}
	idx.T = types.UINT_32
	acc := &ast.BracketAccess{Base: base, Index: idx, Getter: bracketGetter()}
	acc.T = types.UINT_8
	one := &ast.Constant{Val: 1}
	one.T = types.UINT_8
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Binary{Op: types.ASSIGN, X: acc, Y: one}},
	}}

	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.BracketOperatorUnsupported, err.Kind)
}

func TestColonOutsideTernaryFails(t *testing.T) {
	fn := newFn(types.VOID)
	one := &ast.Constant{Val: 1}
	two := &ast.Constant{Val: 2}
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Binary{Op: types.COLON, X: one, Y: two}},
	}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.UseOfColonOutsideTernary, err.Kind)
}

func TestUnknownLabelFails(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{&ast.GotoStmt{Label: "nope"}}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.UnknownLabel, err.Kind)
}

func TestDuplicateLabelFails(t *testing.T) {
	fn := newFn(types.VOID)
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.LabelStmt{Name: "l"},
		&ast.LabelStmt{Name: "l"},
	}}
	err := emitter.CompileFunctionBody(fn, body, emitter.EmitConfig{Module: stubModule{}})
	require.NotNil(t, err)
	require.Equal(t, program.DuplicateLabel, err.Kind)
}
