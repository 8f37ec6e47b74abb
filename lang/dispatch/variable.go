package dispatch

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// registerVariableAccess wires the four GET_/SET_VARIABLE_VALUE storage
// class variants spec.md §4.3 names: LOCAL reads/writes the current
// frame's local region at an offset resolved from the owning
// ScriptFunction's local table; GLOBAL resolves a stable backing pointer
// once, at dispatch-build time; USER invokes the module's getter/setter
// closures; EXTERNAL is like GLOBAL but obtains its pointer through an
// accessor closure, also resolved once at build time (the host's backing
// memory may move between module loads, but not mid-dispatch).
func init() {
	for _, dt := range numericKinds() {
		register(program.GET_VARIABLE_VALUE, dt, int8(program.LOCAL), buildGetLocal)
		register(program.SET_VARIABLE_VALUE, dt, int8(program.LOCAL), buildSetLocal)
		register(program.GET_VARIABLE_VALUE, dt, int8(program.GLOBAL), buildGetGlobal)
		register(program.SET_VARIABLE_VALUE, dt, int8(program.GLOBAL), buildSetGlobal)
		register(program.GET_VARIABLE_VALUE, dt, int8(program.USER), buildGetUser)
		register(program.SET_VARIABLE_VALUE, dt, int8(program.USER), buildSetUser)
		register(program.GET_VARIABLE_VALUE, dt, int8(program.EXTERNAL), buildGetExternal)
		register(program.SET_VARIABLE_VALUE, dt, int8(program.EXTERNAL), buildSetExternal)
	}
}

func numericKinds() []types.BaseType {
	return []types.BaseType{
		types.BOOL, types.UINT_8, types.UINT_16, types.UINT_32, types.UINT_64,
		types.INT_8, types.INT_16, types.INT_32, types.INT_64, types.FLOAT, types.DOUBLE,
	}
}

func localOffset(op program.Opcode, fn *program.ScriptFunction) int {
	id := program.VariableID(op.Parameter)
	v, ok := fn.LocalByID(id)
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown local variable id %d", id))
	}
	return int(v.LocalMemoryOffset / 8)
}

func buildGetLocal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	off := localOffset(op, fn)
	return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(ctx.Locals[off]) }
}

// Every SET handler reads the stack top without consuming it: an
// assignment is an expression whose value is the assigned value, and the
// emitter pairs each value-discarding SET with an explicit MOVE_STACK -1
// (statement context, function prologue) rather than baking the pop into
// the opcode itself.
func buildSetLocal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	off := localOffset(op, fn)
	return func(ctx *Context, rt *RuntimeOpcode) { ctx.Locals[off] = ctx.Top() }
}

func buildGetGlobal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown global variable id %d", op.Parameter))
	}
	g := v.(program.GlobalVariable)
	addr := g.Address()
	return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(*addr) }
}

func buildSetGlobal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown global variable id %d", op.Parameter))
	}
	g := v.(program.GlobalVariable)
	addr := g.Address()
	return func(ctx *Context, rt *RuntimeOpcode) { *addr = ctx.Top() }
}

func buildGetUser(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown user variable id %d", op.Parameter))
	}
	u := v.(program.UserDefinedVariable)
	return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(u.Get()) }
}

func buildSetUser(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown user variable id %d", op.Parameter))
	}
	u := v.(program.UserDefinedVariable)
	return func(ctx *Context, rt *RuntimeOpcode) { u.Set(ctx.Top()) }
}

func buildGetExternal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown external variable id %d", op.Parameter))
	}
	e := v.(program.ExternalVariable)
	addr := e.Address()
	return func(ctx *Context, rt *RuntimeOpcode) { ctx.Push(*addr) }
}

func buildSetExternal(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
	v, ok := mod.VariableByID(program.VariableID(op.Parameter))
	if !ok {
		panic(fmt.Sprintf("dispatch: unknown external variable id %d", op.Parameter))
	}
	e := v.(program.ExternalVariable)
	addr := e.Address()
	return func(ctx *Context, rt *RuntimeOpcode) { *addr = ctx.Top() }
}
