package dispatch

import (
	"encoding/binary"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// READ_MEMORY/WRITE_MEMORY operate on ctx.Memory, the flat byte-addressable
// region backing lemonscript's `mem[]` array accessors. Per spec.md §7, an
// out-of-range access clamps rather than traps: reads return 0, writes are
// dropped.
func init() {
	for _, dt := range memoryKinds() {
		width := types.SizeOfBaseType(dt)
		register(program.READ_MEMORY, dt, 0, buildReadMemory(width, dt, false))
		register(program.READ_MEMORY, dt, 1, buildReadMemory(width, dt, true))
		register(program.WRITE_MEMORY, dt, 0, buildWriteMemory(width, dt))
	}
}

func memoryKinds() []types.BaseType {
	return []types.BaseType{
		types.UINT_8, types.UINT_16, types.UINT_32, types.UINT_64,
		types.FLOAT, types.DOUBLE,
	}
}

// buildReadMemory builds READ_MEMORY's two variants. keepAddr corresponds
// to Parameter==1 (emitter/expr.go's assignMemory): the address is left on
// the stack beneath the loaded value so a paired WRITE_MEMORY can reuse it
// without re-evaluating a (possibly side-effecting) address expression.
func buildReadMemory(width int, dt types.BaseType, keepAddr bool) handlerBuilder {
	return func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {
			var addr int64
			if keepAddr {
				addr = ctx.Top()
			} else {
				addr = ctx.Pop()
			}
			lo, hi, ok := clampMemoryRange(ctx.Memory, addr, width)
			if !ok {
				ctx.Push(0)
				return
			}
			ctx.Push(loadBytes(ctx.Memory[lo:hi], dt))
		}
	}
}

// buildWriteMemory consumes value + address and leaves the value back on
// top: a memory store is an expression whose result is the stored value,
// the same convention SET_VARIABLE_VALUE follows.
func buildWriteMemory(width int, dt types.BaseType) handlerBuilder {
	return func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		return func(ctx *Context, rt *RuntimeOpcode) {
			v := ctx.Pop()
			addr := ctx.Pop()
			ctx.Push(v)
			lo, hi, ok := clampMemoryRange(ctx.Memory, addr, width)
			if !ok {
				return
			}
			storeBytes(ctx.Memory[lo:hi], dt, v)
		}
	}
}

func loadBytes(b []byte, dt types.BaseType) int64 {
	switch dt {
	case types.UINT_8:
		return int64(b[0])
	case types.UINT_16:
		return int64(binary.LittleEndian.Uint16(b))
	case types.UINT_32:
		return int64(binary.LittleEndian.Uint32(b))
	case types.UINT_64:
		return int64(binary.LittleEndian.Uint64(b))
	case types.FLOAT:
		return int64(binary.LittleEndian.Uint32(b))
	case types.DOUBLE:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func storeBytes(b []byte, dt types.BaseType, v int64) {
	switch dt {
	case types.UINT_8:
		b[0] = byte(v)
	case types.UINT_16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case types.UINT_32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case types.UINT_64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case types.FLOAT:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case types.DOUBLE:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}
