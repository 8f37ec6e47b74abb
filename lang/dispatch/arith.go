package dispatch

import (
	"math"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// asFloat/asDouble (and fromFloat/fromDouble, the reverse) re-interpret a stack slot's bit pattern as the
// matching Go float type, per spec.md §4.4: "floats/doubles are bit-cast"
// into the i64-sized slot, never boxed.
func asFloat(v int64) float64  { return float64(math.Float32frombits(uint32(v))) }
func asDouble(v int64) float64 { return math.Float64frombits(uint64(v)) }
func fromFloat(f float64) int64 {
	return int64(math.Float32bits(float32(f)))
}
func fromDouble(f float64) int64 { return int64(math.Float64bits(f)) }

// unsignedMask returns the bitmask a BaseType's width occupies within the
// 64-bit stack slot, so unsigned arithmetic/shift/comparison wraps the
// same way the original engine's fixed-width integers do.
func unsignedMask(dt types.BaseType) uint64 {
	switch dt {
	case types.UINT_8:
		return 0xff
	case types.UINT_16:
		return 0xffff
	case types.UINT_32:
		return 0xffffffff
	default:
		return 0xffffffffffffffff
	}
}

func signedWidth(dt types.BaseType) int {
	switch dt {
	case types.INT_8:
		return 8
	case types.INT_16:
		return 16
	case types.INT_32:
		return 32
	default:
		return 64
	}
}

func signExtend(v int64, width int) int64 {
	if width >= 64 {
		return v
	}
	shift := uint(64 - width)
	return (v << shift) >> shift
}

// binOp applies a per-BaseType binary arithmetic/comparison operation to
// the top two stack slots, replacing them with the single result — the
// "templated on base type, with one handler per op" shape spec.md §4.3
// describes, realized in Go as one closure per registered (kind, type)
// pair rather than a compiler-generated template instantiation.
type binOp func(x, y int64, dt types.BaseType) int64

func registerBinary(kind program.OpcodeKind, op binOp) {
	registerAllNumeric(kind, 0, func(o program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		dt := o.DataType
		return func(ctx *Context, rt *RuntimeOpcode) {
			y := ctx.Pop()
			x := ctx.Pop()
			ctx.Push(op(x, y, dt))
		}
	})
}

type unaryOp func(x int64, dt types.BaseType) int64

func registerUnary(kind program.OpcodeKind, op unaryOp) {
	registerAllNumeric(kind, 0, func(o program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc {
		dt := o.DataType
		return func(ctx *Context, rt *RuntimeOpcode) {
			x := ctx.Pop()
			ctx.Push(op(x, dt))
		}
	})
}

func init() {
	registerBinary(program.ARITHM_ADD, func(x, y int64, dt types.BaseType) int64 {
		switch {
		case dt == types.FLOAT:
			return fromFloat(asFloat(x) + asFloat(y))
		case dt == types.DOUBLE:
			return fromDouble(asDouble(x) + asDouble(y))
		case dt.IsUnsignedInt():
			return int64((uint64(x) + uint64(y)) & unsignedMask(dt))
		default:
			return signExtend(x+y, signedWidth(dt))
		}
	})
	registerBinary(program.ARITHM_SUB, func(x, y int64, dt types.BaseType) int64 {
		switch {
		case dt == types.FLOAT:
			return fromFloat(asFloat(x) - asFloat(y))
		case dt == types.DOUBLE:
			return fromDouble(asDouble(x) - asDouble(y))
		case dt.IsUnsignedInt():
			return int64((uint64(x) - uint64(y)) & unsignedMask(dt))
		default:
			return signExtend(x-y, signedWidth(dt))
		}
	})
	registerBinary(program.ARITHM_MUL, func(x, y int64, dt types.BaseType) int64 {
		switch {
		case dt == types.FLOAT:
			return fromFloat(asFloat(x) * asFloat(y))
		case dt == types.DOUBLE:
			return fromDouble(asDouble(x) * asDouble(y))
		case dt.IsUnsignedInt():
			return int64((uint64(x) * uint64(y)) & unsignedMask(dt))
		default:
			return signExtend(x*y, signedWidth(dt))
		}
	})
	registerBinary(program.ARITHM_DIV, func(x, y int64, dt types.BaseType) int64 {
		switch {
		case dt == types.FLOAT:
			return fromFloat(asFloat(x) / asFloat(y))
		case dt == types.DOUBLE:
			return fromDouble(asDouble(x) / asDouble(y))
		case dt.IsUnsignedInt():
			return int64(SafeDivideUnsigned(uint64(x)&unsignedMask(dt), uint64(y)&unsignedMask(dt)))
		default:
			return signExtend(SafeDivideSigned(x, y), signedWidth(dt))
		}
	})
	registerBinary(program.ARITHM_MOD, func(x, y int64, dt types.BaseType) int64 {
		if dt.IsUnsignedInt() {
			return int64(SafeModuloUnsigned(uint64(x)&unsignedMask(dt), uint64(y)&unsignedMask(dt)))
		}
		return signExtend(SafeModuloSigned(x, y), signedWidth(dt))
	})
	registerBinary(program.ARITHM_AND, func(x, y int64, dt types.BaseType) int64 {
		return int64((uint64(x) & uint64(y)) & unsignedMask(dt))
	})
	registerBinary(program.ARITHM_OR, func(x, y int64, dt types.BaseType) int64 {
		return int64((uint64(x) | uint64(y)) & unsignedMask(dt))
	})
	registerBinary(program.ARITHM_XOR, func(x, y int64, dt types.BaseType) int64 {
		return int64((uint64(x) ^ uint64(y)) & unsignedMask(dt))
	})
	registerBinary(program.ARITHM_SHL, func(x, y int64, dt types.BaseType) int64 {
		return int64((uint64(x) << uint(y)) & unsignedMask(dt))
	})
	// ARITHM_SHR preserves the signedness of the left operand, per spec.md
	// §4.1 ("shifts use the declared shift type but preserve signedness of
	// the left operand"); the dispatcher normalization leaves SHR's own
	// type alone (it is not in the unsigned-normalized kind list) so the
	// registered dataType here still reflects the left operand's sign.
	registerBinary(program.ARITHM_SHR, func(x, y int64, dt types.BaseType) int64 {
		if dt.IsUnsignedInt() {
			return int64((uint64(x) & unsignedMask(dt)) >> uint(y))
		}
		return signExtend(x>>uint(y), signedWidth(dt))
	})

	registerUnary(program.ARITHM_NEG, func(x int64, dt types.BaseType) int64 {
		switch dt {
		case types.FLOAT:
			return fromFloat(-asFloat(x))
		case types.DOUBLE:
			return fromDouble(-asDouble(x))
		default:
			return signExtend(-x, signedWidth(dt))
		}
	})
	registerUnary(program.ARITHM_NOT, func(x int64, dt types.BaseType) int64 {
		if x == 0 {
			return 1
		}
		return 0
	})
	registerUnary(program.ARITHM_BITNOT, func(x int64, dt types.BaseType) int64 {
		return int64(^uint64(x) & unsignedMask(dt))
	})

	registerBinary(program.COMPARE_EQ, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) == 0) })
	registerBinary(program.COMPARE_NEQ, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) != 0) })
	registerBinary(program.COMPARE_LT, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) < 0) })
	registerBinary(program.COMPARE_LE, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) <= 0) })
	registerBinary(program.COMPARE_GT, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) > 0) })
	registerBinary(program.COMPARE_GE, func(x, y int64, dt types.BaseType) int64 { return boolInt(compareValues(x, y, dt) >= 0) })
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// compareValues returns a value whose sign matches x's ordering against y
// under dt's interpretation: negative, zero, or positive.
func compareValues(x, y int64, dt types.BaseType) int {
	switch {
	case dt == types.FLOAT:
		fx, fy := asFloat(x), asFloat(y)
		switch {
		case fx < fy:
			return -1
		case fx > fy:
			return 1
		default:
			return 0
		}
	case dt == types.DOUBLE:
		fx, fy := asDouble(x), asDouble(y)
		switch {
		case fx < fy:
			return -1
		case fx > fy:
			return 1
		default:
			return 0
		}
	case dt.IsUnsignedInt():
		ux, uy := uint64(x)&unsignedMask(dt), uint64(y)&unsignedMask(dt)
		switch {
		case ux < uy:
			return -1
		case ux > uy:
			return 1
		default:
			return 0
		}
	default:
		sx, sy := signExtend(x, signedWidth(dt)), signExtend(y, signedWidth(dt))
		switch {
		case sx < sy:
			return -1
		case sx > sy:
			return 1
		default:
			return 0
		}
	}
}
