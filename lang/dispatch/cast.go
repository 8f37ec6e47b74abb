package dispatch

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// buildCast returns the ExecFunc for a single CAST_VALUE opcode: a dense
// switch over BaseCastType choosing a handler templated on
// (sourceRustType, targetRustType), per spec.md §4.3 — "Rust" there is the
// original design note's own terminology for "the two concrete scalar
// types this conversion is between"; here it is simply two Go types
// picked by the switch arms below.
func buildCast(op program.Opcode) ExecFunc {
	cast := types.BaseCastType(op.Parameter)
	return func(ctx *Context, rt *RuntimeOpcode) {
		v := ctx.Pop()
		ctx.Push(applyCast(cast, v))
	}
}

func applyCast(cast types.BaseCastType, v int64) int64 {
	switch cast {
	// cast down: truncate then sign-extend to the narrower width
	case types.INT_16_TO_8, types.INT_32_TO_8, types.INT_64_TO_8:
		return signExtend(v, 8)
	case types.INT_32_TO_16, types.INT_64_TO_16:
		return signExtend(v, 16)
	case types.INT_64_TO_32:
		return signExtend(v, 32)

	// cast up, unsigned source: zero-extend (a no-op on the bit pattern,
	// since narrower unsigned values are already stored zero-extended)
	case types.UINT_8_TO_16, types.UINT_8_TO_32, types.UINT_8_TO_64,
		types.UINT_16_TO_32, types.UINT_16_TO_64, types.UINT_32_TO_64:
		return v

	// cast up, signed source: sign-extend from the source width
	case types.SINT_8_TO_16, types.SINT_8_TO_32, types.SINT_8_TO_64:
		return signExtend(v, 8)
	case types.SINT_16_TO_32, types.SINT_16_TO_64:
		return signExtend(v, 16)
	case types.SINT_32_TO_64:
		return signExtend(v, 32)

	// integer -> float
	case types.UINT_8_TO_FLOAT, types.UINT_16_TO_FLOAT, types.UINT_32_TO_FLOAT, types.UINT_64_TO_FLOAT:
		return fromFloat(float64(uint64(v)))
	case types.SINT_8_TO_FLOAT:
		return fromFloat(float64(signExtend(v, 8)))
	case types.SINT_16_TO_FLOAT:
		return fromFloat(float64(signExtend(v, 16)))
	case types.SINT_32_TO_FLOAT:
		return fromFloat(float64(signExtend(v, 32)))
	case types.SINT_64_TO_FLOAT:
		return fromFloat(float64(v))

	// integer -> double
	case types.UINT_8_TO_DOUBLE, types.UINT_16_TO_DOUBLE, types.UINT_32_TO_DOUBLE, types.UINT_64_TO_DOUBLE:
		return fromDouble(float64(uint64(v)))
	case types.SINT_8_TO_DOUBLE:
		return fromDouble(float64(signExtend(v, 8)))
	case types.SINT_16_TO_DOUBLE:
		return fromDouble(float64(signExtend(v, 16)))
	case types.SINT_32_TO_DOUBLE:
		return fromDouble(float64(signExtend(v, 32)))
	case types.SINT_64_TO_DOUBLE:
		return fromDouble(float64(v))

	// float -> integer
	case types.FLOAT_TO_UINT_8:
		return int64(uint8(asFloat(v)))
	case types.FLOAT_TO_UINT_16:
		return int64(uint16(asFloat(v)))
	case types.FLOAT_TO_UINT_32:
		return int64(uint32(asFloat(v)))
	case types.FLOAT_TO_UINT_64:
		return int64(uint64(asFloat(v)))
	case types.FLOAT_TO_SINT_8:
		return int64(int8(asFloat(v)))
	case types.FLOAT_TO_SINT_16:
		return int64(int16(asFloat(v)))
	case types.FLOAT_TO_SINT_32:
		return int64(int32(asFloat(v)))
	case types.FLOAT_TO_SINT_64:
		return int64(asFloat(v))

	// double -> integer
	case types.DOUBLE_TO_UINT_8:
		return int64(uint8(asDouble(v)))
	case types.DOUBLE_TO_UINT_16:
		return int64(uint16(asDouble(v)))
	case types.DOUBLE_TO_UINT_32:
		return int64(uint32(asDouble(v)))
	case types.DOUBLE_TO_UINT_64:
		return int64(uint64(asDouble(v)))
	case types.DOUBLE_TO_SINT_8:
		return int64(int8(asDouble(v)))
	case types.DOUBLE_TO_SINT_16:
		return int64(int16(asDouble(v)))
	case types.DOUBLE_TO_SINT_32:
		return int64(int32(asDouble(v)))
	case types.DOUBLE_TO_SINT_64:
		return int64(asDouble(v))

	// float <-> double
	case types.FLOAT_TO_DOUBLE:
		return fromDouble(float64(asFloat(v)))
	case types.DOUBLE_TO_FLOAT:
		return fromFloat(asDouble(v))

	default:
		panic(fmt.Sprintf("dispatch: unhandled BaseCastType %s", cast))
	}
}
