// Package types defines the primitive data model shared by every stage of
// the core: the runtime scalar representations (BaseType), the source
// operators (Operator), and the closed set of primitive conversions
// (BaseCastType).
package types

import "fmt"

// BaseType is the primitive runtime representation carried by every opcode.
// It is a closed enumeration: every function in this package is total over
// its domain, never panicking on a valid BaseType.
type BaseType uint8

const (
	VOID BaseType = iota
	BOOL
	INT_CONST // untyped integer literal; the emitter pushes some constants with this type and the dispatcher handles it
	INT_8
	INT_16
	INT_32
	INT_64
	UINT_8
	UINT_16
	UINT_32
	UINT_64
	FLOAT
	DOUBLE

	baseTypeCount
)

var baseTypeNames = [baseTypeCount]string{
	VOID:      "void",
	BOOL:      "bool",
	INT_CONST: "int_const",
	INT_8:     "s8",
	INT_16:    "s16",
	INT_32:    "s32",
	INT_64:    "s64",
	UINT_8:    "u8",
	UINT_16:   "u16",
	UINT_32:   "u32",
	UINT_64:   "u64",
	FLOAT:     "float",
	DOUBLE:    "double",
}

func (t BaseType) String() string {
	if t < baseTypeCount {
		return baseTypeNames[t]
	}
	return fmt.Sprintf("basetype(%d)", uint8(t))
}

// IsSignedInt reports whether t is one of the signed integer widths.
func (t BaseType) IsSignedInt() bool {
	switch t {
	case INT_8, INT_16, INT_32, INT_64:
		return true
	}
	return false
}

// IsUnsignedInt reports whether t is one of the unsigned integer widths.
func (t BaseType) IsUnsignedInt() bool {
	switch t {
	case UINT_8, UINT_16, UINT_32, UINT_64:
		return true
	}
	return false
}

// IsInt reports whether t is any integer width, signed or unsigned, or the
// untyped integer constant type.
func (t BaseType) IsInt() bool {
	return t == INT_CONST || t.IsSignedInt() || t.IsUnsignedInt()
}

// IsFloat reports whether t is FLOAT or DOUBLE.
func (t BaseType) IsFloat() bool {
	return t == FLOAT || t == DOUBLE
}

// SizeOfBaseType is a total function: every BaseType, including VOID, maps
// to a defined byte size. INT_CONST sizes as an INT_64 since that is how
// constants are stored on the operand stack (spec: "Integer constants ...
// are always stored as i64 in the parameter").
func SizeOfBaseType(t BaseType) int {
	switch t {
	case VOID:
		return 0
	case BOOL, INT_8, UINT_8:
		return 1
	case INT_16, UINT_16:
		return 2
	case INT_32, UINT_32, FLOAT:
		return 4
	case INT_64, UINT_64, DOUBLE, INT_CONST:
		return 8
	default:
		return 8
	}
}

// MakeUnsigned returns the unsigned counterpart of an integer BaseType. For
// types where signedness carries no meaning (BOOL, VOID, the floating point
// types, INT_CONST) it is the identity. Total over BaseType.
func MakeUnsigned(t BaseType) BaseType {
	switch t {
	case INT_8:
		return UINT_8
	case INT_16:
		return UINT_16
	case INT_32:
		return UINT_32
	case INT_64:
		return UINT_64
	default:
		return t
	}
}
