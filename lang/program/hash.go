package program

import "github.com/lemonscript/lemon/lang/types"

// FNV-1a 64-bit constants, the same accumulator shape the original engine's
// QuickDataHasher uses for its content-addressed hashes.
const (
	fnvOffsetBasis uint64 = 14695981039346656037
	fnvPrime       uint64 = 1099511628211
)

func fnvWriteByte(h uint64, b byte) uint64 {
	h ^= uint64(b)
	h *= fnvPrime
	return h
}

func fnvWriteUint64(h uint64, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h = fnvWriteByte(h, byte(v))
		v >>= 8
	}
	return h
}

func fnvWriteString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = fnvWriteByte(h, s[i])
	}
	return h
}

// CompiledHash is an FNV-1a accumulator over every opcode's
// (Kind, DataType, Parameter) triple, in order. Two functions that differ
// only in comments or whitespace in their original source produce the same
// hash, since only the compiled opcode stream feeds the accumulator — never
// line numbers or flags (those are debugging/optimizer metadata, not
// semantic content).
func (fn *ScriptFunction) CompiledHash() uint64 {
	h := fnvOffsetBasis
	for _, op := range fn.Opcodes {
		h = fnvWriteByte(h, byte(op.Kind))
		h = fnvWriteByte(h, byte(op.DataType))
		h = fnvWriteUint64(h, uint64(op.Parameter))
	}
	return h
}

// SignatureHash computes the stable FNV-1a digest of (name, return type,
// parameter types) identifying a function overload, used by CALL opcodes
// and Module.FunctionByHash implementations.
func SignatureHash(name string, returnType types.BaseType, params []Parameter) uint64 {
	h := fnvOffsetBasis
	h = fnvWriteString(h, name)
	h = fnvWriteByte(h, byte(returnType))
	for _, p := range params {
		h = fnvWriteByte(h, byte(p.DataType))
	}
	return h
}
