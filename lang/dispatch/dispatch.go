// Package dispatch implements the "default opcode provider" described in
// spec.md §4.3: it converts the optimized opcode stream produced by
// lang/optimizer into a RuntimeOpcode stream, each paired with a
// specialized execution function chosen by opcode kind, data type, and
// variable storage class. This is the third of the core's three
// subsystems; lang/vm's interpreter loop is the only consumer of its
// output.
package dispatch

import (
	"encoding/binary"
	"fmt"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// Context is threaded through every ExecFunc invocation. It exposes the
// value stack and the current call frame's local-variable region; it
// carries no reference back to the RuntimeOpcode buffer itself, so a
// handler cannot accidentally branch on its own — the only opcode that
// branches from inside a handler is JUMP_SWITCH, which does so by setting
// JumpTo, a signal lang/vm's main loop consults after the call returns.
type Context struct {
	Stack []int64
	SP    int

	Locals []int64

	// Memory backs READ_MEMORY/WRITE_MEMORY; addresses are plain offsets
	// into this slice, clamped rather than bounds-checked to a panic (see
	// lang/dispatch/safe.go, ported from spec.md §7's "array accessors ... clamp
	// or no-op").
	Memory []byte

	// JumpTo is -1 unless the just-executed opcode wants the main loop to
	// branch rather than fall through to the next RuntimeOpcode. Only
	// JUMP_SWITCH's handler sets it: every other control-flow opcode
	// (JUMP, JUMP_CONDITIONAL, CALL, RETURN, EXTERNAL_*) is left non-handled
	// per spec.md §4.3 and §8, so the main loop performs their control flow
	// itself by inspecting RuntimeOpcode.Kind directly.
	JumpTo int
}

func (c *Context) Push(v int64) {
	c.Stack[c.SP] = v
	c.SP++
}

func (c *Context) Pop() int64 {
	c.SP--
	return c.Stack[c.SP]
}

func (c *Context) Top() int64 { return c.Stack[c.SP-1] }

// ExecFunc is the specialized execution function paired with one
// RuntimeOpcode. rt is the very opcode being executed, so a handler can
// read its resolved Parameter (and, for inline native calls, its stashed
// function pointer) without a second indirection through the source
// opcode vector.
type ExecFunc func(ctx *Context, rt *RuntimeOpcode)

// RuntimeOpcode is the post-dispatch record spec.md §3 describes: an
// execution function, an inline parameter buffer sized 0, 8, or 16 bytes
// depending on opcode kind, a Next pointer used only by the optimized
// JUMP_CONDITIONAL variant (unused by this implementation — see
// DESIGN.md), the copied-over optimizer flags, and a run-length hint the
// VM's main loop uses to decide whether it can stay in the handled-opcode
// fast path or must re-dispatch.
type RuntimeOpcode struct {
	ExecFunc ExecFunc

	paramBytes [16]byte
	paramLen   uint8

	Next *RuntimeOpcode

	Kind     program.OpcodeKind
	DataType types.BaseType
	Flags    program.OpFlagSet

	SuccessiveHandledOpcodes uint32

	// nativeCall is set by buildCall for an inlined CALL opcode: the
	// resolved native function, bypassing the usual call-frame machinery.
	nativeCall program.Function
}

// Parameter decodes the first 8 bytes of the inline buffer as the opcode's
// polymorphic parameter (jump target, constant value, cast kind, ...).
func (rt *RuntimeOpcode) Parameter() int64 {
	return int64(binary.LittleEndian.Uint64(rt.paramBytes[:8]))
}

// setParameter stashes v in the inline buffer without touching paramLen:
// the meaningful byte count is decided per kind by paramByteLen, and a
// 0-byte opcode may still carry its raw parameter here for the VM's
// non-handled dispatch to read.
func (rt *RuntimeOpcode) setParameter(v int64) {
	binary.LittleEndian.PutUint64(rt.paramBytes[:8], uint64(v))
}

// ParamLen reports how many bytes of the inline buffer are meaningful: 0
// or 8, per spec.md §4.3's parameter-size selection rule (the 16-byte size
// belongs to the JUMP_CONDITIONAL variant this implementation never builds).
func (rt *RuntimeOpcode) ParamLen() int { return int(rt.paramLen) }

// NativeCall returns the inlined native function an inline-rewritten CALL
// opcode invokes directly, or nil if this opcode is not an inline call.
func (rt *RuntimeOpcode) NativeCall() program.Function { return rt.nativeCall }

// IsHandled reports whether lang/vm's main loop can dispatch this opcode
// through ExecFunc alone, or must perform control flow itself (JUMP,
// JUMP_CONDITIONAL, CALL to a non-inlined function, RETURN, EXTERNAL_*).
func (rt *RuntimeOpcode) IsHandled() bool { return rt.SuccessiveHandledOpcodes > 0 }

// dispatchKey is the three-dimensional index spec.md §4.3 describes:
// opcode kind, data type (already normalized to unsigned where
// signedness carries no semantic weight), and a small per-kind variant
// discriminant (storage class, MOVE_STACK's sign, READ_MEMORY's
// consuming/non-consuming mode, DUPLICATE's count).
type dispatchKey struct {
	Kind     program.OpcodeKind
	DataType types.BaseType
	Variant  int8
}

// handlerBuilder produces the concrete ExecFunc for one static opcode. For
// stateless kinds (arithmetic, comparisons, PUSH_CONSTANT, DUPLICATE,
// MOVE_STACK) it ignores mod/fn and returns a fixed closure, capturing
// op.Parameter at build time where it needs it; for kinds that need a one-time resolution at
// dispatch-build time (GET_/SET_VARIABLE_VALUE's GLOBAL/EXTERNAL storage
// classes) it captures the resolved pointer or offset in the closure.
type handlerBuilder func(op program.Opcode, mod program.Module, fn *program.ScriptFunction) ExecFunc

// table is populated once at package init — the stand-in, per DESIGN.md,
// for the "2D array [OpcodeKind × BaseType] of function pointers" spec.md
// §9 describes as what a template-instantiation scheme compiles down to.
var table = map[dispatchKey]handlerBuilder{}

func register(kind program.OpcodeKind, dt types.BaseType, variant int8, b handlerBuilder) {
	table[dispatchKey{kind, dt, variant}] = b
}

// registerAllNumeric registers the same builder for BOOL, INT_CONST, every
// integer width and float/double, the common case for arithmetic/comparison
// opcodes.
func registerAllNumeric(kind program.OpcodeKind, variant int8, b handlerBuilder) {
	for _, dt := range []types.BaseType{
		types.BOOL, types.INT_CONST,
		types.UINT_8, types.UINT_16, types.UINT_32, types.UINT_64,
		types.INT_8, types.INT_16, types.INT_32, types.INT_64,
		types.FLOAT, types.DOUBLE,
	} {
		register(kind, dt, variant, b)
	}
}

// normalizeDataType applies spec.md §4.3's per-opcode type normalization:
// several opcode families re-flag their data type as unsigned because
// signedness is irrelevant to their semantics. Floating-point types are
// never affected.
func normalizeDataType(kind program.OpcodeKind, dt types.BaseType) types.BaseType {
	if dt.IsFloat() {
		return dt
	}
	switch kind {
	case program.GET_VARIABLE_VALUE, program.SET_VARIABLE_VALUE,
		program.READ_MEMORY, program.WRITE_MEMORY,
		program.ARITHM_ADD, program.ARITHM_SUB, program.ARITHM_AND, program.ARITHM_OR,
		program.ARITHM_XOR, program.ARITHM_SHL, program.ARITHM_NEG, program.ARITHM_NOT, program.ARITHM_BITNOT,
		program.COMPARE_EQ, program.COMPARE_NEQ:
		return types.MakeUnsigned(dt)
	default:
		return dt
	}
}

// nonHandled is the exact exception set spec.md §8's dispatcher property
// names: JUMP, JUMP_CONDITIONAL (we never enable the optimized Next-based
// variant — see DESIGN.md), RETURN, and EXTERNAL_*. CALL is handled
// separately in buildCall, since whether it counts as "non-handled"
// depends on whether the callee can be inlined.
func nonHandled(kind program.OpcodeKind) bool {
	switch kind {
	case program.JUMP, program.JUMP_CONDITIONAL, program.RETURN,
		program.EXTERNAL_CALL, program.EXTERNAL_JUMP:
		return true
	}
	return false
}

func paramByteLen(kind program.OpcodeKind, op program.Opcode) uint8 {
	switch kind {
	case program.NOP, program.READ_MEMORY, program.WRITE_MEMORY,
		program.ARITHM_ADD, program.ARITHM_SUB, program.ARITHM_MUL, program.ARITHM_DIV,
		program.ARITHM_MOD, program.ARITHM_AND, program.ARITHM_OR, program.ARITHM_XOR,
		program.ARITHM_SHL, program.ARITHM_SHR, program.ARITHM_NEG, program.ARITHM_NOT, program.ARITHM_BITNOT,
		program.COMPARE_EQ, program.COMPARE_NEQ, program.COMPARE_LT, program.COMPARE_LE, program.COMPARE_GT, program.COMPARE_GE,
		program.RETURN, program.EXTERNAL_CALL, program.EXTERNAL_JUMP:
		return 0
	case program.MOVE_STACK:
		if op.Parameter == -1 {
			return 0
		}
		return 8
	default:
		return 8
	}
}

func variantFor(kind program.OpcodeKind, op program.Opcode) int8 {
	switch kind {
	case program.MOVE_STACK:
		switch {
		case op.Parameter > 0:
			return 0
		case op.Parameter == -1:
			return 1
		default:
			return 2
		}
	case program.MOVE_VAR_STACK:
		if op.Parameter >= 0 {
			return 0
		}
		return 1
	case program.GET_VARIABLE_VALUE, program.SET_VARIABLE_VALUE:
		return int8(program.VariableID(op.Parameter).StorageClassOf())
	case program.READ_MEMORY:
		if op.Parameter == 1 {
			return 1
		}
		return 0
	case program.DUPLICATE:
		return int8(op.Parameter)
	default:
		return 0
	}
}

// BuildRuntimeOpcode translates the single source opcode opcodes[first]
// into buf, resolving variable ids and callee signature hashes against
// mod as needed. It returns the number of source opcodes consumed, always
// 1 in this implementation: lang/vm never needs the "peek ahead and merge
// several source opcodes into one runtime opcode" optimization spec.md §3
// allows for (successiveHandledOpcodes staying at 0 or 1 is sufficient to
// satisfy every invariant in spec.md §8).
func BuildRuntimeOpcode(buf *RuntimeOpcode, opcodes []program.Opcode, first int, mod program.Module, fn *program.ScriptFunction) (consumed int) {
	op := opcodes[first]
	kind := op.Kind
	dt := normalizeDataType(kind, op.DataType)

	*buf = RuntimeOpcode{Kind: kind, DataType: dt, Flags: op.Flags}
	buf.paramLen = paramByteLen(kind, op)

	if kind == program.CALL {
		buildCall(buf, op, mod)
		return 1
	}

	if nonHandled(kind) {
		buf.setParameter(op.Parameter)
		buf.SuccessiveHandledOpcodes = 0
		return 1
	}

	variant := variantFor(kind, op)
	switch kind {
	case program.CAST_VALUE:
		buf.ExecFunc = buildCast(op)
	default:
		builder, ok := table[dispatchKey{kind, dt, variant}]
		if !ok {
			panic(fmt.Sprintf("dispatch: no handler registered for %s<%s> variant=%d", kind, dt, variant))
		}
		buf.ExecFunc = builder(op, mod, fn)
	}
	buf.setParameter(op.Parameter)
	buf.SuccessiveHandledOpcodes = 1
	return 1
}
