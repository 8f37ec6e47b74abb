// Package program defines the data model shared by every stage of the core:
// the Opcode record and its OpcodeKind, bit-flags, Variable storage-class
// encoding, the ScriptFunction unit of compilation, and the external-module
// contracts (Function/Variable lookups) that the emitter and dispatcher
// consume but never implement themselves.
package program

import (
	"fmt"

	"github.com/lemonscript/lemon/lang/types"
)

// OpcodeKind enumerates every instruction the emitter can produce and the
// optimizer can rewrite. Order is significant for the COMPARE_* and
// ARITHM_* ranges: they follow the order of the matching types.Operator
// blocks, though lang/emitter maps operators to opcode kinds with explicit
// switches rather than by offset.
type OpcodeKind uint8

const ( //nolint:revive
	NOP OpcodeKind = iota

	MOVE_STACK
	MOVE_VAR_STACK

	PUSH_CONSTANT
	GET_VARIABLE_VALUE
	SET_VARIABLE_VALUE
	READ_MEMORY
	WRITE_MEMORY

	CAST_VALUE
	MAKE_BOOL

	// arithmetic — contiguous, order mirrors types.Operator's binary range
	ARITHM_ADD
	ARITHM_SUB
	ARITHM_MUL
	ARITHM_DIV
	ARITHM_MOD
	ARITHM_AND
	ARITHM_OR
	ARITHM_XOR
	ARITHM_SHL
	ARITHM_SHR
	ARITHM_NEG
	ARITHM_NOT
	ARITHM_BITNOT

	// comparisons — contiguous, order mirrors types.Operator's comparison range
	COMPARE_EQ
	COMPARE_NEQ
	COMPARE_LT
	COMPARE_LE
	COMPARE_GT
	COMPARE_GE

	JUMP
	JUMP_CONDITIONAL
	JUMP_SWITCH

	CALL
	RETURN
	EXTERNAL_CALL
	EXTERNAL_JUMP

	DUPLICATE

	opcodeKindCount
)

var opcodeKindNames = [opcodeKindCount]string{
	NOP:                 "nop",
	MOVE_STACK:          "move_stack",
	MOVE_VAR_STACK:      "move_var_stack",
	PUSH_CONSTANT:       "push_constant",
	GET_VARIABLE_VALUE:  "get_variable_value",
	SET_VARIABLE_VALUE:  "set_variable_value",
	READ_MEMORY:         "read_memory",
	WRITE_MEMORY:        "write_memory",
	CAST_VALUE:          "cast_value",
	MAKE_BOOL:           "make_bool",
	ARITHM_ADD:          "arithm_add",
	ARITHM_SUB:          "arithm_sub",
	ARITHM_MUL:          "arithm_mul",
	ARITHM_DIV:          "arithm_div",
	ARITHM_MOD:          "arithm_mod",
	ARITHM_AND:          "arithm_and",
	ARITHM_OR:           "arithm_or",
	ARITHM_XOR:          "arithm_xor",
	ARITHM_SHL:          "arithm_shl",
	ARITHM_SHR:          "arithm_shr",
	ARITHM_NEG:          "arithm_neg",
	ARITHM_NOT:          "arithm_not",
	ARITHM_BITNOT:       "arithm_bitnot",
	COMPARE_EQ:          "compare_eq",
	COMPARE_NEQ:         "compare_neq",
	COMPARE_LT:          "compare_lt",
	COMPARE_LE:          "compare_le",
	COMPARE_GT:          "compare_gt",
	COMPARE_GE:          "compare_ge",
	JUMP:                "jump",
	JUMP_CONDITIONAL:    "jump_conditional",
	JUMP_SWITCH:         "jump_switch",
	CALL:                "call",
	RETURN:              "return",
	EXTERNAL_CALL:       "external_call",
	EXTERNAL_JUMP:       "external_jump",
	DUPLICATE:           "duplicate",
}

func (k OpcodeKind) String() string {
	if k < opcodeKindCount {
		return opcodeKindNames[k]
	}
	return fmt.Sprintf("opcodekind(%d)", uint8(k))
}

// IsJump reports whether k is one of the three jump-family opcodes.
func (k OpcodeKind) IsJump() bool {
	return k == JUMP || k == JUMP_CONDITIONAL || k == JUMP_SWITCH
}

// IsControlFlow reports whether k transfers control out of sequence. It
// excludes JUMP_SWITCH, which optimizer pass 7 (AssignFlags) also marks
// with OpFlagCtrlFlow.
func (k OpcodeKind) IsControlFlow() bool {
	switch k {
	case JUMP, JUMP_CONDITIONAL, CALL, RETURN, EXTERNAL_CALL, EXTERNAL_JUMP:
		return true
	}
	return false
}

// IsTerminator reports whether k ends a basic block without falling
// through and without branching to a single known successor other than via
// Parameter (RETURN and EXTERNAL_JUMP never fall through or branch).
func (k OpcodeKind) IsTerminator() bool {
	return k == RETURN || k == EXTERNAL_JUMP
}

// OpFlag is one bit of an Opcode's flag set, computed post-optimization.
type OpFlag uint16

const (
	OpFlagCtrlFlow OpFlag = 1 << iota
	OpFlagJump
	OpFlagJumpTarget
	OpFlagLabel
	OpFlagNewLine
	OpFlagSeqBreak
	OpFlagTemp
)

// OpFlagSet is a const-evaluable bitset of OpFlag values.
type OpFlagSet uint16

func (s OpFlagSet) Has(f OpFlag) bool   { return s&OpFlagSet(f) != 0 }
func (s OpFlagSet) Set(f OpFlag) OpFlagSet   { return s | OpFlagSet(f) }
func (s OpFlagSet) Clear(f OpFlag) OpFlagSet { return s &^ OpFlagSet(f) }

// Opcode is one instruction in the compiled representation, per spec: a
// kind, a data type, a polymorphic i64 parameter whose interpretation
// depends on kind, a source line number, and a post-optimization flag set.
type Opcode struct {
	Kind       OpcodeKind
	DataType   types.BaseType
	Parameter  int64
	LineNumber uint32
	Flags      OpFlagSet
}

func (op Opcode) String() string {
	return fmt.Sprintf("%s<%s> %d", op.Kind, op.DataType, op.Parameter)
}
