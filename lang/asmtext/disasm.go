package asmtext

import (
	"bytes"
	"fmt"

	"github.com/lemonscript/lemon/lang/program"
)

// NameResolver reverses Resolver for disassembly: given a CALL's signature
// hash, returns a readable name to print instead of the raw integer.
type NameResolver interface {
	ResolveHash(hash uint64) (name string, ok bool)
}

// NameResolverFunc adapts a plain function to NameResolver.
type NameResolverFunc func(hash uint64) (string, bool)

func (f NameResolverFunc) ResolveHash(hash uint64) (string, bool) { return f(hash) }

// Disassemble renders fn in the same textual format Assemble reads,
// annotating each instruction with its index as a comment the way the
// teacher's Dasm numbers every line. names, if non-nil, is used to print
// CALL targets by name instead of by raw hash.
func Disassemble(fn *program.ScriptFunction, names NameResolver) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "function: %s %s\n", fn.Name, fn.ReturnType)

	if len(fn.Parameters) > 0 {
		buf.WriteString("\tparams:\n")
		for _, p := range fn.Parameters {
			fmt.Fprintf(&buf, "\t\t%s %s\n", p.Name, p.DataType)
		}
	}

	if len(fn.Locals) > 0 {
		buf.WriteString("\tlocals:\n")
		for _, l := range fn.Locals {
			fmt.Fprintf(&buf, "\t\t%s %s\n", l.Name, l.DataType)
		}
	}

	labelAt := make(map[int]string, len(fn.Labels))
	for _, l := range fn.Labels {
		labelAt[l.OpcodeOffset] = l.Name
	}

	if len(fn.Opcodes) > 0 {
		buf.WriteString("\tcode:\n")
		for i, op := range fn.Opcodes {
			if name, ok := labelAt[i]; ok {
				fmt.Fprintf(&buf, "\t%s:\n", name)
			}
			buf.WriteString("\t\t")
			buf.WriteString(op.Kind.String())
			if op.DataType != 0 {
				fmt.Fprintf(&buf, "<%s>", op.DataType)
			}
			writeArg(&buf, op, names)
			fmt.Fprintf(&buf, "\t# %03d\n", i)
		}
	}

	return buf.Bytes()
}

func writeArg(buf *bytes.Buffer, op program.Opcode, names NameResolver) {
	switch op.Kind {
	case program.NOP, program.ARITHM_ADD, program.ARITHM_SUB, program.ARITHM_MUL,
		program.ARITHM_DIV, program.ARITHM_MOD, program.ARITHM_AND, program.ARITHM_OR,
		program.ARITHM_XOR, program.ARITHM_SHL, program.ARITHM_SHR, program.ARITHM_NEG,
		program.ARITHM_NOT, program.ARITHM_BITNOT,
		program.COMPARE_EQ, program.COMPARE_NEQ, program.COMPARE_LT, program.COMPARE_LE,
		program.COMPARE_GT, program.COMPARE_GE,
		program.RETURN, program.EXTERNAL_CALL, program.EXTERNAL_JUMP, program.MAKE_BOOL:
		return
	case program.GET_VARIABLE_VALUE, program.SET_VARIABLE_VALUE:
		id := program.VariableID(op.Parameter)
		fmt.Fprintf(buf, " %s:%d", storageClassName(id.StorageClassOf()), id.IndexOf())
	case program.CALL:
		if names != nil {
			if name, ok := names.ResolveHash(uint64(op.Parameter)); ok {
				fmt.Fprintf(buf, " %s", name)
				return
			}
		}
		fmt.Fprintf(buf, " %d", op.Parameter)
	default:
		fmt.Fprintf(buf, " %d", op.Parameter)
	}
}

func storageClassName(sc program.StorageClass) string {
	switch sc {
	case program.LOCAL:
		return "local"
	case program.GLOBAL:
		return "global"
	case program.USER:
		return "user"
	case program.EXTERNAL:
		return "external"
	default:
		return "unknown"
	}
}
