// Package asmtext implements a textual assembly format for
// *program.ScriptFunction, standing in for the frontend (tokenizer, parser,
// resolver, emitter pipeline) that spec.md places out of core scope. Tests
// and the CLI's asm/optimize/run commands build a ScriptFunction by hand
// from source text instead of compiling lemonscript source, directly
// ported from the teacher's compiler/asm.go line-oriented section format.
package asmtext

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// Resolver looks up a CALL instruction's target by name, returning the
// signature hash BuildRuntimeOpcode/the VM resolve against a Module. A nil
// Resolver forces every call target to be written as a literal hash.
type Resolver interface {
	ResolveCall(name string) (hash uint64, ok bool)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(name string) (uint64, bool)

func (f ResolverFunc) ResolveCall(name string) (uint64, bool) { return f(name) }

var baseTypeByName = map[string]types.BaseType{
	"void": types.VOID, "bool": types.BOOL, "int_const": types.INT_CONST,
	"s8": types.INT_8, "s16": types.INT_16, "s32": types.INT_32, "s64": types.INT_64,
	"u8": types.UINT_8, "u16": types.UINT_16, "u32": types.UINT_32, "u64": types.UINT_64,
	"float": types.FLOAT, "double": types.DOUBLE,
}

var storageClassByName = map[string]program.StorageClass{
	"local": program.LOCAL, "global": program.GLOBAL, "user": program.USER, "external": program.EXTERNAL,
}

var allOpcodeKinds = []program.OpcodeKind{
	program.NOP, program.MOVE_STACK, program.MOVE_VAR_STACK,
	program.PUSH_CONSTANT, program.GET_VARIABLE_VALUE, program.SET_VARIABLE_VALUE,
	program.READ_MEMORY, program.WRITE_MEMORY,
	program.CAST_VALUE, program.MAKE_BOOL,
	program.ARITHM_ADD, program.ARITHM_SUB, program.ARITHM_MUL, program.ARITHM_DIV, program.ARITHM_MOD,
	program.ARITHM_AND, program.ARITHM_OR, program.ARITHM_XOR, program.ARITHM_SHL, program.ARITHM_SHR,
	program.ARITHM_NEG, program.ARITHM_NOT, program.ARITHM_BITNOT,
	program.COMPARE_EQ, program.COMPARE_NEQ, program.COMPARE_LT, program.COMPARE_LE, program.COMPARE_GT, program.COMPARE_GE,
	program.JUMP, program.JUMP_CONDITIONAL, program.JUMP_SWITCH,
	program.CALL, program.RETURN, program.EXTERNAL_CALL, program.EXTERNAL_JUMP,
	program.DUPLICATE,
}

var kindByName = func() map[string]program.OpcodeKind {
	m := make(map[string]program.OpcodeKind, len(allOpcodeKinds))
	for _, k := range allOpcodeKinds {
		m[k.String()] = k
	}
	return m
}()

// Assemble parses src (see the package doc and Disassemble's output for the
// format) into a ScriptFunction. resolver may be nil if the source contains
// no CALL instructions, or writes every call target as a literal integer
// hash.
func Assemble(src []byte, resolver Resolver) (*program.ScriptFunction, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(src)), resolver: resolver, fn: &program.ScriptFunction{}}
	a.run()
	if a.err != nil {
		return nil, a.err
	}
	return a.fn, nil
}

type asm struct {
	s        *bufio.Scanner
	rawLine  string
	fn       *program.ScriptFunction
	resolver Resolver
	err      error

	labels map[string]int
}

func (a *asm) run() {
	fields := a.next()
	a.header(fields)
	fields = a.next()
	fields = a.params(fields)
	fields = a.locals(fields)
	a.code(fields)
}

func (a *asm) header(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) < 3 || !strings.EqualFold(fields[0], "function:") {
		a.err = fmt.Errorf("asmtext: expected \"function: name returnType\", got %q", a.rawLine)
		return
	}
	a.fn.Name = fields[1]
	rt, ok := baseTypeByName[fields[2]]
	if !ok {
		a.err = fmt.Errorf("asmtext: unknown return type %q", fields[2])
		return
	}
	a.fn.ReturnType = rt
}

func (a *asm) params(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "params:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !isSection(fields[0]); fields = a.next() {
		if len(fields) != 2 {
			a.err = fmt.Errorf("asmtext: expected \"name type\" in params:, got %q", a.rawLine)
			return fields
		}
		dt, ok := baseTypeByName[fields[1]]
		if !ok {
			a.err = fmt.Errorf("asmtext: unknown type %q", fields[1])
			return fields
		}
		a.fn.Parameters = append(a.fn.Parameters, program.Parameter{Name: fields[0], DataType: dt})
	}
	return fields
}

// locals declares every LOCAL-class slot the function owns, parameters
// included — a function's params: entries must be repeated here, in the
// same order, so they occupy the first len(Parameters) local ids exactly
// as program.ScriptFunction documents.
func (a *asm) locals(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "locals:") {
		return fields
	}
	var offset uint32
	for fields = a.next(); len(fields) > 0 && !isSection(fields[0]); fields = a.next() {
		if len(fields) != 2 {
			a.err = fmt.Errorf("asmtext: expected \"name type\" in locals:, got %q", a.rawLine)
			return fields
		}
		dt, ok := baseTypeByName[fields[1]]
		if !ok {
			a.err = fmt.Errorf("asmtext: unknown type %q", fields[1])
			return fields
		}
		size := program.AlignedLocalSize(dt)
		id := program.MakeVariableID(program.LOCAL, uint32(len(a.fn.Locals)))
		a.fn.Locals = append(a.fn.Locals, program.Variable{
			ID: id, Name: fields[0], DataType: dt,
			LocalMemoryOffset: offset, LocalMemorySize: size,
		})
		offset += size
	}
	a.fn.LocalVariablesMemorySize = offset
	return fields
}

func (a *asm) code(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		a.err = fmt.Errorf("asmtext: expected code: section, got %q", a.rawLine)
		return
	}

	a.labels = make(map[string]int)
	var pending []pendingRef

	for fields = a.next(); len(fields) > 0; fields = a.next() {
		if len(fields) == 1 && strings.HasSuffix(fields[0], ":") {
			a.labels[strings.TrimSuffix(fields[0], ":")] = len(a.fn.Opcodes)
			a.fn.Labels = append(a.fn.Labels, program.Label{Name: strings.TrimSuffix(fields[0], ":"), OpcodeOffset: len(a.fn.Opcodes)})
			continue
		}

		mnemonic, dtName, hasDT := strings.Cut(fields[0], "<")
		dt := types.VOID
		if hasDT {
			dtName = strings.TrimSuffix(dtName, ">")
			var ok bool
			dt, ok = baseTypeByName[dtName]
			if !ok {
				a.err = fmt.Errorf("asmtext: unknown data type %q", dtName)
				return
			}
		}
		kind, ok := kindByName[mnemonic]
		if !ok {
			a.err = fmt.Errorf("asmtext: unknown opcode %q", mnemonic)
			return
		}

		op := program.Opcode{Kind: kind, DataType: dt}
		if len(fields) >= 2 {
			idx := len(a.fn.Opcodes)
			v, ref, err := a.parseArg(fields[1], kind, idx, &pending)
			if err != nil {
				a.err = err
				return
			}
			if !ref {
				op.Parameter = v
			}
		}
		a.fn.Opcodes = append(a.fn.Opcodes, op)
	}

	for _, p := range pending {
		target, ok := a.labels[p.label]
		if !ok {
			a.err = fmt.Errorf("asmtext: undefined label %q", p.label)
			return
		}
		a.fn.Opcodes[p.opcodeIndex].Parameter = int64(target)
	}
}

type pendingRef struct {
	opcodeIndex int
	label       string
}

// parseArg decodes one opcode argument. Recognized forms: a decimal
// integer, "@label" (resolved to an instruction index once every label is
// known), "class:index" (a VariableID), or a bare identifier (a CALL
// target name resolved through the Resolver). ref reports whether the
// caller should leave Opcode.Parameter for the label-patching pass to fill
// in, since forward jumps aren't resolvable on first sight.
func (a *asm) parseArg(tok string, kind program.OpcodeKind, opcodeIndex int, pending *[]pendingRef) (v int64, ref bool, err error) {
	if strings.HasPrefix(tok, "@") {
		*pending = append(*pending, pendingRef{opcodeIndex: opcodeIndex, label: tok[1:]})
		return 0, true, nil
	}
	if class, idx, ok := strings.Cut(tok, ":"); ok {
		if sc, isClass := storageClassByName[class]; isClass {
			n, err := strconv.ParseUint(idx, 10, 32)
			if err != nil {
				return 0, false, fmt.Errorf("asmtext: invalid variable index %q: %w", tok, err)
			}
			return int64(program.MakeVariableID(sc, uint32(n))), false, nil
		}
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n, false, nil
	}
	if kind == program.CALL {
		if a.resolver == nil {
			return 0, false, fmt.Errorf("asmtext: call to %q needs a Resolver (or a literal hash)", tok)
		}
		hash, ok := a.resolver.ResolveCall(tok)
		if !ok {
			return 0, false, fmt.Errorf("asmtext: call target %q not found by Resolver", tok)
		}
		return int64(hash), false, nil
	}
	return 0, false, fmt.Errorf("asmtext: invalid argument %q", tok)
}

func isSection(field string) bool {
	switch strings.ToLower(field) {
	case "params:", "locals:", "code:":
		return true
	}
	return false
}

// next returns the fields of the next non-empty, non-comment line. A "#"
// token truncates the line at that point, same convention as the teacher's
// asm.next.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for i, fld := range fields {
			if strings.HasPrefix(fld, "#") {
				fields = fields[:i]
				break
			}
		}
		a.rawLine = line
		return fields
	}
	a.err = a.s.Err()
	return nil
}
