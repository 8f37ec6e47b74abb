package asmtext_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/internal/filetest"
	"github.com/lemonscript/lemon/lang/asmtext"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

const addSrc = `
function: add s32
	params:
		a s32
		b s32
	locals:
		a s32
		b s32
	code:
		get_variable_value<u32> local:0
		get_variable_value<u32> local:1
		arithm_add<u32>
		return
`

func TestAssembleSimpleFunction(t *testing.T) {
	fn, err := asmtext.Assemble([]byte(addSrc), nil)
	require.NoError(t, err)
	require.Equal(t, "add", fn.Name)
	require.Equal(t, types.INT_32, fn.ReturnType)
	require.Len(t, fn.Parameters, 2)
	require.Len(t, fn.Locals, 2)
	require.Equal(t, uint32(0), fn.Locals[0].LocalMemoryOffset)
	require.Equal(t, uint32(8), fn.Locals[1].LocalMemoryOffset)
	require.Len(t, fn.Opcodes, 4)
	require.Equal(t, program.ARITHM_ADD, fn.Opcodes[2].Kind)
}

const branchSrc = `
function: pick s32
	code:
		push_constant<bool> 0
		jump_conditional @else
		push_constant<s32> 1
		return
	else:
		push_constant<s32> 2
		return
`

func TestAssembleForwardLabel(t *testing.T) {
	fn, err := asmtext.Assemble([]byte(branchSrc), nil)
	require.NoError(t, err)
	require.Len(t, fn.Opcodes, 6)
	require.Equal(t, int64(4), fn.Opcodes[1].Parameter)
	off, ok := fn.LabelOffset("else")
	require.True(t, ok)
	require.Equal(t, 4, off)
}

const callSrc = `
function: caller s32
	code:
		push_constant<s32> 21
		call<bool> double
		return
`

func TestAssembleCallResolvesByName(t *testing.T) {
	resolver := asmtext.ResolverFunc(func(name string) (uint64, bool) {
		if name == "double" {
			return 0xdeadbeef, true
		}
		return 0, false
	})
	fn, err := asmtext.Assemble([]byte(callSrc), resolver)
	require.NoError(t, err)
	require.Equal(t, int64(0xdeadbeef), fn.Opcodes[1].Parameter)
}

func TestAssembleUnresolvedCallFails(t *testing.T) {
	_, err := asmtext.Assemble([]byte(callSrc), nil)
	require.Error(t, err)
}

func TestDisassembleRoundTrip(t *testing.T) {
	fn, err := asmtext.Assemble([]byte(addSrc), nil)
	require.NoError(t, err)

	out := asmtext.Disassemble(fn, nil)
	fn2, err := asmtext.Assemble(out, nil)
	require.NoError(t, err)
	require.Equal(t, fn.Name, fn2.Name)
	require.Equal(t, fn.ReturnType, fn2.ReturnType)
	require.Equal(t, fn.Opcodes, fn2.Opcodes)
}

func TestDisassembleGolden(t *testing.T) {
	fn, err := asmtext.Assemble([]byte(addSrc), nil)
	require.NoError(t, err)
	out := string(asmtext.Disassemble(fn, nil))

	update := false
	fi, err := os.Stat("../../testdata/asmtext/add.lasm")
	require.NoError(t, err)
	filetest.DiffOutput(t, fi, out, "../../testdata/asmtext", &update)
}
