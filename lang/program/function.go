package program

import "github.com/lemonscript/lemon/lang/types"

// Label is a named position in a ScriptFunction's opcode vector, created
// during emission and possibly retargeted by the optimizer.
type Label struct {
	Name         string
	OpcodeOffset int
}

// Parameter describes one declared parameter of a ScriptFunction.
type Parameter struct {
	Name     string
	DataType types.BaseType
}

// ScriptFunction is the unit of compilation: the per-function syntax tree is
// consumed once by the emitter and never again, and the Opcodes/Labels it
// writes here are then rewritten in place by the optimizer.
type ScriptFunction struct {
	Name       string
	Parameters []Parameter
	ReturnType types.BaseType

	// Locals is ordered by Variable.ID's index: id 0 is the first declared
	// local, ids grow with declaration order. Parameters occupy the first
	// len(Parameters) entries.
	Locals []Variable

	Labels  []Label
	Opcodes []Opcode

	// LocalVariablesMemorySize is the sum of every local's 8-byte-aligned
	// LocalMemorySize, i.e. the argument MOVE_VAR_STACK is emitted with in
	// the function prologue.
	LocalVariablesMemorySize uint32
}

// LabelOffset looks up a label by name, returning ok=false if undefined.
func (fn *ScriptFunction) LabelOffset(name string) (int, bool) {
	for _, l := range fn.Labels {
		if l.Name == name {
			return l.OpcodeOffset, true
		}
	}
	return 0, false
}

// LocalByID finds a declared local or parameter by its VariableID, which
// must have StorageClassOf(id) == LOCAL.
func (fn *ScriptFunction) LocalByID(id VariableID) (Variable, bool) {
	idx := id.IndexOf()
	if int(idx) < len(fn.Locals) {
		return fn.Locals[idx], true
	}
	return Variable{}, false
}

// AlignedLocalSize rounds a BaseType's byte size up to an 8-byte-aligned
// on-stack size, the unit MOVE_VAR_STACK's argument counts in.
func AlignedLocalSize(t types.BaseType) uint32 {
	n := types.SizeOfBaseType(t)
	if n == 0 {
		n = 8 // VOID locals never occur in practice, but stay total
	}
	return uint32((n + 7) &^ 7)
}
