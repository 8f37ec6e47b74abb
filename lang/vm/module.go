package vm

import (
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// ScriptCallable is the capability a program.Function carries when it is
// backed by a compiled *program.ScriptFunction body rather than a native
// implementation — the counterpart to lang/dispatch.NativeFunction. A CALL
// opcode the dispatcher leaves non-handled resolves to one or the other; a
// program.Function implementing neither is a configuration error the VM
// reports as ErrNotCallable.
type ScriptCallable interface {
	program.Function
	Body() *program.ScriptFunction
}

type scriptFunc struct {
	fn   *program.ScriptFunction
	hash uint64
}

// NewScriptFunction wraps a compiled ScriptFunction as a program.Function /
// ScriptCallable the Thread can invoke through a CALL opcode.
func NewScriptFunction(fn *program.ScriptFunction) ScriptCallable {
	return &scriptFunc{fn: fn, hash: program.SignatureHash(fn.Name, fn.ReturnType, fn.Parameters)}
}

func (s *scriptFunc) Name() string                    { return s.fn.Name }
func (s *scriptFunc) Parameters() []program.Parameter { return s.fn.Parameters }
func (s *scriptFunc) ReturnType() types.BaseType      { return s.fn.ReturnType }
func (s *scriptFunc) Flags() program.FunctionFlag     { return 0 }
func (s *scriptFunc) SignatureHash() uint64           { return s.hash }
func (s *scriptFunc) Body() *program.ScriptFunction   { return s.fn }

// NativeFunc adapts a plain Go closure into a program.Function /
// dispatch.NativeFunction pair, for registering host builtins without
// writing a dedicated type per function.
type NativeFunc struct {
	FnName string
	Params []program.Parameter
	Ret    types.BaseType
	// FnFlags is typically program.AllowInlineExecution; leave zero to
	// force every call through the ordinary non-handled CALL path.
	FnFlags program.FunctionFlag
	Fn      func(args []int64) int64
}

func (n *NativeFunc) Name() string                    { return n.FnName }
func (n *NativeFunc) Parameters() []program.Parameter { return n.Params }
func (n *NativeFunc) ReturnType() types.BaseType      { return n.Ret }
func (n *NativeFunc) Flags() program.FunctionFlag     { return n.FnFlags }
func (n *NativeFunc) SignatureHash() uint64 {
	return program.SignatureHash(n.FnName, n.Ret, n.Params)
}
func (n *NativeFunc) Invoke(args []int64) int64 { return n.Fn(args) }

// Global is a minimal program.GlobalVariable: a stable int64 backing slot.
type Global struct {
	DT   types.BaseType
	Addr int64
}

func (g *Global) DataType() types.BaseType { return g.DT }
func (g *Global) Address() *int64          { return &g.Addr }

// UserVar is a minimal program.UserDefinedVariable backed by closures.
type UserVar struct {
	DT    types.BaseType
	GetFn func() int64
	SetFn func(int64)
}

func (u *UserVar) DataType() types.BaseType { return u.DT }
func (u *UserVar) Get() int64               { return u.GetFn() }
func (u *UserVar) Set(v int64)              { u.SetFn(v) }

// External is a minimal program.ExternalVariable over a host-owned pointer.
type External struct {
	DT    types.BaseType
	Width int
	Ptr   *int64
}

func (e *External) DataType() types.BaseType { return e.DT }
func (e *External) ByteWidth() int           { return e.Width }
func (e *External) Address() *int64          { return e.Ptr }

// SimpleModule is a minimal, in-memory program.Module: functions held in a
// program.FunctionTable keyed by signature hash, variables keyed by id. It
// is sufficient for the golden tests and the CLI's run command; spec.md §6
// leaves a real host's module management (script loading, standard-library
// registration) explicitly out of core scope.
type SimpleModule struct {
	Functions *program.FunctionTable
	Variables map[program.VariableID]any
	AddrType  types.BaseType
}

// NewSimpleModule returns an empty SimpleModule using addrType for
// EXTERNAL_CALL/EXTERNAL_JUMP argument coercion.
func NewSimpleModule(addrType types.BaseType) *SimpleModule {
	return &SimpleModule{
		Functions: program.NewFunctionTable(8),
		Variables: make(map[program.VariableID]any),
		AddrType:  addrType,
	}
}

// AddFunction registers fn under its own signature hash.
func (m *SimpleModule) AddFunction(fn program.Function) {
	m.Functions.Register(fn)
}

// AddVariable registers v (a GlobalVariable, UserDefinedVariable, or
// ExternalVariable) under id.
func (m *SimpleModule) AddVariable(id program.VariableID, v any) {
	m.Variables[id] = v
}

func (m *SimpleModule) VariableByID(id program.VariableID) (any, bool) {
	v, ok := m.Variables[id]
	return v, ok
}

func (m *SimpleModule) FunctionByHash(hash uint64) (program.Function, bool) {
	return m.Functions.Lookup(hash)
}

func (m *SimpleModule) ExternalAddressType() types.BaseType { return m.AddrType }
