package program

import "github.com/lemonscript/lemon/lang/types"

// FunctionFlag is a bit of metadata a Module attaches to a declared
// Function, consulted by the dispatcher.
type FunctionFlag uint8

const (
	// AllowInlineExecution marks a native function as safe for the
	// dispatcher to rewrite a non-base CALL opcode into an inline-native-call
	// runtime opcode, bypassing the usual call-frame overhead.
	AllowInlineExecution FunctionFlag = 1 << iota
)

// Function is a callable declaration: an overload identified by its
// signature hash, consumed (never implemented) by the emitter when it
// resolves FUNCTION_CALL nodes and by the dispatcher when it resolves CALL
// opcodes.
type Function interface {
	Name() string
	Parameters() []Parameter
	ReturnType() types.BaseType
	Flags() FunctionFlag
	// SignatureHash is the stable FNV-1a-style digest of (name, return
	// type, parameter types) identifying this overload.
	SignatureHash() uint64
}

// GlobalVariable is readable/writable backing memory shared across the
// module, addressed directly by the dispatcher once it resolves the
// variable's pointer at dispatch time.
type GlobalVariable interface {
	DataType() types.BaseType
	// Address returns a pointer to the backing memory, stable for the
	// lifetime of the module.
	Address() *int64
}

// UserDefinedVariable is backed by getter/setter closures that produce or
// consume a single value-stack slot, rather than raw memory.
type UserDefinedVariable interface {
	DataType() types.BaseType
	Get() int64
	Set(int64)
}

// ExternalVariable is like GlobalVariable but the pointer is obtained
// through an accessor closure at dispatch time rather than being a stable
// address — the target memory may move or be reallocated by the host
// between module loads.
type ExternalVariable interface {
	DataType() types.BaseType
	ByteWidth() int
	Address() *int64
}

// Module is the external collaborator the emitter and dispatcher consume to
// resolve variable and function identifiers. The core never implements it
// except minimally, for its own tests and the CLI's run command — a real
// host (script-module management, standard-library registration) is
// explicitly out of scope.
type Module interface {
	// VariableByID resolves a non-local variable id to its GlobalVariable,
	// UserDefinedVariable, or ExternalVariable, based on StorageClassOf(id).
	// Local variables are resolved directly against the owning
	// ScriptFunction and never reach this method.
	VariableByID(id VariableID) (any, bool)

	// FunctionByHash resolves a CALL opcode's signature hash to its
	// Function declaration.
	FunctionByHash(hash uint64) (Function, bool)

	// ExternalAddressType is the configured type EXTERNAL_CALL/EXTERNAL_JUMP
	// expressions are cast to before the call/jump opcode is emitted.
	ExternalAddressType() types.BaseType
}
