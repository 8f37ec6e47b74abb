package ast

import (
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/types"
)

// exprBase is embedded by every concrete Expr, adding a precomputed data
// type on top of base's line tracking.
type exprBase struct {
	base
	T types.BaseType
}

func (e exprBase) Type() types.BaseType { return e.T }

// Constant is a compile-time literal value. Val holds the bit pattern for
// an integer or the IEEE-754 bits of a float/double, matching the
// Opcode.Parameter encoding PUSH_CONSTANT uses at emission time.
type Constant struct {
	exprBase
	Val int64
}

// VarRef reads or writes a declared variable. Var is resolved by the
// frontend; for a LOCAL variable it names an entry in the owning
// ScriptFunction.Locals, otherwise it is looked up through the Module at
// dispatch time.
type VarRef struct {
	exprBase
	Var *program.Variable
}

// MemoryAccess compiles to READ_MEMORY/WRITE_MEMORY: u8[addr], i16[addr],
// etc. Addr is always cast to the module's external address type.
type MemoryAccess struct {
	exprBase
	Addr Expr
}

// BracketAccess is the source-level `base[index]` form against a variable
// whose type declares a bracket operator. The frontend resolves the
// operator's accessors: Getter backs reads, Setter backs writes; either
// may be nil when the type declares only one side, and the emitter raises
// BracketOperatorUnsupported if the side an access needs is missing. Both
// compile to ordinary CALL opcodes — the variable's id is pushed as an
// INT_CONST argument ahead of the index.
type BracketAccess struct {
	exprBase
	Base   *VarRef
	Index  Expr
	Getter program.Function
	Setter program.Function
}

// Call invokes a declared Function with Args already compiled and
// implicitly cast to each parameter's declared type.
type Call struct {
	exprBase
	Func program.Function
	Args []Expr
}

// Cast explicitly converts X to the node's own Type(). LookupCast resolves
// the conversion at emission time; an unsupported pair raises InvalidCast.
type Cast struct {
	exprBase
	X Expr
}

// Unary applies a prefix operator (-, !, ~, or pre/post ++/--) to X. For
// INCREMENT/DECREMENT, Post distinguishes x++ from ++x.
type Unary struct {
	exprBase
	Op   types.Operator
	X    Expr
	Post bool
}

// Binary applies Op to X and Y. Assignment and compound-assignment
// operators are represented here too, with X required to be an
// assignable lvalue (VarRef or MemoryAccess). LOGICAL_AND/LOGICAL_OR are
// ordinary Binary nodes; the emitter itself lowers them to short-circuit
// conditional-jump sequences rather than emitting a dedicated opcode, so
// the optimizer's constant-condition pass can fold them when one side is
// constant.
type Binary struct {
	exprBase
	Op   types.Operator
	X, Y Expr
}

// Ternary is the `cond ? then : else` expression form.
type Ternary struct {
	exprBase
	Cond, Then, Else Expr
}

// Paren wraps a parenthesized subexpression purely for source fidelity; it
// carries no semantics of its own beyond its inner expression's.
type Paren struct {
	exprBase
	X Expr
}
