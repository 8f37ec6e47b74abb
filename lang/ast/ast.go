// Package ast defines the syntax-tree contract the core consumes from the
// frontend (tokenizer, parser, preprocessor, type-checker — all out of
// scope, per spec.md §1). Every node is fully typed and positioned by the
// time it reaches this package: the emitter never re-type-checks.
package ast

import (
	"github.com/lemonscript/lemon/lang/token"
	"github.com/lemonscript/lemon/lang/types"
)

// Stmt is implemented by every statement-level node.
type Stmt interface {
	stmtNode()
	Line() token.Pos
}

// Expr is implemented by every expression-level node. Every expression
// carries its precomputed data type, supplied by the frontend's
// type-checker.
type Expr interface {
	stmtNode() // an ExprStmt wraps any Expr as a statement
	Line() token.Pos
	Type() types.BaseType
}

// Block is an ordered sequence of statements, used for a function body and
// for the body of any control-flow statement.
type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode() {}
func (b *Block) Line() token.Pos {
	if len(b.Stmts) == 0 {
		return token.NoPos
	}
	return b.Stmts[0].Line()
}

// base is embedded by every concrete node to carry its source line and
// satisfy Stmt/Expr's shared stmtNode marker.
type base struct {
	Pos token.Pos
}

func (b base) Line() token.Pos { return b.Pos }
func (base) stmtNode()         {}

// --- statements ---

// ExprStmt is an expression used as a statement; its result, if any, is
// discarded (compiled with consumeResult = true).
type ExprStmt struct {
	base
	X Expr
}

// IfStmt represents an if/else (and, via a non-nil Else of type *IfStmt,
// an else-if chain).
type IfStmt struct {
	base
	Cond Expr
	Then *Block
	Else Stmt // nil, *IfStmt (else if), or *Block (else)
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	base
	Cond Expr
	Body *Block
}

// ForStmt represents a 1-, 2-, or 3-clause for loop; Init, Cond, and Iter
// may each be nil.
type ForStmt struct {
	base
	Init Stmt
	Cond Expr
	Iter Stmt
	Body *Block
}

// LabelStmt declares a jump target visible anywhere in the function.
type LabelStmt struct {
	base
	Name string
}

// GotoStmt transfers control unconditionally to a named label.
type GotoStmt struct {
	base
	Label string
}

// GotoIndirectStmt evaluates Index and jumps to Labels[Index] if in range,
// falling through otherwise.
type GotoIndirectStmt struct {
	base
	Index  Expr
	Labels []string
}

// BreakStmt and ContinueStmt are only valid inside a WhileStmt or ForStmt.
type BreakStmt struct{ base }
type ContinueStmt struct{ base }

// ReturnStmt optionally carries the returned expression; nil for void
// functions.
type ReturnStmt struct {
	base
	Value Expr
}

// ExternalKind distinguishes an EXTERNAL_CALL from an EXTERNAL_JUMP.
type ExternalKind uint8

const (
	ExternalCall ExternalKind = iota
	ExternalJump
)

// ExternalStmt compiles Addr, casts it to the module's configured external
// address type, and emits the corresponding opcode.
type ExternalStmt struct {
	base
	Kind ExternalKind
	Addr Expr // nil triggers program.MissingIndex
}
