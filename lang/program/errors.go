package program

import "fmt"

// ErrorKind is the closed taxonomy of compile errors the emitter can raise.
// The optimizer and dispatcher must never produce one on well-formed input.
type ErrorKind uint8

const ( //nolint:revive
	VoidFunctionReturnsValue ErrorKind = iota
	NonVoidFunctionMissingReturn
	InvalidCast
	UnknownLabel
	DuplicateLabel
	BreakOutsideLoop
	ContinueOutsideLoop
	MissingIndex
	BadReadOnlyWrite
	UseOfColonOutsideTernary
	BracketOperatorUnsupported
)

var errorKindMessages = map[ErrorKind]string{
	VoidFunctionReturnsValue:     "void function returns a value",
	NonVoidFunctionMissingReturn: "non-void function is missing a return value",
	InvalidCast:                  "no conversion exists between these types",
	UnknownLabel:                 "jump to undefined label",
	DuplicateLabel:               "label already defined in this function",
	BreakOutsideLoop:             "break outside of a loop",
	ContinueOutsideLoop:          "continue outside of a loop",
	MissingIndex:                 "external statement is missing its index expression",
	BadReadOnlyWrite:             "expression cannot be used as an assignment target",
	UseOfColonOutsideTernary:     "':' used outside of a ternary expression",
	BracketOperatorUnsupported:   "type does not support the bracket operator for this access",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindMessages[k]; ok {
		return s
	}
	return fmt.Sprintf("errorkind(%d)", uint8(k))
}

// CompileError is the single concrete error type the emitter raises. It
// carries the offending line number, two u64 payload slots (Data, which the
// emitter leaves zero) and a human-readable message (Detail; for InvalidCast
// it names the source and target types). A compile error aborts the whole function's
// compile; the call stack above the emitter does not catch partial state.
type CompileError struct {
	Kind       ErrorKind
	LineNumber uint32
	Data       [2]uint64
	Detail     string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("line %d: %s", e.LineNumber, e.Kind)
	}
	return fmt.Sprintf("line %d: %s: %s", e.LineNumber, e.Kind, e.Detail)
}

// NewCompileError builds a CompileError for the given kind, line and
// optional formatted detail.
func NewCompileError(kind ErrorKind, line uint32, detail string) *CompileError {
	return &CompileError{Kind: kind, LineNumber: line, Detail: detail}
}
