package program

import "github.com/dolthub/swiss"

// FunctionTable is a signature-hash-keyed lookup table backed by a
// swiss-table map for open-addressing performance, the same library the
// original host application's map/dict value type uses internally — here
// retargeted to the concern a Module.FunctionByHash implementation (such as
// lang/vm's SimpleModule) actually needs: fast lookup by
// a uint64 hash key, not a general dynamically-typed dictionary.
type FunctionTable struct {
	m *swiss.Map[uint64, Function]
}

// NewFunctionTable returns a table with initial capacity for at least size
// entries.
func NewFunctionTable(size int) *FunctionTable {
	return &FunctionTable{m: swiss.NewMap[uint64, Function](uint32(size))}
}

// Register adds or replaces the function registered under its own
// SignatureHash.
func (t *FunctionTable) Register(fn Function) {
	t.m.Put(fn.SignatureHash(), fn)
}

// Lookup resolves a signature hash to its Function, implementing the
// FunctionByHash half of the Module contract.
func (t *FunctionTable) Lookup(hash uint64) (Function, bool) {
	return t.m.Get(hash)
}

// Len reports the number of registered functions.
func (t *FunctionTable) Len() int { return t.m.Count() }
