package program

import "github.com/lemonscript/lemon/lang/types"

// StorageClass is encoded in the top 4 bits of a Variable's ID.
type StorageClass uint8

const (
	LOCAL StorageClass = iota
	GLOBAL
	USER
	EXTERNAL
)

const storageClassShift = 28 // top 4 bits of a 32-bit id

// VariableID packs a storage class and an index into a single value, the
// way the original engine encodes storage class into the top nibble of a
// variable id.
type VariableID uint32

// MakeVariableID packs a storage class and an index into a VariableID.
func MakeVariableID(class StorageClass, index uint32) VariableID {
	return VariableID(uint32(class)<<storageClassShift | (index &^ (0xf << storageClassShift)))
}

// StorageClassOf extracts the storage class from a VariableID.
func (id VariableID) StorageClassOf() StorageClass {
	return StorageClass(uint32(id) >> storageClassShift)
}

// IndexOf extracts the class-local index from a VariableID.
func (id VariableID) IndexOf() uint32 {
	return uint32(id) &^ (0xf << storageClassShift)
}

// Variable describes one declared variable: its identity, its compile-time
// type, and — for LOCAL variables — its 8-byte-aligned offset within the
// current call frame.
type Variable struct {
	ID               VariableID
	Name             string
	DataType         types.BaseType
	LocalMemoryOffset uint32 // meaningful only when StorageClassOf(ID) == LOCAL
	LocalMemorySize   uint32 // 8-byte-aligned size on the local stack
}
