package types

import "fmt"

// BaseCastType is the closed enumeration identifying every supported
// (sourceBase, targetBase) conversion pair. A single CAST_VALUE opcode with
// Parameter = int64(BaseCastType) fully determines the conversion to apply.
//
// The table below is a direct, exhaustive port of the original engine's
// OpcodeHelper::getCastSourceType/getCastTargetType switch statements: every
// entry here has a twin case in that switch, grouped under the same
// comments (cast down, cast up unsigned, cast up signed, int-to-float,
// int-to-double, float-to-int, double-to-int, float/double conversion).
type BaseCastType uint8

const (
	// cast down (signed or unsigned makes no difference to the bit pattern
	// truncation, only to what happens on the subsequent widening, if any)
	INT_16_TO_8 BaseCastType = iota
	INT_32_TO_8
	INT_64_TO_8
	INT_32_TO_16
	INT_64_TO_16
	INT_64_TO_32

	// cast up, value is unsigned: zero-extend
	UINT_8_TO_16
	UINT_8_TO_32
	UINT_8_TO_64
	UINT_16_TO_32
	UINT_16_TO_64
	UINT_32_TO_64

	// cast up, value is signed: sign-extend
	SINT_8_TO_16
	SINT_8_TO_32
	SINT_8_TO_64
	SINT_16_TO_32
	SINT_16_TO_64
	SINT_32_TO_64

	// integer cast to float
	UINT_8_TO_FLOAT
	UINT_16_TO_FLOAT
	UINT_32_TO_FLOAT
	UINT_64_TO_FLOAT
	SINT_8_TO_FLOAT
	SINT_16_TO_FLOAT
	SINT_32_TO_FLOAT
	SINT_64_TO_FLOAT

	// integer cast to double
	UINT_8_TO_DOUBLE
	UINT_16_TO_DOUBLE
	UINT_32_TO_DOUBLE
	UINT_64_TO_DOUBLE
	SINT_8_TO_DOUBLE
	SINT_16_TO_DOUBLE
	SINT_32_TO_DOUBLE
	SINT_64_TO_DOUBLE

	// float cast to integer
	FLOAT_TO_UINT_8
	FLOAT_TO_UINT_16
	FLOAT_TO_UINT_32
	FLOAT_TO_UINT_64
	FLOAT_TO_SINT_8
	FLOAT_TO_SINT_16
	FLOAT_TO_SINT_32
	FLOAT_TO_SINT_64

	// double cast to integer
	DOUBLE_TO_UINT_8
	DOUBLE_TO_UINT_16
	DOUBLE_TO_UINT_32
	DOUBLE_TO_UINT_64
	DOUBLE_TO_SINT_8
	DOUBLE_TO_SINT_16
	DOUBLE_TO_SINT_32
	DOUBLE_TO_SINT_64

	// float <-> double
	FLOAT_TO_DOUBLE
	DOUBLE_TO_FLOAT

	baseCastTypeCount
)

type castEntry struct {
	source, target BaseType
}

var castTable = [baseCastTypeCount]castEntry{
	INT_16_TO_8:  {INT_16, INT_8},
	INT_32_TO_8:  {INT_32, INT_8},
	INT_64_TO_8:  {INT_64, INT_8},
	INT_32_TO_16: {INT_32, INT_16},
	INT_64_TO_16: {INT_64, INT_16},
	INT_64_TO_32: {INT_64, INT_32},

	UINT_8_TO_16:  {UINT_8, UINT_16},
	UINT_8_TO_32:  {UINT_8, UINT_32},
	UINT_8_TO_64:  {UINT_8, UINT_64},
	UINT_16_TO_32: {UINT_16, UINT_32},
	UINT_16_TO_64: {UINT_16, UINT_64},
	UINT_32_TO_64: {UINT_32, UINT_64},

	SINT_8_TO_16:  {INT_8, INT_16},
	SINT_8_TO_32:  {INT_8, INT_32},
	SINT_8_TO_64:  {INT_8, INT_64},
	SINT_16_TO_32: {INT_16, INT_32},
	SINT_16_TO_64: {INT_16, INT_64},
	SINT_32_TO_64: {INT_32, INT_64},

	UINT_8_TO_FLOAT:  {UINT_8, FLOAT},
	UINT_16_TO_FLOAT: {UINT_16, FLOAT},
	UINT_32_TO_FLOAT: {UINT_32, FLOAT},
	UINT_64_TO_FLOAT: {UINT_64, FLOAT},
	SINT_8_TO_FLOAT:  {INT_8, FLOAT},
	SINT_16_TO_FLOAT: {INT_16, FLOAT},
	SINT_32_TO_FLOAT: {INT_32, FLOAT},
	SINT_64_TO_FLOAT: {INT_64, FLOAT},

	UINT_8_TO_DOUBLE:  {UINT_8, DOUBLE},
	UINT_16_TO_DOUBLE: {UINT_16, DOUBLE},
	UINT_32_TO_DOUBLE: {UINT_32, DOUBLE},
	UINT_64_TO_DOUBLE: {UINT_64, DOUBLE},
	SINT_8_TO_DOUBLE:  {INT_8, DOUBLE},
	SINT_16_TO_DOUBLE: {INT_16, DOUBLE},
	SINT_32_TO_DOUBLE: {INT_32, DOUBLE},
	SINT_64_TO_DOUBLE: {INT_64, DOUBLE},

	FLOAT_TO_UINT_8:  {FLOAT, UINT_8},
	FLOAT_TO_UINT_16: {FLOAT, UINT_16},
	FLOAT_TO_UINT_32: {FLOAT, UINT_32},
	FLOAT_TO_UINT_64: {FLOAT, UINT_64},
	FLOAT_TO_SINT_8:  {FLOAT, INT_8},
	FLOAT_TO_SINT_16: {FLOAT, INT_16},
	FLOAT_TO_SINT_32: {FLOAT, INT_32},
	FLOAT_TO_SINT_64: {FLOAT, INT_64},

	DOUBLE_TO_UINT_8:  {DOUBLE, UINT_8},
	DOUBLE_TO_UINT_16: {DOUBLE, UINT_16},
	DOUBLE_TO_UINT_32: {DOUBLE, UINT_32},
	DOUBLE_TO_UINT_64: {DOUBLE, UINT_64},
	DOUBLE_TO_SINT_8:  {DOUBLE, INT_8},
	DOUBLE_TO_SINT_16: {DOUBLE, INT_16},
	DOUBLE_TO_SINT_32: {DOUBLE, INT_32},
	DOUBLE_TO_SINT_64: {DOUBLE, INT_64},

	FLOAT_TO_DOUBLE: {FLOAT, DOUBLE},
	DOUBLE_TO_FLOAT: {DOUBLE, FLOAT},
}

var castLookup = func() map[castEntry]BaseCastType {
	m := make(map[castEntry]BaseCastType, len(castTable))
	for kind, entry := range castTable {
		m[entry] = BaseCastType(kind)
	}
	return m
}()

// SourceType returns the source BaseType a BaseCastType converts from.
func (c BaseCastType) SourceType() BaseType { return castTable[c].source }

// TargetType returns the target BaseType a BaseCastType converts to.
func (c BaseCastType) TargetType() BaseType { return castTable[c].target }

func (c BaseCastType) String() string {
	if c < baseCastTypeCount {
		return fmt.Sprintf("%s_to_%s", castTable[c].source, castTable[c].target)
	}
	return fmt.Sprintf("basecasttype(%d)", uint8(c))
}

// CastKind classifies how a VALUE_CAST expression must be compiled: no
// opcode at all, a concrete CAST_VALUE opcode, or tagging the value with its
// runtime type for variant-typed parameters.
type CastKind uint8

const (
	NoCast CastKind = iota
	BaseCast
	AnyCast
)

// LookupCast resolves the cast required to convert a value from source to
// target. It returns NoCast when the types are identical, BaseCast with the
// matching BaseCastType when a concrete entry exists in the table, AnyCast
// when no concrete conversion is defined but the target accepts a
// runtime-tagged value (only used when target is a variant/any parameter
// type, signalled by the caller passing VOID as target), and ok=false
// otherwise — the caller must fail the compile with InvalidCast.
func LookupCast(source, target BaseType) (kind CastKind, cast BaseCastType, ok bool) {
	if source == target {
		return NoCast, 0, true
	}
	if target == VOID && source != VOID {
		return AnyCast, 0, true
	}
	if source == INT_CONST {
		// An untyped integer literal is already stored as a full i64 bit
		// pattern; adopting any concrete integer type needs no conversion,
		// and float targets treat it as a signed 64-bit source.
		switch {
		case target.IsInt() || target == BOOL:
			return NoCast, 0, true
		case target == FLOAT:
			return BaseCast, SINT_64_TO_FLOAT, true
		case target == DOUBLE:
			return BaseCast, SINT_64_TO_DOUBLE, true
		}
	}
	if c, found := castLookup[castEntry{source, target}]; found {
		return BaseCast, c, true
	}
	return 0, 0, false
}
