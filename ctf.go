package ctf

// TypeID identifies a type within a dictionary. Identifiers are opaque to
// callers: whether an id resolves in a container or in its parent is decided
// by the container boundary, see IsParentID.
type TypeID uint32

// NoType is the zero TypeID, never assigned to a definition.
const NoType TypeID = 0

// Kind enumerates the type kinds a dictionary can describe.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInteger
	KindFloat
	KindPointer
	KindArray
	KindFunction
	KindStruct
	KindUnion
	KindEnum
	KindForward
	KindTypedef
	KindVolatile
	KindConst
	KindRestrict
	KindSlice

	KindMax = KindSlice
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	KindInteger:  "integer",
	KindFloat:    "float",
	KindPointer:  "pointer",
	KindArray:    "array",
	KindFunction: "function",
	KindStruct:   "struct",
	KindUnion:    "union",
	KindEnum:     "enum",
	KindForward:  "forward",
	KindTypedef:  "typedef",
	KindVolatile: "volatile",
	KindConst:    "const",
	KindRestrict: "restrict",
	KindSlice:    "slice",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsReference reports whether types of this kind refer to another type
// (pointer, typedef, qualifier, slice, or function return).
func (k Kind) IsReference() bool {
	switch k {
	case KindPointer, KindTypedef, KindVolatile, KindConst, KindRestrict,
		KindSlice, KindFunction:
		return true
	}
	return false
}

// IsTagged reports whether names of this kind live in a tag namespace of
// their own (struct, union, enum) rather than the shared identifier space.
func (k Kind) IsTagged() bool {
	return k == KindStruct || k == KindUnion || k == KindEnum
}

// Integer format flags for Encoding.Format when the kind is KindInteger.
const (
	IntSigned  uint32 = 0x01
	IntChar    uint32 = 0x02
	IntBool    uint32 = 0x04
	IntVarArgs uint32 = 0x08
)

// Float formats for Encoding.Format when the kind is KindFloat.
const (
	FloatSingle     uint32 = 1
	FloatDouble     uint32 = 2
	FloatLongDouble uint32 = 3
)

// Encoding describes how an integer or float is represented: a format word
// (flags for integers, an enumerated format for floats), a bit offset, and
// a width in bits.
type Encoding struct {
	Format uint32
	Offset uint32
	Bits   uint32
}

// ArrayInfo describes an array type.
type ArrayInfo struct {
	Contents TypeID // element type
	Index    TypeID // index type
	NumElems uint32
}

// SliceInfo describes a bit-field slice of an integral type.
type SliceInfo struct {
	Type   TypeID
	Offset uint16
	Bits   uint16
}

// MemberInfo describes one struct or union member. Offset is in bits from
// the start of the aggregate.
type MemberInfo struct {
	Name   string
	Type   TypeID
	Offset uint64
}

// Enumerator is one name=value pair of an enum type.
type Enumerator struct {
	Name  string
	Value int32
}

// VarInfo binds a variable name to its type.
type VarInfo struct {
	Name string
	Type TypeID
}

// Section is a byte buffer handed in by an object-file collaborator.
// The library never takes ownership: Data must stay valid for the life of
// any container opened from it.
type Section struct {
	Name string
	Data []byte
}

// DataModel captures the width assumptions of the producing compiler.
type DataModel struct {
	Name    string
	Code    uint8
	Pointer uint32 // sizeof(void *) in bytes
	Char    uint32
	Short   uint32
	Int     uint32
	Long    uint32
}

// The two data models a dictionary can be produced under.
var (
	ModelILP32 = DataModel{Name: "ILP32", Code: 1, Pointer: 4, Char: 1, Short: 2, Int: 4, Long: 4}
	ModelLP64  = DataModel{Name: "LP64", Code: 2, Pointer: 8, Char: 1, Short: 2, Int: 4, Long: 8}
)

// ModelByCode returns the data model for a wire-format code.
func ModelByCode(code uint8) (DataModel, bool) {
	switch code {
	case ModelILP32.Code:
		return ModelILP32, true
	case ModelLP64.Code:
		return ModelLP64, true
	}
	return DataModel{}, false
}

// Identifier namespace.
//
// A container attached to a parent splits the id space at a boundary
// parmax, always one less than a power of two: ids at or below the boundary
// belong to the parent, ids above it are local once the boundary bit is
// masked off. A container with no parent has parmax == 0 and every id is
// local.

// IsParentID reports whether id indexes into the parent's namespace.
func IsParentID(id TypeID, parmax uint32) bool {
	return parmax != 0 && uint32(id) <= parmax
}

// IsChildID reports whether id indexes into the child's own namespace.
func IsChildID(id TypeID, parmax uint32) bool {
	return uint32(id) > parmax
}

// TypeToIndex recovers the local index of id under the given boundary.
func TypeToIndex(id TypeID, parmax uint32) uint32 {
	if parmax == 0 {
		return uint32(id)
	}
	return uint32(id) & parmax
}

// IndexToType encodes a local index as a global id. The child flag selects
// the upper half of the split namespace.
func IndexToType(index uint32, parmax uint32, child bool) TypeID {
	if child {
		return TypeID(index | (parmax + 1))
	}
	return TypeID(index)
}

// ContainerBoundary rounds maxID up to the next value of the form 2^n - 1,
// the shape TypeToIndex requires of a boundary.
func ContainerBoundary(maxID uint32) uint32 {
	b := maxID
	b |= b >> 1
	b |= b >> 2
	b |= b >> 4
	b |= b >> 8
	b |= b >> 16
	return b
}
