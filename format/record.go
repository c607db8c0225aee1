package format

import "github.com/wippyai/ctf"

// TypeRecord is the fixed part of one encoded type. For sized kinds
// (integer, float, struct, union, enum) Size is the byte size; for
// reference kinds the size slot carries the referenced type id, exposed
// via Ref.
type TypeRecord struct {
	Name uint32 // string table offset, 0 = anonymous
	Info uint32
	Size uint64
}

// Kind returns the type kind from the info word.
func (t TypeRecord) Kind() ctf.Kind { return InfoKind(t.Info) }

// IsRoot returns the root visibility flag from the info word.
func (t TypeRecord) IsRoot() bool { return InfoIsRoot(t.Info) }

// Vlen returns the variable length from the info word.
func (t TypeRecord) Vlen() uint32 { return InfoVlen(t.Info) }

// Ref returns the referenced type id for reference kinds.
func (t TypeRecord) Ref() ctf.TypeID { return ctf.TypeID(t.Size) }

// Vbytes returns the size of the payload following this record.
func (t TypeRecord) Vbytes() (int, bool) {
	return VbytesForKind(t.Kind(), t.Vlen())
}

// EncodedSize returns the number of bytes the fixed part occupies on the
// wire, accounting for the large-size escape.
func (t TypeRecord) EncodedSize() int {
	if t.Size >= uint64(LSizeSentinel) {
		return RecordSize + 8
	}
	return RecordSize
}

// Member is the wire form of one struct or union member.
type Member struct {
	Name   uint32 // string table offset
	Type   uint32
	Offset uint64 // bits from the start of the aggregate
}

// Enum is the wire form of one enumerator.
type Enum struct {
	Name  uint32 // string table offset
	Value int32
}

// Array is the wire form of an array payload.
type Array struct {
	Contents uint32
	Index    uint32
	NumElems uint32
}

// Slice is the wire form of a bit-field slice payload.
type Slice struct {
	Type   uint32
	Offset uint16
	Bits   uint16
}

// VarEntry is one entry of the variable section. Entries are sorted by
// name bytes so readers can binary-search.
type VarEntry struct {
	Name uint32
	Type uint32
}

// VarEntrySize is the encoded size of a VarEntry.
const VarEntrySize = 8

// SymEntrySize is the encoded size of one symbol translation slot.
const SymEntrySize = 4
