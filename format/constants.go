package format

import "github.com/wippyai/ctf"

// Wire format identity.
const (
	// Magic is the bytes "CTF0" read as a little-endian uint32.
	Magic uint32 = 0x30465443

	// Version is the only format version this library reads and writes.
	Version uint8 = 1

	// HeaderSize is the fixed size of the dictionary header in bytes:
	// magic u32, version/flags/model/reserved u8, then seven u32 fields.
	HeaderSize = 36
)

// Header flags.
const (
	// FlagCompress marks a body that is zlib-compressed as a whole.
	FlagCompress uint8 = 0x01
)

// Type record layout.
const (
	// RecordSize is the fixed part of a type record: name, info, size.
	RecordSize = 12

	// LSizeSentinel in the size slot escapes to a trailing uint64 size.
	LSizeSentinel uint32 = 0xffffffff

	// MaxVlen is the largest member, enumerator, or argument count the
	// info word can carry.
	MaxVlen uint32 = 0x01ffffff

	kindShift = 26
	rootFlag  = 1 << 25
	vlenMask  = MaxVlen
)

// Fixed payload element sizes.
const (
	MemberSize = 16 // name u32, type u32, offset u64
	EnumSize   = 8  // name u32, value i32
	ArraySize  = 12 // contents u32, index u32, nelems u32
	SliceSize  = 8  // type u32, offset u16, bits u16
	ArgSize    = 4  // argument type u32
)

// TypeInfo packs kind, root visibility, and variable length into an info
// word.
func TypeInfo(kind ctf.Kind, isRoot bool, vlen uint32) uint32 {
	info := uint32(kind)<<kindShift | vlen&vlenMask
	if isRoot {
		info |= rootFlag
	}
	return info
}

// InfoKind extracts the type kind from an info word.
func InfoKind(info uint32) ctf.Kind {
	return ctf.Kind(info >> kindShift)
}

// InfoIsRoot extracts the root visibility flag from an info word.
func InfoIsRoot(info uint32) bool {
	return info&rootFlag != 0
}

// InfoVlen extracts the variable length from an info word.
func InfoVlen(info uint32) uint32 {
	return info & vlenMask
}

// EncodingWord packs an integer or float encoding descriptor.
// Layout follows the classic CTF scheme: format in the top byte, bit
// offset in the next, width in the low half.
func EncodingWord(e ctf.Encoding) uint32 {
	return e.Format<<24 | (e.Offset&0xff)<<16 | e.Bits&0xffff
}

// DecodeEncoding unpacks an encoding word.
func DecodeEncoding(word uint32) ctf.Encoding {
	return ctf.Encoding{
		Format: word >> 24,
		Offset: (word >> 16) & 0xff,
		Bits:   word & 0xffff,
	}
}

// VbytesForKind returns the size in bytes of the kind-specific payload
// that follows a type record.
func VbytesForKind(kind ctf.Kind, vlen uint32) (int, bool) {
	switch kind {
	case ctf.KindInteger, ctf.KindFloat:
		return 4, true
	case ctf.KindArray:
		return ArraySize, true
	case ctf.KindSlice:
		return SliceSize, true
	case ctf.KindStruct, ctf.KindUnion:
		return int(vlen) * MemberSize, true
	case ctf.KindEnum:
		return int(vlen) * EnumSize, true
	case ctf.KindFunction:
		return int(vlen) * ArgSize, true
	case ctf.KindPointer, ctf.KindTypedef, ctf.KindVolatile,
		ctf.KindConst, ctf.KindRestrict, ctf.KindForward:
		return 0, true
	default:
		return 0, false
	}
}
