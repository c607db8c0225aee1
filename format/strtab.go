package format

import (
	"bytes"

	"github.com/wippyai/ctf/errors"
)

// Strtab is a read-only view over an offset-addressed, NUL-terminated
// string table. Offset 0 is always the empty string.
type Strtab struct {
	data []byte
}

// NewStrtab wraps data as a string table view.
func NewStrtab(data []byte) Strtab {
	return Strtab{data: data}
}

// Len returns the table size in bytes.
func (s Strtab) Len() uint32 {
	return uint32(len(s.data))
}

// Bytes returns the raw table.
func (s Strtab) Bytes() []byte {
	return s.data
}

// Lookup resolves a string offset. Offset 0 resolves to "" even on an
// empty table.
func (s Strtab) Lookup(off uint32) (string, error) {
	if off == 0 {
		return "", nil
	}
	if off >= uint32(len(s.data)) {
		return "", errors.Corrupt(errors.PhaseLookup,
			"string offset %d past table end %d", off, len(s.data))
	}
	end := bytes.IndexByte(s.data[off:], 0)
	if end < 0 {
		return "", errors.Corrupt(errors.PhaseLookup,
			"unterminated string at offset %d", off)
	}
	return string(s.data[off : off+uint32(end)]), nil
}

// StrtabBuilder accumulates a de-duplicated string table. Strings are
// appended in first-use order; a builder seeded from an existing table
// preserves its bytes so previously encoded offsets stay valid.
type StrtabBuilder struct {
	buf   []byte
	index map[string]uint32
}

// NewStrtabBuilder creates an empty builder holding only the "" entry.
func NewStrtabBuilder() *StrtabBuilder {
	return &StrtabBuilder{
		buf:   []byte{0},
		index: map[string]uint32{"": 0},
	}
}

// SeedStrtabBuilder creates a builder whose table starts as a byte-exact
// copy of existing, with every existing string indexed for reuse.
func SeedStrtabBuilder(existing []byte) *StrtabBuilder {
	if len(existing) == 0 {
		return NewStrtabBuilder()
	}
	b := &StrtabBuilder{
		buf:   append([]byte(nil), existing...),
		index: map[string]uint32{"": 0},
	}
	off := uint32(1)
	for int(off) < len(existing) {
		end := bytes.IndexByte(existing[off:], 0)
		if end < 0 {
			break
		}
		s := string(existing[off : off+uint32(end)])
		if _, ok := b.index[s]; !ok {
			b.index[s] = off
		}
		off += uint32(end) + 1
	}
	return b
}

// Add returns the offset of s, appending it when unseen.
func (b *StrtabBuilder) Add(s string) uint32 {
	if off, ok := b.index[s]; ok {
		return off
	}
	off := uint32(len(b.buf))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	b.index[s] = off
	return off
}

// Len returns the current table size in bytes.
func (b *StrtabBuilder) Len() uint32 {
	return uint32(len(b.buf))
}

// Bytes returns the built table.
func (b *StrtabBuilder) Bytes() []byte {
	return b.buf
}
