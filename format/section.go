package format

import (
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format/internal/binary"
)

// TypeSection is a read-only view over the packed type records of a
// dictionary body. Offsets are relative to the start of the section.
type TypeSection struct {
	data []byte
}

// NewTypeSection wraps data as a type section view.
func NewTypeSection(data []byte) TypeSection {
	return TypeSection{data: data}
}

// Len returns the section size in bytes.
func (ts TypeSection) Len() uint32 {
	return uint32(len(ts.data))
}

// Bytes returns the raw section.
func (ts TypeSection) Bytes() []byte {
	return ts.data
}

func (ts TypeSection) readerAt(off uint32) (*binary.Reader, error) {
	if off > uint32(len(ts.data)) {
		return nil, errors.Corrupt(errors.PhaseOpen,
			"record offset %d past section end %d", off, len(ts.data))
	}
	r := binary.NewReader(ts.data)
	if err := r.Seek(int(off)); err != nil {
		return nil, errors.Parse(errors.PhaseOpen, "type section", err)
	}
	return r, nil
}

// RecordAt decodes the record at off and returns it with the offset of
// its payload.
func (ts TypeSection) RecordAt(off uint32) (TypeRecord, uint32, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return TypeRecord{}, 0, err
	}
	rec, err := readRecord(r)
	if err != nil {
		return TypeRecord{}, 0, errors.Parse(errors.PhaseOpen, "type record", err)
	}
	return rec, uint32(r.Position()), nil
}

// Scan walks every record in the section in order, calling fn with the
// record's offset. Scanning stops at the first error.
func (ts TypeSection) Scan(fn func(off uint32, rec TypeRecord) error) error {
	r := binary.NewReader(ts.data)
	for r.Len() > 0 {
		off := uint32(r.Position())
		rec, err := readRecord(r)
		if err != nil {
			return errors.Parse(errors.PhaseOpen, "type record", err)
		}
		vbytes, ok := rec.Vbytes()
		if !ok {
			return errors.New(errors.PhaseOpen, errors.KindParse).
				Detail("unknown type kind %d at offset %d", rec.Info>>26, off).
				Build()
		}
		if err := r.Skip(vbytes); err != nil {
			return errors.Truncated(errors.PhaseOpen, "type payload", r.Len(), vbytes)
		}
		if err := fn(off, rec); err != nil {
			return err
		}
	}
	return nil
}

// MembersAt decodes vlen member entries starting at off.
func (ts TypeSection) MembersAt(off uint32, vlen uint32) ([]Member, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return nil, err
	}
	members := make([]Member, vlen)
	for i := range members {
		if members[i].Name, err = r.ReadU32(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "member entry", err)
		}
		if members[i].Type, err = r.ReadU32(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "member entry", err)
		}
		if members[i].Offset, err = r.ReadU64(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "member entry", err)
		}
	}
	return members, nil
}

// EnumsAt decodes vlen enumerator entries starting at off.
func (ts TypeSection) EnumsAt(off uint32, vlen uint32) ([]Enum, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return nil, err
	}
	enums := make([]Enum, vlen)
	for i := range enums {
		if enums[i].Name, err = r.ReadU32(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "enumerator entry", err)
		}
		if enums[i].Value, err = r.ReadI32(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "enumerator entry", err)
		}
	}
	return enums, nil
}

// ArrayAt decodes an array payload at off.
func (ts TypeSection) ArrayAt(off uint32) (Array, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return Array{}, err
	}
	var a Array
	if a.Contents, err = r.ReadU32(); err != nil {
		return Array{}, errors.Parse(errors.PhaseOpen, "array payload", err)
	}
	if a.Index, err = r.ReadU32(); err != nil {
		return Array{}, errors.Parse(errors.PhaseOpen, "array payload", err)
	}
	if a.NumElems, err = r.ReadU32(); err != nil {
		return Array{}, errors.Parse(errors.PhaseOpen, "array payload", err)
	}
	return a, nil
}

// SliceAt decodes a slice payload at off.
func (ts TypeSection) SliceAt(off uint32) (Slice, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return Slice{}, err
	}
	var s Slice
	if s.Type, err = r.ReadU32(); err != nil {
		return Slice{}, errors.Parse(errors.PhaseOpen, "slice payload", err)
	}
	if s.Offset, err = r.ReadU16(); err != nil {
		return Slice{}, errors.Parse(errors.PhaseOpen, "slice payload", err)
	}
	if s.Bits, err = r.ReadU16(); err != nil {
		return Slice{}, errors.Parse(errors.PhaseOpen, "slice payload", err)
	}
	return s, nil
}

// EncodingAt decodes an integer or float encoding word at off.
func (ts TypeSection) EncodingAt(off uint32) (uint32, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return 0, err
	}
	word, err := r.ReadU32()
	if err != nil {
		return 0, errors.Parse(errors.PhaseOpen, "encoding word", err)
	}
	return word, nil
}

// ArgsAt decodes vlen function argument ids starting at off.
func (ts TypeSection) ArgsAt(off uint32, vlen uint32) ([]uint32, error) {
	r, err := ts.readerAt(off)
	if err != nil {
		return nil, err
	}
	args := make([]uint32, vlen)
	for i := range args {
		if args[i], err = r.ReadU32(); err != nil {
			return nil, errors.Parse(errors.PhaseOpen, "argument entry", err)
		}
	}
	return args, nil
}

func readRecord(r *binary.Reader) (TypeRecord, error) {
	name, err := r.ReadU32()
	if err != nil {
		return TypeRecord{}, err
	}
	info, err := r.ReadU32()
	if err != nil {
		return TypeRecord{}, err
	}
	size, err := r.ReadU32()
	if err != nil {
		return TypeRecord{}, err
	}

	rec := TypeRecord{Name: name, Info: info, Size: uint64(size)}
	if size == LSizeSentinel {
		lsize, err := r.ReadU64()
		if err != nil {
			return TypeRecord{}, err
		}
		rec.Size = lsize
	}
	return rec, nil
}

// SymSection is a read-only view over an external symbol translation
// list: one little-endian type id per symbol-table index, zero meaning
// the symbol has no type information.
type SymSection struct {
	data []byte
}

// NewSymSection wraps data as a symbol translation view.
func NewSymSection(data []byte) SymSection {
	return SymSection{data: data}
}

// Count returns the number of symbol slots.
func (ss SymSection) Count() int {
	return len(ss.data) / SymEntrySize
}

// TypeAt returns the type id recorded for symbol index i.
func (ss SymSection) TypeAt(i int) (uint32, error) {
	r := binary.NewReader(ss.data)
	if err := r.Seek(i * SymEntrySize); err != nil {
		return 0, errors.Parse(errors.PhaseLookup, "symbol entry", err)
	}
	id, err := r.ReadU32()
	if err != nil {
		return 0, errors.Parse(errors.PhaseLookup, "symbol entry", err)
	}
	return id, nil
}

// VarSection is a read-only view over the variable entries of a body.
type VarSection struct {
	data []byte
}

// NewVarSection wraps data as a variable section view.
func NewVarSection(data []byte) VarSection {
	return VarSection{data: data}
}

// Count returns the number of entries.
func (vs VarSection) Count() int {
	return len(vs.data) / VarEntrySize
}

// EntryAt decodes the i-th variable entry.
func (vs VarSection) EntryAt(i int) (VarEntry, error) {
	r := binary.NewReader(vs.data)
	if err := r.Seek(i * VarEntrySize); err != nil {
		return VarEntry{}, errors.Parse(errors.PhaseOpen, "variable entry", err)
	}
	var v VarEntry
	var err error
	if v.Name, err = r.ReadU32(); err != nil {
		return VarEntry{}, errors.Parse(errors.PhaseOpen, "variable entry", err)
	}
	if v.Type, err = r.ReadU32(); err != nil {
		return VarEntry{}, errors.Parse(errors.PhaseOpen, "variable entry", err)
	}
	return v, nil
}
