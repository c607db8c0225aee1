package format

import (
	"sort"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format/internal/binary"
)

// Archive file layout: a fixed header, a directory of entries sorted by
// member name, a name blob, then the member buffers, each 8-byte aligned.
const (
	// ArchiveMagic is the bytes "CTFA" read as a little-endian uint32.
	ArchiveMagic uint32 = 0x41465443

	// ArchiveVersion is the only archive format version supported.
	ArchiveVersion uint8 = 1

	archiveHeaderSize = 16
	archiveEntrySize  = 12
	archiveAlign      = 8
)

// ArchiveEntry locates one member buffer inside an archive file.
type ArchiveEntry struct {
	Name string
	Off  uint32
	Size uint32
}

// EncodeArchive serializes members into an archive file image. Members
// are sorted by name; duplicate names are rejected.
func EncodeArchive(members []ctf.Section) ([]byte, error) {
	sorted := append([]ctf.Section(nil), members...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return nil, errors.New(errors.PhaseArchive, errors.KindDuplicateName).
				Detail("member %q appears twice", sorted[i].Name).
				Build()
		}
	}

	names := NewStrtabBuilder()
	nameOffs := make([]uint32, len(sorted))
	for i, m := range sorted {
		nameOffs[i] = names.Add(m.Name)
	}

	dataStart := archiveHeaderSize + len(sorted)*archiveEntrySize + int(names.Len())
	dataStart = alignUp(dataStart, archiveAlign)

	w := binary.NewWriter()
	w.U32(ArchiveMagic)
	w.U8(ArchiveVersion)
	w.U8(0)
	w.U16(0)
	w.U32(uint32(len(sorted)))
	w.U32(names.Len())

	off := dataStart
	for i, m := range sorted {
		w.U32(nameOffs[i])
		w.U32(uint32(off))
		w.U32(uint32(len(m.Data)))
		off = alignUp(off+len(m.Data), archiveAlign)
	}
	w.WriteBytes(names.Bytes())
	w.Pad(archiveAlign)
	for _, m := range sorted {
		w.WriteBytes(m.Data)
		w.Pad(archiveAlign)
	}
	return w.Bytes(), nil
}

// DecodeArchive validates an archive image and returns its directory,
// sorted by member name.
func DecodeArchive(data []byte) ([]ArchiveEntry, error) {
	if len(data) < archiveHeaderSize {
		return nil, errors.Truncated(errors.PhaseArchive, "archive header",
			len(data), archiveHeaderSize)
	}
	r := binary.NewReader(data)
	magic, _ := r.ReadU32()
	if magic != ArchiveMagic {
		return nil, errors.Parse(errors.PhaseArchive, "archive header", ErrInvalidMagic)
	}
	version, _ := r.ReadU8()
	if version != ArchiveVersion {
		return nil, errors.Parse(errors.PhaseArchive, "archive header", ErrInvalidVersion)
	}
	_, _ = r.ReadU8()
	_, _ = r.ReadU16()
	count, _ := r.ReadU32()
	nameLen, _ := r.ReadU32()

	dirSize := int(count) * archiveEntrySize
	if r.Len() < dirSize+int(nameLen) {
		return nil, errors.Truncated(errors.PhaseArchive, "archive directory",
			r.Len(), dirSize+int(nameLen))
	}

	type rawEntry struct{ name, off, size uint32 }
	raw := make([]rawEntry, count)
	for i := range raw {
		raw[i].name, _ = r.ReadU32()
		raw[i].off, _ = r.ReadU32()
		raw[i].size, _ = r.ReadU32()
	}
	nameBlob, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return nil, errors.Parse(errors.PhaseArchive, "archive names", err)
	}
	names := NewStrtab(nameBlob)

	entries := make([]ArchiveEntry, count)
	for i, e := range raw {
		name, err := names.Lookup(e.name)
		if err != nil {
			return nil, err
		}
		end := uint64(e.off) + uint64(e.size)
		if end > uint64(len(data)) {
			return nil, errors.Corrupt(errors.PhaseArchive,
				"member %q spans [%d, %d) past archive end %d", name, e.off, end, len(data))
		}
		entries[i] = ArchiveEntry{Name: name, Off: e.off, Size: e.size}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Name <= entries[i-1].Name {
			return nil, errors.Corrupt(errors.PhaseArchive,
				"archive directory not sorted at %q", entries[i].Name)
		}
	}
	return entries, nil
}

func alignUp(v, align int) int {
	return (v + align - 1) / align * align
}
