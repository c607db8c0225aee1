package format_test

import (
	"testing"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/format"
)

// buildSection assembles a section with an integer, a struct of two
// members, and a pointer back to the integer.
func buildSection(t *testing.T) format.TypeSection {
	t.Helper()
	w := format.NewBodyWriter()

	w.Record(format.TypeRecord{
		Name: 1,
		Info: format.TypeInfo(ctf.KindInteger, true, 0),
		Size: 4,
	})
	w.Encoding(format.EncodingWord(ctf.Encoding{Format: ctf.IntSigned, Bits: 32}))

	w.Record(format.TypeRecord{
		Name: 5,
		Info: format.TypeInfo(ctf.KindStruct, true, 2),
		Size: 16,
	})
	w.Member(format.Member{Name: 10, Type: 1, Offset: 0})
	w.Member(format.Member{Name: 12, Type: 1, Offset: 64})

	w.Record(format.TypeRecord{
		Info: format.TypeInfo(ctf.KindPointer, false, 0),
		Size: 1, // referenced type id in the size slot
	})

	return format.NewTypeSection(w.Bytes())
}

func TestTypeSectionScan(t *testing.T) {
	ts := buildSection(t)

	var kinds []ctf.Kind
	var offs []uint32
	err := ts.Scan(func(off uint32, rec format.TypeRecord) error {
		kinds = append(kinds, rec.Kind())
		offs = append(offs, off)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []ctf.Kind{ctf.KindInteger, ctf.KindStruct, ctf.KindPointer}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("record %d: want %v, got %v", i, want[i], kinds[i])
		}
	}

	// Re-read the struct through RecordAt and decode its members.
	rec, payload, err := ts.RecordAt(offs[1])
	if err != nil {
		t.Fatalf("RecordAt: %v", err)
	}
	if rec.Kind() != ctf.KindStruct || rec.Vlen() != 2 {
		t.Fatalf("unexpected struct record %+v", rec)
	}
	members, err := ts.MembersAt(payload, rec.Vlen())
	if err != nil {
		t.Fatalf("MembersAt: %v", err)
	}
	if members[0].Offset != 0 || members[1].Offset != 64 {
		t.Errorf("member offsets wrong: %+v", members)
	}

	// The pointer's size slot is a reference.
	rec, _, err = ts.RecordAt(offs[2])
	if err != nil {
		t.Fatalf("RecordAt: %v", err)
	}
	if rec.Ref() != 1 {
		t.Errorf("pointer ref: want 1, got %d", rec.Ref())
	}
}

func TestLargeSizeEscape(t *testing.T) {
	w := format.NewBodyWriter()
	big := uint64(1) << 40
	w.Record(format.TypeRecord{
		Info: format.TypeInfo(ctf.KindStruct, true, 0),
		Size: big,
	})

	ts := format.NewTypeSection(w.Bytes())
	rec, payload, err := ts.RecordAt(0)
	if err != nil {
		t.Fatalf("RecordAt: %v", err)
	}
	if rec.Size != big {
		t.Errorf("large size: want %d, got %d", big, rec.Size)
	}
	if payload != format.RecordSize+8 {
		t.Errorf("payload offset: want %d, got %d", format.RecordSize+8, payload)
	}
	if rec.EncodedSize() != format.RecordSize+8 {
		t.Errorf("EncodedSize: got %d", rec.EncodedSize())
	}
}

func TestScanTruncatedPayload(t *testing.T) {
	w := format.NewBodyWriter()
	w.Record(format.TypeRecord{
		Info: format.TypeInfo(ctf.KindStruct, true, 4), // claims 4 members
		Size: 32,
	})
	w.Member(format.Member{Name: 1, Type: 1}) // only one present

	ts := format.NewTypeSection(w.Bytes())
	err := ts.Scan(func(uint32, format.TypeRecord) error { return nil })
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestVarSection(t *testing.T) {
	w := format.NewBodyWriter()
	w.VarEntry(format.VarEntry{Name: 3, Type: 7})
	w.VarEntry(format.VarEntry{Name: 9, Type: 2})

	vs := format.NewVarSection(w.Bytes())
	if vs.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", vs.Count())
	}
	v, err := vs.EntryAt(1)
	if err != nil {
		t.Fatalf("EntryAt: %v", err)
	}
	if v.Name != 9 || v.Type != 2 {
		t.Errorf("entry 1: got %+v", v)
	}
}
