package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderPosition(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadU8()
		if err != nil {
			t.Fatalf("ReadU8 %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadU8 %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if r.Len() != 0 {
		t.Errorf("remaining: got %d, want 0", r.Len())
	}
	_, err := r.ReadU8()
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestReaderFixedWidth(t *testing.T) {
	w := NewWriter()
	w.U16(0xBEEF)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.I32(-42)

	r := NewReader(w.Bytes())
	if v, err := r.ReadU16(); err != nil || v != 0xBEEF {
		t.Errorf("ReadU16: got 0x%04x, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Errorf("ReadU32: got 0x%08x, %v", v, err)
	}
	if v, err := r.ReadU64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadU64: got 0x%016x, %v", v, err)
	}
	if v, err := r.ReadI32(); err != nil || v != -42 {
		t.Errorf("ReadI32: got %d, %v", v, err)
	}
	if r.Len() != 0 {
		t.Errorf("remaining: got %d, want 0", r.Len())
	}
}

func TestReaderLittleEndian(t *testing.T) {
	r := NewReader([]byte{0x78, 0x56, 0x34, 0x12})
	v, err := r.ReadU32()
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("ReadU32: got 0x%08x, want 0x12345678", v)
	}
}

func TestReaderReadBytes(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data)

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}
	if r.Position() != 3 {
		t.Errorf("position: got %d, want 3", r.Position())
	}

	if _, err := r.ReadBytes(10); err == nil {
		t.Error("expected error for reading past end")
	}
	if _, err := r.ReadBytes(-1); err == nil {
		t.Error("expected error for negative length")
	}
}

func TestReaderSeekSkip(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01, 0x02, 0x03})

	if err := r.Skip(2); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	b, err := r.ReadU8()
	if err != nil || b != 0x02 {
		t.Errorf("ReadU8 after Skip: got 0x%02x, %v", b, err)
	}

	if err := r.Seek(1); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	b, err = r.ReadU8()
	if err != nil || b != 0x01 {
		t.Errorf("ReadU8 after Seek: got 0x%02x, %v", b, err)
	}

	if err := r.Seek(5); err == nil {
		t.Error("expected error seeking past end")
	}
	if err := r.Skip(10); err == nil {
		t.Error("expected error skipping past end")
	}
}

func TestReaderRemaining(t *testing.T) {
	r := NewReader([]byte{0x0a, 0x0b, 0x0c})
	if _, err := r.ReadU8(); err != nil {
		t.Fatalf("ReadU8: %v", err)
	}
	rest := r.ReadRemaining()
	if !bytes.Equal(rest, []byte{0x0b, 0x0c}) {
		t.Errorf("ReadRemaining: got %v, want [11 12]", rest)
	}
	if r.Len() != 0 {
		t.Errorf("remaining after drain: got %d, want 0", r.Len())
	}
}

func TestWriterStringAndPad(t *testing.T) {
	w := NewWriter()
	w.WriteString("abc")
	if got := w.Bytes(); !bytes.Equal(got, []byte{'a', 'b', 'c', 0}) {
		t.Errorf("WriteString: got %v", got)
	}

	w.Pad(8)
	if w.Len() != 8 {
		t.Errorf("Pad: got length %d, want 8", w.Len())
	}
	w.Pad(8)
	if w.Len() != 8 {
		t.Errorf("Pad on aligned buffer: got length %d, want 8", w.Len())
	}
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{0x01})
	base := errors.New("bad record")
	err := r.WrapError("types", base)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if pe.Section != "types" || pe.Position != 0 {
		t.Errorf("ParseError fields: %+v", pe)
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match base")
	}
}
