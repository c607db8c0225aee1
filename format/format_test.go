package format_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/format"
)

func TestInfoWordRoundTrip(t *testing.T) {
	cases := []struct {
		kind   ctf.Kind
		isRoot bool
		vlen   uint32
	}{
		{ctf.KindInteger, true, 0},
		{ctf.KindStruct, false, 3},
		{ctf.KindFunction, true, 25},
		{ctf.KindEnum, false, format.MaxVlen},
	}
	for _, c := range cases {
		info := format.TypeInfo(c.kind, c.isRoot, c.vlen)
		if format.InfoKind(info) != c.kind {
			t.Errorf("kind %v: got %v", c.kind, format.InfoKind(info))
		}
		if format.InfoIsRoot(info) != c.isRoot {
			t.Errorf("kind %v: root flag lost", c.kind)
		}
		if format.InfoVlen(info) != c.vlen {
			t.Errorf("kind %v: vlen %d, got %d", c.kind, c.vlen, format.InfoVlen(info))
		}
	}
}

func TestEncodingWordRoundTrip(t *testing.T) {
	e := ctf.Encoding{Format: ctf.IntSigned | ctf.IntChar, Offset: 4, Bits: 8}
	got := format.DecodeEncoding(format.EncodingWord(e))
	if got != e {
		t.Errorf("encoding round trip: want %+v, got %+v", e, got)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	h := format.Header{
		Model:   ctf.ModelLP64.Code,
		TypeOff: 0,
		StrOff:  4,
		StrLen:  4,
	}
	buf, err := h.Encode(body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != format.HeaderSize+len(body) {
		t.Fatalf("expected %d bytes, got %d", format.HeaderSize+len(body), len(buf))
	}

	got, gotBody, err := format.DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("header mismatch: want %+v, got %+v", h, got)
	}
	if !bytes.Equal(gotBody, body) {
		t.Errorf("body mismatch: want %x, got %x", body, gotBody)
	}
}

func TestHeaderFixedLayout(t *testing.T) {
	body := []byte{'a', 0, 'b', 0}
	h := format.Header{
		Model:  ctf.ModelLP64.Code,
		StrOff: 0,
		StrLen: uint32(len(body)),
	}
	buf, err := h.Encode(body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if format.HeaderSize != 36 {
		t.Fatalf("header size constant: got %d, want 36", format.HeaderSize)
	}
	if len(buf) != 36+len(body) {
		t.Fatalf("encoded length: got %d, want %d", len(buf), 36+len(body))
	}
	// StrLen is the last header word; the body starts right after it.
	if got := binary.LittleEndian.Uint32(buf[32:36]); got != h.StrLen {
		t.Errorf("strLen word: got %d, want %d", got, h.StrLen)
	}
	if !bytes.Equal(buf[36:], body) {
		t.Errorf("body bytes: got %x, want %x", buf[36:], body)
	}
}

func TestHeaderCompressedRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte("typedata"), 64)
	h := format.Header{
		Flags:  format.FlagCompress,
		Model:  ctf.ModelILP32.Code,
		StrOff: uint32(len(body)),
	}
	buf, err := h.Encode(body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) >= format.HeaderSize+len(body) {
		t.Errorf("compressed encoding not smaller: %d bytes", len(buf))
	}

	got, gotBody, err := format.DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got.Flags&format.FlagCompress == 0 {
		t.Error("compress flag lost")
	}
	if !bytes.Equal(gotBody, body) {
		t.Error("inflated body differs from original")
	}
}

func TestDecodeHeaderRejects(t *testing.T) {
	h := format.Header{StrOff: 0}
	good, err := h.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, _, err := format.DecodeHeader(good[:10]); err == nil {
		t.Error("expected error for truncated header")
	}

	bad := append([]byte(nil), good...)
	bad[0] ^= 0xff
	if _, _, err := format.DecodeHeader(bad); err == nil {
		t.Error("expected error for bad magic")
	}

	bad = append([]byte(nil), good...)
	bad[4] = 99 // version byte
	if _, _, err := format.DecodeHeader(bad); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestVbytesForKind(t *testing.T) {
	cases := []struct {
		kind ctf.Kind
		vlen uint32
		want int
	}{
		{ctf.KindInteger, 0, 4},
		{ctf.KindFloat, 0, 4},
		{ctf.KindArray, 0, format.ArraySize},
		{ctf.KindSlice, 0, format.SliceSize},
		{ctf.KindStruct, 3, 3 * format.MemberSize},
		{ctf.KindUnion, 2, 2 * format.MemberSize},
		{ctf.KindEnum, 4, 4 * format.EnumSize},
		{ctf.KindFunction, 5, 5 * format.ArgSize},
		{ctf.KindPointer, 0, 0},
		{ctf.KindTypedef, 0, 0},
		{ctf.KindForward, 0, 0},
	}
	for _, c := range cases {
		got, ok := format.VbytesForKind(c.kind, c.vlen)
		if !ok {
			t.Errorf("%v: unexpectedly invalid", c.kind)
			continue
		}
		if got != c.want {
			t.Errorf("%v vlen=%d: want %d, got %d", c.kind, c.vlen, c.want, got)
		}
	}

	if _, ok := format.VbytesForKind(ctf.KindUnknown, 0); ok {
		t.Error("unknown kind should be invalid")
	}
}

func TestStrtabBuilderDedup(t *testing.T) {
	b := format.NewStrtabBuilder()
	a1 := b.Add("alpha")
	beta := b.Add("beta")
	a2 := b.Add("alpha")
	if a1 != a2 {
		t.Errorf("duplicate add returned different offsets: %d vs %d", a1, a2)
	}
	if a1 == beta {
		t.Error("distinct strings share an offset")
	}
	if b.Add("") != 0 {
		t.Error("empty string must stay at offset 0")
	}

	tab := format.NewStrtab(b.Bytes())
	for name, off := range map[string]uint32{"alpha": a1, "beta": beta} {
		got, err := tab.Lookup(off)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", off, err)
		}
		if got != name {
			t.Errorf("Lookup(%d): want %q, got %q", off, name, got)
		}
	}
}

func TestStrtabBuilderSeed(t *testing.T) {
	base := format.NewStrtabBuilder()
	off := base.Add("shared")

	seeded := format.SeedStrtabBuilder(base.Bytes())
	if got := seeded.Add("shared"); got != off {
		t.Errorf("seeded builder re-added existing string: %d vs %d", got, off)
	}
	if !bytes.HasPrefix(seeded.Bytes(), base.Bytes()) {
		t.Error("seeded table does not preserve existing bytes")
	}

	fresh := seeded.Add("new")
	if fresh < base.Len() {
		t.Error("new string written inside the seeded region")
	}
}

func TestStrtabLookupErrors(t *testing.T) {
	tab := format.NewStrtab([]byte{0, 'a', 'b'}) // unterminated tail
	if _, err := tab.Lookup(100); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := tab.Lookup(1); err == nil {
		t.Error("expected unterminated-string error")
	}
	if s, err := tab.Lookup(0); err != nil || s != "" {
		t.Errorf("offset 0: want \"\", got %q err %v", s, err)
	}
}
