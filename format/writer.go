package format

import "github.com/wippyai/ctf/format/internal/binary"

// BodyWriter assembles the body of a dictionary buffer: variable entries,
// type records with payloads, and finally the string table, in that order.
// The caller tracks section boundaries via Len.
type BodyWriter struct {
	w *binary.Writer
}

// NewBodyWriter creates an empty BodyWriter.
func NewBodyWriter() *BodyWriter {
	return &BodyWriter{w: binary.NewWriter()}
}

// Len returns the number of bytes written so far.
func (b *BodyWriter) Len() uint32 {
	return uint32(b.w.Len())
}

// Bytes returns the assembled body.
func (b *BodyWriter) Bytes() []byte {
	return b.w.Bytes()
}

// Raw appends pre-encoded bytes, used to carry a committed type section
// forward unchanged.
func (b *BodyWriter) Raw(data []byte) {
	b.w.WriteBytes(data)
}

// Record appends the fixed part of a type record, applying the
// large-size escape when needed.
func (b *BodyWriter) Record(t TypeRecord) {
	b.w.U32(t.Name)
	b.w.U32(t.Info)
	if t.Size >= uint64(LSizeSentinel) {
		b.w.U32(LSizeSentinel)
		b.w.U64(t.Size)
	} else {
		b.w.U32(uint32(t.Size))
	}
}

// Member appends one member entry.
func (b *BodyWriter) Member(m Member) {
	b.w.U32(m.Name)
	b.w.U32(m.Type)
	b.w.U64(m.Offset)
}

// Enum appends one enumerator entry.
func (b *BodyWriter) Enum(e Enum) {
	b.w.U32(e.Name)
	b.w.I32(e.Value)
}

// Array appends an array payload.
func (b *BodyWriter) Array(a Array) {
	b.w.U32(a.Contents)
	b.w.U32(a.Index)
	b.w.U32(a.NumElems)
}

// Slice appends a slice payload.
func (b *BodyWriter) Slice(s Slice) {
	b.w.U32(s.Type)
	b.w.U16(s.Offset)
	b.w.U16(s.Bits)
}

// Encoding appends an integer or float encoding word.
func (b *BodyWriter) Encoding(word uint32) {
	b.w.U32(word)
}

// Args appends a function argument list.
func (b *BodyWriter) Args(args []uint32) {
	for _, a := range args {
		b.w.U32(a)
	}
}

// VarEntry appends one variable entry.
func (b *BodyWriter) VarEntry(v VarEntry) {
	b.w.U32(v.Name)
	b.w.U32(v.Type)
}
