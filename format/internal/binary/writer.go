package binary

import (
	"bytes"
	"encoding/binary"
)

// Writer provides buffered writing utilities for CTF binary encoding.
// All multi-byte values are little-endian.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// U8 writes a single byte.
func (w *Writer) U8(b uint8) {
	w.buf.WriteByte(b)
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteString writes the raw bytes of s with a terminating NUL.
func (w *Writer) WriteString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// Pad writes zero bytes until the length is a multiple of align.
func (w *Writer) Pad(align int) {
	for w.buf.Len()%align != 0 {
		w.buf.WriteByte(0)
	}
}
