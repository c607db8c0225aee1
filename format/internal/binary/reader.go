package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a read runs past the end of the data.
var ErrShortBuffer = errors.New("unexpected end of data")

// Reader walks a byte slice with position tracking and little-endian
// fixed-width read methods.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Seek moves the position to pos.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.wrapError(ErrShortBuffer)
	}
	r.pos = pos
	return nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int) error {
	if r.Len() < n {
		return r.wrapError(ErrShortBuffer)
	}
	r.pos += n
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if r.Len() < 1 {
		return 0, r.wrapError(ErrShortBuffer)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if r.Len() < 2 {
		return 0, r.wrapError(ErrShortBuffer)
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if r.Len() < 4 {
		return 0, r.wrapError(ErrShortBuffer)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if r.Len() < 8 {
		return 0, r.wrapError(ErrShortBuffer)
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadI32 reads a little-endian int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytes reads exactly n bytes. The returned slice aliases the
// underlying data.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, r.wrapError(ErrShortBuffer)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadRemaining returns all unread bytes.
func (r *Reader) ReadRemaining() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError represents an error during binary parsing with position
// information.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("ctf: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("ctf: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}
