package format

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format/internal/binary"
)

// Parsing errors returned by DecodeHeader.
var (
	ErrInvalidMagic   = stderrors.New("invalid ctf magic number")
	ErrInvalidVersion = stderrors.New("unsupported ctf version")
)

// Header is the fixed-width prologue of every dictionary buffer. Section
// offsets are relative to the end of the header and must be ordered
// varOff <= typeOff <= strOff; strOff+strLen is the body length.
type Header struct {
	Flags    uint8
	Model    uint8
	ParMax   uint32
	ParLabel uint32 // string offset of the parent label, 0 if none
	ParName  uint32 // string offset of the parent basename, 0 if none
	VarOff   uint32
	TypeOff  uint32
	StrOff   uint32
	StrLen   uint32
}

// Encode serializes the header followed by body, compressing the body
// when FlagCompress is set.
func (h *Header) Encode(body []byte) ([]byte, error) {
	if h.StrOff+h.StrLen != uint32(len(body)) {
		return nil, errors.Corrupt(errors.PhaseUpdate,
			"header claims %d body bytes, have %d", h.StrOff+h.StrLen, len(body))
	}

	w := binary.NewWriter()
	w.U32(Magic)
	w.U8(Version)
	w.U8(h.Flags)
	w.U8(h.Model)
	w.U8(0) // reserved
	w.U32(h.ParMax)
	w.U32(h.ParLabel)
	w.U32(h.ParName)
	w.U32(h.VarOff)
	w.U32(h.TypeOff)
	w.U32(h.StrOff)
	w.U32(h.StrLen)

	if h.Flags&FlagCompress != 0 {
		compressed, err := deflateBody(body)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(compressed)
	} else {
		w.WriteBytes(body)
	}
	return w.Bytes(), nil
}

// DecodeHeader validates the header of data and returns it together with
// the (decompressed) body.
func DecodeHeader(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, errors.Truncated(errors.PhaseOpen, "header", len(data), HeaderSize)
	}

	r := binary.NewReader(data)
	magic, _ := r.ReadU32()
	if magic != Magic {
		return Header{}, nil, errors.Parse(errors.PhaseOpen, "header", ErrInvalidMagic)
	}
	version, _ := r.ReadU8()
	if version != Version {
		return Header{}, nil, errors.Parse(errors.PhaseOpen,
			fmt.Sprintf("version %d", version), ErrInvalidVersion)
	}

	var h Header
	var readErr error
	u8 := func() uint8 {
		v, err := r.ReadU8()
		if err != nil && readErr == nil {
			readErr = err
		}
		return v
	}
	u32 := func() uint32 {
		v, err := r.ReadU32()
		if err != nil && readErr == nil {
			readErr = err
		}
		return v
	}
	h.Flags = u8()
	h.Model = u8()
	u8() // reserved
	h.ParMax = u32()
	h.ParLabel = u32()
	h.ParName = u32()
	h.VarOff = u32()
	h.TypeOff = u32()
	h.StrOff = u32()
	h.StrLen = u32()
	if readErr != nil {
		return Header{}, nil, errors.Truncated(errors.PhaseOpen, "header", len(data), HeaderSize)
	}

	body := data[HeaderSize:]
	if h.Flags&FlagCompress != 0 {
		inflated, err := inflateBody(body, int(h.StrOff+h.StrLen))
		if err != nil {
			return Header{}, nil, err
		}
		body = inflated
	}

	if h.VarOff > h.TypeOff || h.TypeOff > h.StrOff {
		return Header{}, nil, errors.Parse(errors.PhaseOpen,
			"section offsets out of order", nil)
	}
	if int(h.StrOff)+int(h.StrLen) != len(body) {
		return Header{}, nil, errors.Truncated(errors.PhaseOpen, "body",
			len(body), int(h.StrOff+h.StrLen))
	}

	return h, body, nil
}
