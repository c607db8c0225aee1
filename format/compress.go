package format

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/wippyai/ctf/errors"
)

// deflateBody compresses a dictionary body with zlib.
func deflateBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, errors.Parse(errors.PhaseUpdate, "compress body", err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Parse(errors.PhaseUpdate, "compress body", err)
	}
	return buf.Bytes(), nil
}

// inflateBody decompresses a dictionary body, verifying the size the
// header promised.
func inflateBody(data []byte, want int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Parse(errors.PhaseOpen, "compressed body", err)
	}
	defer zr.Close()

	body := make([]byte, 0, want)
	buf := bytes.NewBuffer(body)
	if _, err := io.Copy(buf, io.LimitReader(zr, int64(want)+1)); err != nil {
		return nil, errors.Parse(errors.PhaseOpen, "compressed body", err)
	}
	if buf.Len() != want {
		return nil, errors.Truncated(errors.PhaseOpen, "compressed body", buf.Len(), want)
	}
	return buf.Bytes(), nil
}
