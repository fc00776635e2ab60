// Package binreader centralizes the bounds-checked offset arithmetic every
// structured reader (mdl, vvd, vtx, phy) needs (spec §4.1: "Readers must
// validate every offset and count against buffer length"). Buffers are
// treated as plain byte slices, never streams: the five input buffers are
// assumed fully resident in memory before decoding starts (spec §5).
package binreader

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is wrapped by every bounds failure this package reports.
var ErrOutOfBounds = errors.New("offset out of bounds")

// CheckBounds reports an error unless [offset, offset+size) lies within buf.
func CheckBounds(buf []byte, offset, size int) error {
	if offset < 0 || size < 0 || offset+size < offset {
		return errors.Wrapf(ErrOutOfBounds, "offset=%d size=%d", offset, size)
	}
	if offset+size > len(buf) {
		return errors.Wrapf(ErrOutOfBounds, "offset=%d size=%d buflen=%d", offset, size, len(buf))
	}
	return nil
}

// ReadAt decodes a fixed-size little-endian struct at offset into v.
func ReadAt(buf []byte, offset int, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return errors.Errorf("binreader: %T has no fixed binary size", v)
	}
	if err := CheckBounds(buf, offset, size); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf[offset:offset+size]), binary.LittleEndian, v)
}

// CString reads a NUL-terminated ASCII string starting at offset, bounded
// by the end of buf if no terminator is found (spec §4.1: "strings are
// bounded by buffer length").
func CString(buf []byte, offset int) (string, error) {
	if offset < 0 || offset > len(buf) {
		return "", errors.Wrapf(ErrOutOfBounds, "cstring offset=%d buflen=%d", offset, len(buf))
	}
	end := bytes.IndexByte(buf[offset:], 0)
	if end < 0 {
		return string(buf[offset:]), nil
	}
	return string(buf[offset : offset+end]), nil
}

// Int32Array reads n little-endian int32 values starting at offset.
func Int32Array(buf []byte, offset, n int) ([]int32, error) {
	if n < 0 {
		return nil, errors.Errorf("binreader: negative count %d", n)
	}
	if err := CheckBounds(buf, offset, n*4); err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(buf[offset+i*4:]))
	}
	return out, nil
}
