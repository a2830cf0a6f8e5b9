// Package binreader provides bounds-checked little-endian reads over an in-memory byte buffer.
package binreader

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"wcs-converter/internal/mathutil"
)

// ErrTruncated is returned when fewer bytes remain than a read requires.
var ErrTruncated = errors.New("truncated")

// Reader is a cursor over an immutable byte slice.
// Every read either succeeds in full or fails with ErrTruncated and leaves the cursor where it was.
type Reader struct {
	data []byte
	off  int
}

func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the cursor offset from the start of the buffer.
func (r *Reader) Position() int { return r.off }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) need(n int) error {
	if n < 0 || n > len(r.data)-r.off {
		return errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, %d remaining", n, r.off, r.Remaining())
	}
	return nil
}

// Seek moves the cursor to an absolute offset. Seeking to the end is allowed.
func (r *Reader) Seek(abs int) error {
	if abs < 0 || abs > len(r.data) {
		return errors.Wrapf(ErrTruncated, "seek to %d outside buffer of %d bytes", abs, len(r.data))
	}
	r.off = abs
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// Vec3 reads three consecutive floats (x, y, z).
func (r *Reader) Vec3() (mathutil.Vec3, error) {
	if err := r.need(12); err != nil {
		return mathutil.Vec3{}, err
	}
	var v mathutil.Vec3
	for k := range v {
		v[k] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off+4*k:]))
	}
	r.off += 12
	return v, nil
}

// BBox reads two vectors (min, max).
func (r *Reader) BBox() (mathutil.BoundingBox, error) {
	if err := r.need(24); err != nil {
		return mathutil.BoundingBox{}, err
	}
	lo, _ := r.Vec3()
	hi, _ := r.Vec3()
	return mathutil.BoundingBox{Min: lo, Max: hi}, nil
}

// FixedString reads exactly n bytes and cuts the result at the first NUL.
func (r *Reader) FixedString(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	return decode(b), nil
}

// LengthString reads a u32 length prefix followed by that many bytes.
// Strings longer than max are consumed in full but returned cut to max bytes with truncated set.
// max <= 0 disables the limit.
func (r *Reader) LengthString(max int) (s string, truncated bool, err error) {
	start := r.off
	n, err := r.U32()
	if err != nil {
		return "", false, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off = start
		return "", false, errors.Wrapf(ErrTruncated, "string of %d bytes at offset %d, %d remaining", n, start, len(r.data)-start-4)
	}
	b, _ := r.Bytes(int(n))
	if max > 0 && len(b) > max {
		b = b[:max]
		truncated = true
	}
	return decode(b), truncated, nil
}

// decode maps source-game Windows-1252 text to UTF-8. ASCII passes through unchanged.
func decode(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
