package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Reader errors.
var (
	ErrUnexpectedEndOfData = errors.New("unexpected end of data")
	ErrInvalidLength       = errors.New("invalid length")
)

// Reader is a forward-only little-endian cursor over an in-memory buffer.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current offset.
func (r *Reader) Pos() int { return r.off }

// Len returns the total buffer size.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// EOF reports whether every byte has been consumed.
func (r *Reader) EOF() bool { return r.off >= len(r.data) }

// next returns the next n bytes and advances past them.
func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrUnexpectedEndOfData, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadToEnd returns a copy of all unread bytes.
func (r *Reader) ReadToEnd() []byte {
	out, _ := r.ReadBytes(r.Remaining())
	return out
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) error {
	_, err := r.next(n)
	return err
}

// ReadBool reads one byte; any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.next(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadUint8 reads one unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt16 reads a little-endian signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// ReadInt32 reads a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadUint32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadFloat64 reads a little-endian IEEE-754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadFloatVector reads n contiguous float32 values.
func (r *Reader) ReadFloatVector(n int) ([]float32, error) {
	b, err := r.next(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// ReadIntVector reads n contiguous unsigned 32-bit integers.
func (r *Reader) ReadIntVector(n int) ([]uint32, error) {
	b, err := r.next(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// ReadByteVector reads n unsigned bytes.
func (r *Reader) ReadByteVector(n int) ([]uint8, error) {
	return r.ReadBytes(n)
}

// ReadVec2 reads two float32 values.
func (r *Reader) ReadVec2() ([2]float32, error) {
	var v [2]float32
	b, err := r.next(8)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// ReadVec3 reads three float32 values.
func (r *Reader) ReadVec3() ([3]float32, error) {
	var v [3]float32
	b, err := r.next(12)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// ReadVec4 reads four float32 values.
func (r *Reader) ReadVec4() ([4]float32, error) {
	var v [4]float32
	b, err := r.next(16)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// ReadScaledVec3 reads three float32 values and converts them from
// centimeters to meters.
func (r *Reader) ReadScaledVec3() ([3]float32, error) {
	v, err := r.ReadVec3()
	if err != nil {
		return v, err
	}
	return [3]float32{v[0] * UnitScale, v[1] * UnitScale, v[2] * UnitScale}, nil
}

// ReadString reads a fixed-length string and strips trailing NUL bytes.
func (r *Reader) ReadString(n int) (string, error) {
	b, err := r.next(n)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}

// ReadFString reads an int32 length followed by that many bytes of text.
func (r *Reader) ReadFString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("%w: string length %d", ErrInvalidLength, n)
	}
	return r.ReadString(int(n))
}

// ReadBulkArray decodes exactly count elements with decode. minSize is the
// smallest encoded size of one element and is used to reject counts that
// cannot fit in the remaining buffer before allocating.
func ReadBulkArray[T any](r *Reader, count int32, minSize int, decode func(*Reader) (T, error)) ([]T, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: element count %d", ErrInvalidLength, count)
	}
	if minSize > 0 && int64(count)*int64(minSize) > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d elements of at least %d bytes, have %d",
			ErrUnexpectedEndOfData, count, minSize, r.Remaining())
	}

	out := make([]T, count)
	for i := range out {
		v, err := decode(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
