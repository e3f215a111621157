// Package formatstest builds UNREALFORMAT buffers for tests.
package formatstest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Writer appends little-endian primitives to a buffer.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the written buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Bool appends a one-byte boolean.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
	return w
}

// Int16 appends a signed 16-bit integer.
func (w *Writer) Int16(v int16) *Writer {
	binary.Write(&w.buf, binary.LittleEndian, v)
	return w
}

// Int32 appends a signed 32-bit integer.
func (w *Writer) Int32(v int32) *Writer {
	binary.Write(&w.buf, binary.LittleEndian, v)
	return w
}

// Uint32 appends an unsigned 32-bit integer.
func (w *Writer) Uint32(v uint32) *Writer {
	binary.Write(&w.buf, binary.LittleEndian, v)
	return w
}

// Floats appends float32 values.
func (w *Writer) Floats(vs ...float32) *Writer {
	for _, v := range vs {
		binary.Write(&w.buf, binary.LittleEndian, math.Float32bits(v))
	}
	return w
}

// FString appends an int32 length followed by the bytes of s.
func (w *Writer) FString(s string) *Writer {
	w.Int32(int32(len(s)))
	w.buf.WriteString(s)
	return w
}

// FixedString appends s NUL-padded to n bytes.
func (w *Writer) FixedString(s string, n int) *Writer {
	b := make([]byte, n)
	copy(b, s)
	w.buf.Write(b)
	return w
}

// Chunk returns a chunk header plus body with the byte length of body.
func Chunk(name string, count int32, body []byte) []byte {
	var w Writer
	w.FString(name).Int32(count).Int32(int32(len(body))).Raw(body)
	return w.Bytes()
}

// Envelope wraps body in a container header. GZIP and ZSTD compress the
// body; any other non-empty compression name is written with the body left
// as-is.
func Envelope(kind string, version int32, name, compression string, body []byte) []byte {
	var w Writer
	w.FixedString("UNREALFORMAT", 12).FString(kind).Int32(version).FString(name)
	if compression == "" {
		w.Bool(false).Raw(body)
		return w.Bytes()
	}
	w.Bool(true).FString(compression).Raw(Compress(compression, body))
	return w.Bytes()
}

// Compress encodes body with the named algorithm, or returns it unchanged
// for unknown names.
func Compress(compression string, body []byte) []byte {
	switch compression {
	case "GZIP":
		var out bytes.Buffer
		gz := gzip.NewWriter(&out)
		if _, err := gz.Write(body); err != nil {
			panic(err)
		}
		if err := gz.Close(); err != nil {
			panic(err)
		}
		return out.Bytes()
	case "ZSTD":
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err)
		}
		defer enc.Close()
		return enc.EncodeAll(body, nil)
	default:
		return body
	}
}
