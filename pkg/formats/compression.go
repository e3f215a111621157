package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression errors.
var (
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrCorruptPayload         = errors.New("corrupt compressed payload")
	ErrPayloadTooLarge        = errors.New("decompressed payload exceeds limit")
)

// Compression names the algorithm applied to an envelope body.
type Compression string

const (
	CompressionGZIP Compression = "GZIP"
	CompressionZSTD Compression = "ZSTD"
)

// DefaultMaxDecompressedSize bounds inflated payloads when Options leaves
// the limit unset.
const DefaultMaxDecompressedSize = 1 << 30

// Decompress inflates payload with the named algorithm. The output may not
// exceed limit bytes; limit <= 0 selects DefaultMaxDecompressedSize.
func Decompress(c Compression, payload []byte, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxDecompressedSize
	}

	var src io.ReadCloser
	switch c {
	case CompressionGZIP:
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorruptPayload, err)
		}
		src = gz
	case CompressionZSTD:
		zr, err := zstd.NewReader(bytes.NewReader(payload),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(limit)),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptPayload, err)
		}
		src = zr.IOReadCloser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompression, string(c))
	}
	defer src.Close()

	out, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptPayload, c, err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return out, nil
}
