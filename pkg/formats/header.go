package formats

import (
	"errors"
	"fmt"
)

// Magic is the literal every UNREALFORMAT container starts with.
const Magic = "UNREALFORMAT"

// Envelope errors.
var (
	ErrInvalidMagic    = errors.New("invalid magic: expected 'UNREALFORMAT'")
	ErrUnsupportedKind = errors.New("unsupported object kind")
)

// Kind identifies the record type carried by an envelope.
type Kind string

const (
	KindModel Kind = "UMODEL" // Static or skeletal mesh
	KindWorld Kind = "UWORLD" // Actor placements plus hashed meshes
	KindAnim  Kind = "UANIM"  // Declared by exporters, not decodable
)

// String returns the identifier as written in the file.
func (k Kind) String() string { return string(k) }

// Header is the uncompressed preamble of an envelope.
type Header struct {
	Kind        Kind
	Version     int32 // Reported as-is; callers decide compatibility
	Name        string
	Compressed  bool
	Compression Compression // Empty unless Compressed
}

// ReadHeader reads the magic and header fields. The reader is left at the
// first byte of the (possibly compressed) body.
func ReadHeader(r *Reader) (Header, error) {
	var h Header

	if r.Remaining() < len(Magic) {
		return h, fmt.Errorf("%w: buffer holds %d bytes", ErrInvalidMagic, r.Remaining())
	}
	magic, err := r.ReadString(len(Magic))
	if err != nil {
		return h, err
	}
	if magic != Magic {
		return h, ErrInvalidMagic
	}

	kind, err := r.ReadFString()
	if err != nil {
		return h, fmt.Errorf("reading kind: %w", err)
	}
	h.Kind = Kind(kind)

	if h.Version, err = r.ReadInt32(); err != nil {
		return h, fmt.Errorf("reading version: %w", err)
	}
	if h.Name, err = r.ReadFString(); err != nil {
		return h, fmt.Errorf("reading object name: %w", err)
	}
	if h.Compressed, err = r.ReadBool(); err != nil {
		return h, fmt.Errorf("reading compression flag: %w", err)
	}

	if h.Compressed {
		algo, err := r.ReadFString()
		if err != nil {
			return h, fmt.Errorf("reading compression type: %w", err)
		}
		h.Compression = Compression(algo)
	}

	return h, nil
}

// IsNotThisFormat reports whether err means the buffer is not an
// UNREALFORMAT container at all, as opposed to a corrupt one.
func IsNotThisFormat(err error) bool {
	return errors.Is(err, ErrInvalidMagic)
}
