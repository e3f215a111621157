package formats

import (
	"errors"
	"fmt"
)

// Chunk errors.
var ErrChunkSizeMismatch = errors.New("chunk size mismatch")

// ChunkHeader precedes every section of a record body.
type ChunkHeader struct {
	Name       string
	Count      int32 // Element count as declared by the writer
	ByteLength int32 // Body size in bytes
}

// ReadChunkHeader reads a chunk name, element count and byte length.
func ReadChunkHeader(r *Reader) (ChunkHeader, error) {
	var h ChunkHeader
	var err error

	if h.Name, err = r.ReadFString(); err != nil {
		return h, fmt.Errorf("reading chunk name: %w", err)
	}
	if h.Count, err = r.ReadInt32(); err != nil {
		return h, fmt.Errorf("reading %s count: %w", h.Name, err)
	}
	if h.ByteLength, err = r.ReadInt32(); err != nil {
		return h, fmt.Errorf("reading %s byte length: %w", h.Name, err)
	}
	if h.Count < 0 || h.ByteLength < 0 {
		return h, fmt.Errorf("%w: chunk %s count=%d bytes=%d", ErrInvalidLength, h.Name, h.Count, h.ByteLength)
	}
	return h, nil
}

// ChunkFunc decodes one chunk body into rec.
type ChunkFunc[T any] func(r *Reader, count int32, rec *T) error

// ChunkEntry binds a chunk name to its decoder.
type ChunkEntry[T any] struct {
	Name   string
	Decode ChunkFunc[T]
}

// ChunkTable routes chunks of one record type by name.
type ChunkTable[T any] struct {
	entries map[string]ChunkFunc[T]
}

// NewChunkTable builds a table from entries. It panics on duplicate or
// empty names since tables are package-level constants.
func NewChunkTable[T any](entries ...ChunkEntry[T]) *ChunkTable[T] {
	t := &ChunkTable[T]{entries: make(map[string]ChunkFunc[T], len(entries))}
	for _, e := range entries {
		if e.Name == "" || e.Decode == nil {
			panic("formats: chunk table entry without name or decoder")
		}
		if _, dup := t.entries[e.Name]; dup {
			panic("formats: duplicate chunk table entry " + e.Name)
		}
		t.entries[e.Name] = e.Decode
	}
	return t
}

// Has reports whether name is a recognized chunk.
func (t *ChunkTable[T]) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// ChunkHooks observe dispatching. All fields are optional.
type ChunkHooks struct {
	// Unknown is called for every skipped chunk.
	Unknown func(ChunkHeader)
	// SizeMismatch is called when a recognized chunk consumed a different
	// number of bytes than declared. Returning nil accepts the chunk as
	// decoded and skips any declared bytes the decoder left unread;
	// otherwise the error aborts the stream.
	SizeMismatch func(h ChunkHeader, consumed int) error
}

// Read dispatches chunks until end of stream. Unknown chunks are skipped by
// their declared byte length.
func (t *ChunkTable[T]) Read(r *Reader, rec *T, hooks ChunkHooks) error {
	for !r.EOF() {
		h, err := ReadChunkHeader(r)
		if err != nil {
			return err
		}

		decode, ok := t.entries[h.Name]
		if !ok {
			if hooks.Unknown != nil {
				hooks.Unknown(h)
			}
			if err := r.Skip(int(h.ByteLength)); err != nil {
				return fmt.Errorf("skipping chunk %s: %w", h.Name, err)
			}
			continue
		}

		start := r.Pos()
		if err := decode(r, h.Count, rec); err != nil {
			return fmt.Errorf("chunk %s: %w", h.Name, err)
		}
		if consumed := r.Pos() - start; consumed != int(h.ByteLength) {
			err := fmt.Errorf("%w: chunk %s declared %d bytes, decoded %d",
				ErrChunkSizeMismatch, h.Name, h.ByteLength, consumed)
			if hooks.SizeMismatch != nil {
				err = hooks.SizeMismatch(h, consumed)
			}
			if err != nil {
				return err
			}
			// Realign on the next header when the chunk declared trailing bytes.
			if consumed < int(h.ByteLength) {
				if err := r.Skip(int(h.ByteLength) - consumed); err != nil {
					return fmt.Errorf("skipping chunk %s padding: %w", h.Name, err)
				}
			}
		}
	}
	return nil
}

// ListChunks walks a record body and returns every chunk header without
// decoding any body.
func ListChunks(r *Reader) ([]ChunkHeader, error) {
	var headers []ChunkHeader
	for !r.EOF() {
		h, err := ReadChunkHeader(r)
		if err != nil {
			return headers, err
		}
		if err := r.Skip(int(h.ByteLength)); err != nil {
			return headers, fmt.Errorf("skipping chunk %s: %w", h.Name, err)
		}
		headers = append(headers, h)
	}
	return headers, nil
}
