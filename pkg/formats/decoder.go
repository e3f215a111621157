package formats

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Options controls decoding. The zero value is strict and sequential.
type Options struct {
	// MaxDecompressedSize bounds each inflated envelope body in bytes.
	// Zero selects DefaultMaxDecompressedSize.
	MaxDecompressedSize int64
	// Workers decodes a world's nested meshes concurrently when above 1.
	Workers int
	// LenientChunkSizes accepts recognized chunks whose decoded size differs
	// from their declared byte length, logging a warning instead.
	LenientChunkSizes bool
	// Logger receives debug and warning output. Nil discards it.
	Logger *zap.Logger
}

// Object is the result of decoding one envelope. Exactly one of Mesh and
// World is set, matching Header.Kind.
type Object struct {
	Header Header
	Mesh   *Mesh
	World  *World
}

// Kind returns the record kind.
func (o *Object) Kind() Kind { return o.Header.Kind }

// Decoder decodes UNREALFORMAT envelopes. It holds no per-file state and is
// safe for concurrent use.
type Decoder struct {
	opts Options
	log  *zap.Logger
}

// NewDecoder creates a decoder with the given options.
func NewDecoder(opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{opts: opts, log: log}
}

// Decode decodes data with default options.
func Decode(data []byte) (*Object, error) {
	return NewDecoder(Options{}).Decode(data)
}

// DecodeFile reads and decodes the file at path with default options.
func DecodeFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading UNREALFORMAT file: %w", err)
	}
	return Decode(data)
}

// ReadBody parses the header of data and returns a reader over the
// decompressed record body.
func (d *Decoder) ReadBody(data []byte) (Header, *Reader, error) {
	r := NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}
	body, err := d.body(h, r)
	return h, body, err
}

// body returns a reader over the record body that follows h in r.
func (d *Decoder) body(h Header, r *Reader) (*Reader, error) {
	if !h.Compressed {
		return r, nil
	}

	compressed := r.ReadToEnd()
	payload, err := Decompress(h.Compression, compressed, d.opts.MaxDecompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", h.Kind, h.Name, err)
	}
	d.log.Debug("decompressed body",
		zap.String("name", h.Name),
		zap.String("compression", string(h.Compression)),
		zap.Int("compressed", len(compressed)),
		zap.Int("size", len(payload)))
	return NewReader(payload), nil
}

// Decode decodes one envelope into a mesh or world.
func (d *Decoder) Decode(data []byte) (*Object, error) {
	h, body, err := d.ReadBody(data)
	if err != nil {
		return nil, err
	}

	d.log.Debug("decoding object",
		zap.String("kind", h.Kind.String()),
		zap.String("name", h.Name),
		zap.Int32("version", h.Version))

	obj := &Object{Header: h}
	switch h.Kind {
	case KindModel:
		obj.Mesh, err = d.decodeMesh(body, h.Name)
	case KindWorld:
		obj.World, err = d.decodeWorld(body, h.Name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, h.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", h.Kind, h.Name, err)
	}
	return obj, nil
}

func (d *Decoder) hooks(record string) ChunkHooks {
	hooks := ChunkHooks{
		Unknown: func(h ChunkHeader) {
			d.log.Debug("skipping unknown chunk",
				zap.String("record", record),
				zap.String("chunk", h.Name),
				zap.Int32("bytes", h.ByteLength))
		},
	}
	if d.opts.LenientChunkSizes {
		hooks.SizeMismatch = func(h ChunkHeader, consumed int) error {
			d.log.Warn("chunk size mismatch",
				zap.String("record", record),
				zap.String("chunk", h.Name),
				zap.Int32("declared", h.ByteLength),
				zap.Int("decoded", consumed))
			return nil
		}
	}
	return hooks
}

func (d *Decoder) decodeMesh(r *Reader, name string) (*Mesh, error) {
	m := &Mesh{Name: name}
	if err := meshChunks.Read(r, m, d.hooks(name)); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) decodeWorld(r *Reader, name string) (*World, error) {
	w := &World{Name: name}
	if err := worldChunks.Read(r, w, d.hooks(name)); err != nil {
		return nil, err
	}

	// Actors resolve only after every nested mesh is decoded.
	if err := d.decodeNestedMeshes(w.Meshes); err != nil {
		return nil, err
	}
	if err := w.resolve(); err != nil {
		return nil, err
	}

	d.log.Debug("decoded world",
		zap.String("name", name),
		zap.Int("meshes", len(w.Meshes)),
		zap.Int("actors", len(w.Actors)))
	return w, nil
}

// decodeNested decodes one embedded envelope. The kind is checked from the
// header before the body is inflated, so a nested world is never decoded.
func (d *Decoder) decodeNested(hm *HashedMesh) error {
	r := NewReader(hm.Data)
	h, err := ReadHeader(r)
	if err != nil {
		return fmt.Errorf("mesh hash %d: %w", hm.Hash, err)
	}
	switch h.Kind {
	case KindModel:
	case KindWorld:
		return fmt.Errorf("%w: mesh hash %d holds %s", ErrUnexpectedNestedKind, hm.Hash, h.Kind)
	default:
		return fmt.Errorf("mesh hash %d: %w: %q", hm.Hash, ErrUnsupportedKind, h.Kind)
	}

	body, err := d.body(h, r)
	if err != nil {
		return fmt.Errorf("mesh hash %d: %w", hm.Hash, err)
	}
	m, err := d.decodeMesh(body, h.Name)
	if err != nil {
		return fmt.Errorf("mesh hash %d: %s %q: %w", hm.Hash, h.Kind, h.Name, err)
	}
	hm.Header = h
	hm.Mesh = m
	return nil
}

func (d *Decoder) decodeNestedMeshes(meshes []HashedMesh) error {
	if d.opts.Workers <= 1 || len(meshes) < 2 {
		for i := range meshes {
			if err := d.decodeNested(&meshes[i]); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(meshes))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for n := 0; n < min(d.opts.Workers, len(meshes)); n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = d.decodeNested(&meshes[i])
			}
		}()
	}
	for i := range meshes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Report the first failure in file order so results match the
	// sequential path.
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
